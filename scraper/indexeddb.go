package scraper

import (
	"context"
	"fmt"

	"github.com/use-agent/portsync/credential"
	"github.com/ysmood/gson"
)

// readRecordJS reads one IndexedDB record without creating anything: an
// upgrade (the database does not exist yet) is aborted. The promise
// resolves to {found, value}; non-string values are serialized as JSON.
const readRecordJS = `(database, storeName, key) => new Promise((resolve, reject) => {
	const open = window.indexedDB.open(database);
	open.onupgradeneeded = () => {
		open.transaction.abort();
	};
	open.onerror = () => {
		reject(new Error("open " + database + ": " + (open.error ? open.error.message : "unknown error")));
	};
	open.onsuccess = () => {
		const db = open.result;
		let tx;
		try {
			tx = db.transaction(storeName, "readonly");
		} catch (e) {
			db.close();
			reject(e);
			return;
		}
		const get = tx.objectStore(storeName).get(key);
		get.onsuccess = () => {
			const v = get.result;
			db.close();
			if (v === undefined || v === null) {
				resolve({found: false, value: ""});
				return;
			}
			resolve({found: true, value: typeof v === "string" ? v : JSON.stringify(v)});
		};
		get.onerror = () => {
			db.close();
			reject(new Error("get " + key + ": " + (get.error ? get.error.message : "unknown error")));
		};
	};
})`

// Get reads a record from the page's IndexedDB. It implements
// credential.Store.
func (s *Session) Get(ctx context.Context, database, store, key string) (string, error) {
	res, err := s.page.Context(ctx).Eval(readRecordJS, database, store, key)
	if err != nil {
		return "", fmt.Errorf("indexeddb %s/%s: %w", database, store, err)
	}
	return decodeRecord(res.Value)
}

// decodeRecord unpacks the {found, value} object returned by readRecordJS.
func decodeRecord(v gson.JSON) (string, error) {
	if v.Nil() || !v.Get("found").Bool() {
		return "", credential.ErrRecordNotFound
	}
	return v.Get("value").Str(), nil
}

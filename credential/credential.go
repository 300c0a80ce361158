// Package credential extracts the brokerage bearer token from the page's
// embedded key-value storage.
package credential

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/use-agent/portsync/models"
)

// tokenMarker precedes the token inside the serialized auth object.
const tokenMarker = `access_token","`

// ErrRecordNotFound is returned by a Store when the record does not exist.
var ErrRecordNotFound = errors.New("record not found")

// Store reads one record from an embedded key-value database.
//
// Get returns the record value as text: string values verbatim, any other
// value serialized as JSON. It returns ErrRecordNotFound
// when the record is absent and any other error when the database cannot
// be opened or read.
type Store interface {
	Get(ctx context.Context, database, store, key string) (string, error)
}

// Location names the record holding the auth object.
type Location struct {
	Database string
	Store    string
	Key      string
}

// Reader extracts the bearer token from a Store.
type Reader struct {
	store Store
	loc   Location
}

// NewReader creates a Reader for the record at loc.
func NewReader(store Store, loc Location) *Reader {
	return &Reader{store: store, loc: loc}
}

// Token reads the auth record and returns the token it carries.
// Every failure is reported as ErrCodeCredentialUnavailable.
func (r *Reader) Token(ctx context.Context) (string, error) {
	raw, err := r.store.Get(ctx, r.loc.Database, r.loc.Store, r.loc.Key)
	if err != nil {
		msg := "failed to read auth record"
		if errors.Is(err, ErrRecordNotFound) {
			msg = fmt.Sprintf("auth record %q is absent", r.loc.Key)
		}
		return "", unavailable(msg, err)
	}

	token, err := ParseToken(raw)
	if err != nil {
		return "", unavailable("auth record does not carry a token", err)
	}
	return token, nil
}

// ParseToken extracts the token from a stored auth value.
//
// The value is JSON text. It is decoded once: a JSON string yields the
// serialized auth object, anything else is searched as is. The token is the
// text between tokenMarker and the next double quote.
func ParseToken(raw string) (string, error) {
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return "", fmt.Errorf("decode auth value: %w", err)
	}

	text := raw
	if s, ok := decoded.(string); ok {
		text = s
	}

	_, rest, found := strings.Cut(text, tokenMarker)
	if !found {
		return "", errors.New("token marker not found")
	}
	token, _, found := strings.Cut(rest, `"`)
	if !found {
		return "", errors.New("token is not terminated")
	}
	if token == "" {
		return "", errors.New("token is empty")
	}
	return token, nil
}

func unavailable(msg string, err error) *models.SyncError {
	return models.NewSyncError(models.ErrCodeCredentialUnavailable, msg, err)
}

package normalize

import (
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// Lookup walks a dotted path ("crypto.equity.amount") through a decoded
// JSON tree. It reports false when any step is missing or is not an
// object; it never fails.
func Lookup(tree any, path string) (v any, ok bool) {
	if tree == nil || path == "" {
		return nil, false
	}
	defer func() {
		if r := recover(); r != nil {
			v, ok = nil, false
		}
	}()

	v, err := jsonpath.Get(bracketPath(path), tree)
	if err != nil || v == nil {
		return nil, false
	}
	return v, true
}

// bracketPath turns "a.b" into `$["a"]["b"]`, so keys are matched literally.
func bracketPath(path string) string {
	var b strings.Builder
	b.WriteByte('$')
	for _, key := range strings.Split(path, ".") {
		b.WriteByte('[')
		b.WriteString(strconv.Quote(key))
		b.WriteByte(']')
	}
	return b.String()
}

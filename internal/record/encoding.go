package record

import (
	"fmt"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
)

// DefaultEncoding is the code page of the published area-code files.
const DefaultEncoding = "cp932"

// encodingAliases maps names used by Windows and Python tooling onto
// WHATWG labels understood by htmlindex.
var encodingAliases = map[string]string{
	"cp932":       "shift_jis",
	"ms932":       "shift_jis",
	"mskanji":     "shift_jis",
	"windows-31j": "shift_jis",
	"sjis":        "shift_jis",
	"utf8":        "utf-8",
	"eucjp":       "euc-jp",
}

// LookupEncoding resolves an encoding name. An empty name selects
// DefaultEncoding.
func LookupEncoding(name string) (encoding.Encoding, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultEncoding
	}
	if alias, ok := encodingAliases[key]; ok {
		key = alias
	}

	enc, err := htmlindex.Get(key)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	return enc, nil
}

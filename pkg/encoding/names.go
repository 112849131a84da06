// Package encoding decodes object and material names written by exporters
// that predate UTF-8.
package encoding

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Legacy encodings tried, in order, for names that are not valid UTF-8.
var legacy = []encoding.Encoding{
	korean.EUCKR,
	charmap.Windows1252,
}

// DecodeName returns s as NFC-normalised UTF-8. Valid UTF-8 passes through;
// otherwise the first legacy encoding that decodes without replacement
// characters wins. Anything else has its invalid bytes replaced by "_".
func DecodeName(s string) string {
	if utf8.ValidString(s) {
		return norm.NFC.String(s)
	}
	for _, enc := range legacy {
		out, _, err := transform.String(enc.NewDecoder(), s)
		if err != nil || strings.ContainsRune(out, utf8.RuneError) {
			continue
		}
		return norm.NFC.String(out)
	}
	return strings.ToValidUTF8(s, "_")
}

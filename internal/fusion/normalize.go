package fusion

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks removes combining marks after NFD decomposition, so accented and
// unaccented spellings of the same identifier collapse to one key.
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// canonicalKey normalizes a canonical identifier for merge matching: trimmed,
// case-folded, diacritics stripped. Upstream normalization owns identity
// resolution; this only protects against cosmetic id drift between adapters.
func canonicalKey(id string) string {
	id = strings.TrimSpace(id)
	if id == "" {
		return ""
	}
	if folded, _, err := transform.String(stripMarks, id); err == nil {
		id = folded
	}
	return strings.ToLower(id)
}

// Package ident derives stable product identifiers from display names.
package ident

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Generate lower-cases name, folds Vietnamese diacritics to base ASCII letters and
// turns everything outside [a-z0-9] into single underscores, e.g. "Cốc sứ" -> "coc_su".
// It returns "" when nothing alphanumeric survives.
func Generate(name string) string {
	// Transformers are stateful, so a fresh chain is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, strings.ToLower(name))
	if err != nil {
		folded = strings.ToLower(name)
	}

	var b strings.Builder
	b.Grow(len(folded))
	underscore := false
	for _, r := range folded {
		if r == 'đ' {
			r = 'd'
		}
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			underscore = false
			continue
		}
		if !underscore {
			b.WriteByte('_')
			underscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

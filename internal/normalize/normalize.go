// Package normalize folds catalog text into the canonical form stored in
// natural-key indexes and compared during search.
//
// The same function runs at write time and at query time, so two spellings of
// a name that differ only in diacritics, hamza placement, alef variants or
// taa marbuta collapse to one key.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// stripped holds the runes removed outright: Quranic annotation marks,
// standalone hamza, tatweel, harakat and tanwin, the hamza/maddah combining
// marks and superscript alef.
//
//nolint:gochecknoglobals // Static lookup table
var stripped = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0610, Hi: 0x061a, Stride: 1},
		{Lo: 0x0621, Hi: 0x0621, Stride: 1},
		{Lo: 0x0640, Hi: 0x0640, Stride: 1},
		{Lo: 0x064b, Hi: 0x065f, Stride: 1},
		{Lo: 0x0670, Hi: 0x0670, Stride: 1},
		{Lo: 0x06d6, Hi: 0x06ed, Stride: 1},
	},
}

// fold maps a single rune to its folded form, or -1 to drop it.
func fold(r rune) rune {
	if r < 0x0600 {
		return r
	}
	if unicode.Is(stripped, r) {
		return -1
	}
	switch r {
	case 'آ', 'أ', 'إ', 'ٱ':
		return 'ا'
	case 'ى', 'ئ':
		return 'ي'
	case 'ؤ':
		return 'و'
	case 'ة':
		return 'ه'
	}
	return r
}

// Text returns the normalized form of s.
//
// Steps: NFC composition, Arabic mark stripping and letter folding,
// whitespace collapse, trim, lowercase. The result is re-composed so that
// Text(Text(s)) == Text(s) for every input.
func Text(s string) string {
	if s == "" {
		return ""
	}

	s = norm.NFC.String(s)
	s = strings.Map(fold, s)
	s = strings.Join(strings.Fields(s), " ")

	return norm.NFC.String(strings.ToLower(s))
}

// Key builds a composite natural key from normalized parts joined with "|".
// Callers put free text first and enumerated values after it.
func Key(parts ...string) string {
	normalized := make([]string, len(parts))
	for i, p := range parts {
		normalized[i] = Text(p)
	}
	return strings.Join(normalized, "|")
}

// Package textnorm prepares raw chat text for keyword and date matching.
package textnorm

import (
	"strings"
	"unicode"
)

// Normalize trims, lowercases and strips punctuation that carries no meaning
// for intent or date matching. Separators inside times (14:30), numeric dates
// (3/4), ranges (3-5, mon-fri), slot references (#2) and contractions (i'll)
// are preserved. Whitespace runs collapse to a single space.
func Normalize(text string) string {
	runes := []rune(strings.ToLower(strings.TrimSpace(text)))
	var b strings.Builder
	b.Grow(len(runes))

	for i, r := range runes {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		case r == ':' || r == '/':
			if isDigitAt(runes, i-1) && isDigitAt(runes, i+1) {
				b.WriteRune(r)
			} else {
				b.WriteByte(' ')
			}
		case r == '.':
			// "2.30" reads as a time; "p.m." collapses to "pm".
			if isDigitAt(runes, i-1) && isDigitAt(runes, i+1) {
				b.WriteByte(':')
			}
		case r == '-' || r == '–' || r == '—':
			if isAlnum(neighbor(runes, i, -1)) && isAlnum(neighbor(runes, i, 1)) {
				b.WriteByte('-')
			} else {
				b.WriteByte(' ')
			}
		case r == '#':
			if isDigitAt(runes, i+1) {
				b.WriteRune(r)
			} else {
				b.WriteByte(' ')
			}
		case r == '\'' || r == '’':
			if isLetterAt(runes, i-1) && isLetterAt(runes, i+1) {
				b.WriteByte('\'')
			}
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// neighbor returns the closest non-space rune in direction dir, or 0.
func neighbor(runes []rune, i, dir int) rune {
	for j := i + dir; j >= 0 && j < len(runes); j += dir {
		if !unicode.IsSpace(runes[j]) {
			return runes[j]
		}
	}
	return 0
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isDigitAt(runes []rune, i int) bool {
	return i >= 0 && i < len(runes) && unicode.IsDigit(runes[i])
}

func isLetterAt(runes []rune, i int) bool {
	return i >= 0 && i < len(runes) && unicode.IsLetter(runes[i])
}

package parsers

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// FindHeaderRow scans at most window rows top-down and returns the index of
// the first row with at least minCells non-empty cells where some cell
// contains one of keywords. Matching is case, whitespace and accent
// insensitive. It returns false when no row qualifies.
func FindHeaderRow(rows [][]string, keywords []string, window, minCells int) (int, bool) {
	folded := make([]string, 0, len(keywords))
	for _, k := range keywords {
		if f := Fold(k); f != "" {
			folded = append(folded, f)
		}
	}

	limit := len(rows)
	if window > 0 && window < limit {
		limit = window
	}

	for i := 0; i < limit; i++ {
		nonEmpty := 0
		matched := false
		for _, cell := range rows[i] {
			c := Fold(cell)
			if c == "" {
				continue
			}
			nonEmpty++
			if !matched {
				for _, k := range folded {
					if strings.Contains(c, k) {
						matched = true
						break
					}
				}
			}
		}
		if matched && nonEmpty >= minCells {
			return i, true
		}
	}
	return 0, false
}

// Fold lowercases s, collapses inner whitespace and strips diacritics.
func Fold(s string) string {
	s = strings.TrimPrefix(s, utf8BOM)
	s = strings.Join(strings.Fields(strings.ToLower(s)), " ")
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// normalizeHeader is the strict comparison key: case and whitespace only.
func normalizeHeader(s string) string {
	s = strings.TrimPrefix(s, utf8BOM)
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

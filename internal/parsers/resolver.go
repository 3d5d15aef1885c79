package parsers

import (
	"strings"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// ResolveColumn returns the column whose header equals a synonym, ignoring
// case and surrounding whitespace. Synonyms are tried in priority order and
// the first header carrying a match wins.
func ResolveColumn(t *RawTable, syn Synonyms) (ColumnRef, bool) {
	index := make(map[string]int, len(t.Headers))
	for i, h := range t.Headers {
		key := normalizeHeader(h)
		if _, dup := index[key]; !dup {
			index[key] = i
		}
	}

	for _, s := range syn {
		if i, ok := index[normalizeHeader(s)]; ok {
			return ColumnRef{Index: i, Header: t.Headers[i]}, true
		}
	}
	return ColumnRef{}, false
}

// ResolveColumnLenient tries ResolveColumn, then an accent-folded exact
// match, then a header that contains a synonym. Only used when a rule or the
// configuration enables lenient columns.
func ResolveColumnLenient(t *RawTable, syn Synonyms) (ColumnRef, bool) {
	if ref, ok := ResolveColumn(t, syn); ok {
		return ref, true
	}

	folded := make([]string, len(t.Headers))
	for i, h := range t.Headers {
		folded[i] = Fold(h)
	}

	for _, s := range syn {
		fs := Fold(s)
		for i, h := range folded {
			if h == fs {
				return ColumnRef{Index: i, Header: t.Headers[i]}, true
			}
		}
	}

	for _, s := range syn {
		fs := Fold(s)
		if fs == "" {
			continue
		}
		for i, h := range folded {
			if strings.Contains(h, fs) {
				return ColumnRef{Index: i, Header: t.Headers[i]}, true
			}
		}
	}
	return ColumnRef{}, false
}

// Resolve picks the strict or lenient resolver.
func Resolve(t *RawTable, syn Synonyms, lenient bool) (ColumnRef, bool) {
	if lenient {
		return ResolveColumnLenient(t, syn)
	}
	return ResolveColumn(t, syn)
}

// maxSuggestionDistance bounds how different a header may be from every
// synonym and still be offered as a hint.
const maxSuggestionDistance = 6

// SuggestColumn returns the header closest to any synonym by edit distance.
// It is a hint for diagnostics and never feeds resolution.
func SuggestColumn(t *RawTable, syn Synonyms) (string, bool) {
	best := ""
	bestDist := -1
	for _, h := range t.Headers {
		fh := []rune(Fold(h))
		for _, s := range syn {
			d := levenshtein.DistanceForStrings(fh, []rune(Fold(s)), levenshtein.DefaultOptions)
			if bestDist < 0 || d < bestDist {
				best, bestDist = h, d
			}
		}
	}
	if bestDist < 0 || bestDist > maxSuggestionDistance {
		return "", false
	}
	return best, true
}

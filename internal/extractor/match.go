package extractor

import "strings"

func isLetter(c byte) bool { return c >= 'a' && c <= 'z' }

func isAlnum(c byte) bool { return isLetter(c) || c >= '0' && c <= '9' }

// containsWord reports whether term occurs in folded text s starting on a
// word boundary and followed by at most slack further word characters, so
// "aprovad" matches "aprovadas" while "paga" does not match "pagamento".
func containsWord(s, term string, word func(byte) bool, slack int) bool {
	if term == "" {
		return false
	}
	for from := 0; from+len(term) <= len(s); {
		i := strings.Index(s[from:], term)
		if i < 0 {
			return false
		}
		start := from + i
		end := start + len(term)
		if start == 0 || !word(s[start-1]) {
			tail := end
			for tail < len(s) && word(s[tail]) {
				tail++
			}
			if tail-end <= slack {
				return true
			}
		}
		from = start + 1
	}
	return false
}

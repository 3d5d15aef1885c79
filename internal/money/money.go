// Package money turns locale-ambiguous monetary text into decimal values.
//
// Normalize is a total function: exports from payment processors routinely
// carry malformed cells, and a bad cell must count as zero rather than abort
// the run.
package money

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// currencySymbols are stripped before parsing, longest first.
var currencySymbols = []string{"US$", "R$", "€", "$"}

// Cent is the noise threshold used when deciding whether an amount is worth posting.
var Cent = decimal.RequireFromString("0.01")

// Normalize parses raw into a decimal. When both '.' and ',' are present the
// one that appears first is the thousands separator; a lone ',' is the decimal
// separator. Unparseable input yields zero. With isExpense the absolute value
// is returned.
func Normalize(raw string, isExpense bool) decimal.Decimal {
	s := raw
	for _, sym := range currencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)

	dot := strings.IndexByte(s, '.')
	comma := strings.IndexByte(s, ',')
	switch {
	case dot >= 0 && comma >= 0:
		if dot < comma {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.ReplaceAll(s, ",", ".")
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		s = strings.ReplaceAll(s, ",", ".")
	}

	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '-' || r == '.' {
			return r
		}
		return -1
	}, s)

	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	if isExpense {
		return d.Abs()
	}
	return d
}

// Format renders d with two decimals and a comma decimal separator, the
// convention of the ERP import file. No thousands separator is written.
func Format(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

// AboveNoise reports whether d is strictly greater than one cent.
func AboveNoise(d decimal.Decimal) bool {
	return d.GreaterThan(Cent)
}

// Package parse converts human-formatted financial tokens into typed
// values. It is pure and deterministic: identical input always yields
// identical output, and nothing here ever returns an error.
package parse

import (
	"strconv"
	"strings"
)

// Value parses one token. It returns a float64 when the token is numeric in
// any of the accepted shapes, nil for an empty token, and the original
// trimmed string otherwise.
//
// Accepted shapes, first match wins: plain number, currency/thousands
// decorated ("$1,234.56"), parenthesized negative ("(500)"), trailing
// percent ("15%" -> 0.15), and magnitude suffixes ("2.5M", "3B") which are
// only considered after a direct parse of the cleaned token failed.
func Value(token string) any {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil
	}
	if f, ok := Number(trimmed); ok {
		return f
	}
	return trimmed
}

// Number reports whether the token parses as a number under the same rules
// as Value, returning the parsed value when it does.
func Number(token string) (float64, bool) {
	s := strings.TrimSpace(token)
	if s == "" {
		return 0, false
	}

	negate := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") && len(s) > 2 {
		negate = true
		s = s[1 : len(s)-1]
	}

	s = stripCurrency(s)

	percent := false
	if strings.HasSuffix(s, "%") {
		percent = true
		s = strings.TrimSpace(strings.TrimSuffix(s, "%"))
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		var ok bool
		f, ok = parseMagnitude(s)
		if !ok {
			return 0, false
		}
	}

	if percent {
		f /= 100
	}
	if negate {
		f = -f
	}
	return f, true
}

// stripCurrency removes currency symbols, thousands separators, and
// interior whitespace.
func stripCurrency(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case '$', '€', '£', ',', ' ', ' ':
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// parseMagnitude handles the m/M (millions) and b/B (billions) suffixes.
// Only reached when the cleaned token did not parse directly.
func parseMagnitude(s string) (float64, bool) {
	if len(s) < 2 {
		return 0, false
	}
	mult := 0.0
	switch s[len(s)-1] {
	case 'm', 'M':
		mult = 1e6
	case 'b', 'B':
		mult = 1e9
	default:
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s[:len(s)-1]), 64)
	if err != nil {
		return 0, false
	}
	return f * mult, true
}

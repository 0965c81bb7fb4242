package matching

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds a raw label for comparison: trimmed, lowercased, with
// combining diacritical marks stripped ("Hormigón" -> "hormigon").
func Normalize(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ""
	}
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(stripper, s)
	if err != nil {
		return s
	}
	return out
}

// wordRoot returns the leading word of an already-normalized string.
func wordRoot(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// rootsEqual compares leading word roots, tolerating a singular/plural
// trailing character on either side ("pesos" vs "peso").
func rootsEqual(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	return trimTail(a) == b || a == trimTail(b)
}

func trimTail(s string) string {
	r := []rune(s)
	if len(r) < 3 {
		return s
	}
	return string(r[:len(r)-1])
}

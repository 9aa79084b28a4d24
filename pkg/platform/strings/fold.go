package strings

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold normalizes s to NFKC and applies Unicode case folding, so that
// "MAÏZE", "maïze" and the decomposed "maïze" compare equal.
func Fold(s string) string {
	return cases.Fold().String(norm.NFKC.String(s))
}

// ContainsFold reports whether substr occurs in s ignoring case. An empty
// substr always matches.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(Fold(s), Fold(substr))
}

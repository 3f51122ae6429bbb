package auth

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

var folder = cases.Fold()

// UsernameKey is the lookup form of a username. Full-width input from
// Japanese IMEs folds to the same key as its ASCII spelling.
func UsernameKey(name string) string {
	return folder.String(width.Fold.String(strings.TrimSpace(name)))
}

func validUsername(name string) bool {
	if len(name) < 6 || len(name) > 24 {
		return false
	}
	for _, r := range name {
		if !isAlnum(r) {
			return false
		}
	}
	return true
}

func validPassword(pw string) bool {
	if len(pw) < 8 || len(pw) > 100 {
		return false
	}
	var lower, upper, digit, other bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			other = true
		}
	}
	return lower && upper && digit && other
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

package lexical

import "strings"

// Tokenize lower-cases text, replaces every character outside [a-z0-9] and
// whitespace with a space, and splits on whitespace.
func Tokenize(text string) []string {
	lower := strings.ToLower(text)
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ', r == '\t', r == '\n', r == '\r', r == '\v', r == '\f':
			return r
		default:
			return ' '
		}
	}, lower)
	return strings.Fields(cleaned)
}

package schema

import (
	"regexp"
	"strings"
	"unicode"
)

var wordSeparators = regexp.MustCompile(`[_\-.\s]+`)

// Humanize turns a control name such as "first_name" or "postalCode" into a
// label ("First Name", "Postal Code").
func Humanize(name string) string {
	var words []string
	for _, chunk := range wordSeparators.Split(strings.TrimSpace(name), -1) {
		for _, word := range splitCamelCase(chunk) {
			if word == "" {
				continue
			}
			runes := []rune(strings.ToLower(word))
			runes[0] = unicode.ToUpper(runes[0])
			words = append(words, string(runes))
		}
	}
	return strings.Join(words, " ")
}

func splitCamelCase(chunk string) []string {
	var (
		words   []string
		current []rune
	)
	runes := []rune(chunk)
	for i, r := range runes {
		if i > 0 && boundary(runes[i-1], r) {
			words = append(words, string(current))
			current = current[:0:0]
		}
		current = append(current, r)
	}
	if len(current) > 0 {
		words = append(words, string(current))
	}
	return words
}

func boundary(prev, r rune) bool {
	switch {
	case unicode.IsLower(prev) && unicode.IsUpper(r):
		return true
	case unicode.IsLetter(prev) && unicode.IsDigit(r):
		return true
	case unicode.IsDigit(prev) && unicode.IsLetter(r):
		return true
	}
	return false
}

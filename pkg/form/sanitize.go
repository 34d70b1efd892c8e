package form

import (
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy

	markupPolicyOnce sync.Once
	markupPolicy     *bluemonday.Policy
)

// StripHTML removes every tag from string values.
func StripHTML(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return strings.TrimSpace(stripPolicy().Sanitize(s))
}

// SafeHTML keeps basic formatting markup and drops scripts, styles and event
// handlers.
func SafeHTML(value any) any {
	s, ok := value.(string)
	if !ok {
		return value
	}
	return strings.TrimSpace(safePolicy().Sanitize(s))
}

// TrimSpace trims surrounding whitespace from string values.
func TrimSpace(value any) any {
	if s, ok := value.(string); ok {
		return strings.TrimSpace(s)
	}
	return value
}

// Lowercase lowercases string values.
func Lowercase(value any) any {
	if s, ok := value.(string); ok {
		return strings.ToLower(s)
	}
	return value
}

func stripPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

func safePolicy() *bluemonday.Policy {
	markupPolicyOnce.Do(func() {
		policy := bluemonday.NewPolicy()
		policy.AllowElements("b", "strong", "i", "em", "u", "p", "br", "ul", "ol", "li", "code", "pre")
		policy.AllowStandardURLs()
		policy.AllowAttrs("href").OnElements("a")
		policy.RequireNoFollowOnLinks(true)
		markupPolicy = policy
	})
	return markupPolicy
}

var namedSanitizers = map[string]Sanitizer{
	"trim":      TrimSpace,
	"stripHTML": StripHTML,
	"safeHTML":  SafeHTML,
	"lowercase": Lowercase,
}

// SanitizerNamed returns the built-in sanitizer registered under name, as
// referenced from schema files.
func SanitizerNamed(name string) (Sanitizer, bool) {
	fn, ok := namedSanitizers[name]
	return fn, ok
}

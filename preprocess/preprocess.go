// Package preprocess provides value normalizers applied to declaration values
// before they are compared or indexed.
package preprocess

import (
	"strings"
	"unicode"

	"github.com/poiesic/haystack/core"
)

// Func transforms a value. Implementations must tolerate any input type and
// return values of types they do not handle unchanged.
type Func func(v any) any

// Defaults returns the preprocessors used when none are configured.
func Defaults() []Func {
	return []Func{ToString, ToLowerCase}
}

// Apply runs the preprocessors over v in order.
func Apply(v any, processors []Func) any {
	for _, p := range processors {
		v = p(v)
	}
	return v
}

// ToString renders any value as a string.
func ToString(v any) any {
	return core.ValueText(v)
}

// ToLowerCase lower-cases strings.
func ToLowerCase(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToLower(s)
	}
	return v
}

// ToUpperCase upper-cases strings.
func ToUpperCase(v any) any {
	if s, ok := v.(string); ok {
		return strings.ToUpper(s)
	}
	return v
}

// Scrub replaces everything but letters, digits and spaces with a space and
// collapses runs of whitespace, so words can be split on single spaces.
func Scrub(v any) any {
	s, ok := v.(string)
	if !ok {
		return v
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return ' '
	}, s)
	return strings.Join(strings.Fields(cleaned), " ")
}

// ScrubString is Scrub for callers that already hold a string.
func ScrubString(s string) string {
	return Scrub(s).(string)
}

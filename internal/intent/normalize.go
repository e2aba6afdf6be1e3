package intent

import (
	"strings"
	"unicode/utf8"
)

// DefaultMaxInputLength caps prompts, counted in characters.
const DefaultMaxInputLength = 4000

// Normalize validates and trims a raw prompt. Over-long prompts are rejected,
// never truncated, so every code path classifies exactly what the user sent.
// maxLen <= 0 selects DefaultMaxInputLength.
func Normalize(raw any, maxLen int) (string, error) {
	var s string
	switch v := raw.(type) {
	case string:
		s = v
	case *string:
		if v == nil {
			return "", ErrMissingInput
		}
		s = *v
	default:
		return "", ErrMissingInput
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrMissingInput
	}
	if maxLen <= 0 {
		maxLen = DefaultMaxInputLength
	}
	if n := utf8.RuneCountInString(s); n > maxLen {
		return "", &TooLongError{Length: n, Max: maxLen}
	}
	return s, nil
}

package http

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMaxInputSize is the largest string accepted in a context patch (4KB).
const DefaultMaxInputSize = 4096

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput cleans user input by enforcing size limits,
// validating UTF-8, and stripping dangerous control characters.
func SanitizeInput(input string, limit int) (string, error) {
	// We explicitly reject rather than truncate so the session context stays deterministic.
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Fast path: if no control chars, return as is.
	clean := true
	for _, r := range input {
		if unicode.IsControl(r) && !isSafeControl(r) {
			clean = false
			break
		}
	}
	if clean {
		return input, nil
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if !unicode.IsControl(r) || isSafeControl(r) {
			b.WriteRune(r)
		}
	}
	return b.String(), nil
}

func isSafeControl(r rune) bool {
	return r == '\n' || r == '\t' || r == '\r'
}

// SanitizeContext applies SanitizeInput to every string in patch, keys included,
// descending into nested maps and slices. patch is modified in place.
func SanitizeContext(patch map[string]any, limit int) error {
	for k, v := range patch {
		ck, err := SanitizeInput(k, limit)
		if err != nil {
			return fmt.Errorf("context key: %w", err)
		}
		cv, err := sanitizeValue(v, limit)
		if err != nil {
			return fmt.Errorf("context %q: %w", ck, err)
		}
		if ck != k {
			delete(patch, k)
		}
		patch[ck] = cv
	}
	return nil
}

func sanitizeValue(v any, limit int) (any, error) {
	switch val := v.(type) {
	case string:
		return SanitizeInput(val, limit)
	case map[string]any:
		return val, SanitizeContext(val, limit)
	case []any:
		for i, item := range val {
			clean, err := sanitizeValue(item, limit)
			if err != nil {
				return nil, err
			}
			val[i] = clean
		}
		return val, nil
	default:
		return v, nil
	}
}

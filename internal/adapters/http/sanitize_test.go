package http

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeInput_SizeLimit(t *testing.T) {
	limit := 16

	tests := []struct {
		name      string
		inputSize int
		wantErr   bool
	}{
		{"Under Limit", limit - 1, false},
		{"Exact Limit", limit, false},
		{"Over Limit", limit + 1, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := SanitizeInput(strings.Repeat("a", tt.inputSize), limit)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInputTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSanitizeInput_ControlChars(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"Clean", "홍길동", "홍길동"},
		{"Keeps Whitespace", "a\tb\nc\r", "a\tb\nc\r"},
		{"Strips ANSI", "\x1b[31mred\x1b[0m", "[31mred[0m"},
		{"Strips NUL and BEL", "a\x00b\x07c", "abc"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SanitizeInput(tt.input, DefaultMaxInputSize)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := SanitizeInput("bad \xff", DefaultMaxInputSize)
	assert.ErrorIs(t, err, ErrInvalidUTF8)
}

func TestSanitizeContext(t *testing.T) {
	patch := map[string]any{
		"patient_id": "P\x00-1",
		"symptoms":   []any{"fever\x07", 3.0},
		"nested":     map[string]any{"note": "ok\x1b"},
		"bad\x00key": true,
		"age":        42.0,
	}
	require.NoError(t, SanitizeContext(patch, DefaultMaxInputSize))

	assert.Equal(t, map[string]any{
		"patient_id": "P-1",
		"symptoms":   []any{"fever", 3.0},
		"nested":     map[string]any{"note": "ok"},
		"badkey":     true,
		"age":        42.0,
	}, patch)

	err := SanitizeContext(map[string]any{"note": strings.Repeat("x", 32)}, 16)
	assert.ErrorIs(t, err, ErrInputTooLarge)
	assert.ErrorContains(t, err, `context "note"`)
}

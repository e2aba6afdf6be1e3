package intent

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Run("trims", func(t *testing.T) {
		got, err := Normalize("  show blocked tasks \n", 0)
		require.NoError(t, err)
		assert.Equal(t, "show blocked tasks", got)
	})

	t.Run("pointer to string", func(t *testing.T) {
		s := " hi "
		got, err := Normalize(&s, 0)
		require.NoError(t, err)
		assert.Equal(t, "hi", got)
	})

	for name, raw := range map[string]any{
		"nil":         nil,
		"number":      42,
		"nil pointer": (*string)(nil),
		"empty":       "",
		"blank":       " \t\n ",
		"object":      map[string]any{"input": "x"},
	} {
		t.Run("missing "+name, func(t *testing.T) {
			_, err := Normalize(raw, 0)
			assert.ErrorIs(t, err, ErrMissingInput)
		})
	}

	t.Run("rejects over default cap", func(t *testing.T) {
		_, err := Normalize(strings.Repeat("a", 5000), 0)
		require.ErrorIs(t, err, ErrInputTooLong)
		var tooLong *TooLongError
		require.True(t, errors.As(err, &tooLong))
		assert.Equal(t, 5000, tooLong.Length)
		assert.Equal(t, DefaultMaxInputLength, tooLong.Max)
	})

	t.Run("accepts exactly the cap", func(t *testing.T) {
		got, err := Normalize(strings.Repeat("a", DefaultMaxInputLength), 0)
		require.NoError(t, err)
		assert.Len(t, got, DefaultMaxInputLength)
	})

	t.Run("counts characters not bytes", func(t *testing.T) {
		_, err := Normalize(strings.Repeat("é", DefaultMaxInputLength), 0)
		assert.NoError(t, err)
	})

	t.Run("length measured after trim", func(t *testing.T) {
		_, err := Normalize("   "+strings.Repeat("a", 10)+"   ", 10)
		assert.NoError(t, err)
	})

	t.Run("custom cap", func(t *testing.T) {
		_, err := Normalize("eleven char", 10)
		assert.ErrorIs(t, err, ErrInputTooLong)
	})
}

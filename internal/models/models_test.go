package models

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestTruncateError(t *testing.T) {
	t.Run("short messages pass through", func(t *testing.T) {
		assert.Equal(t, "connection reset", TruncateError("connection reset"))
	})

	t.Run("long messages cut to the column size", func(t *testing.T) {
		got := TruncateError(strings.Repeat("x", MaxErrorMessageLen+50))
		assert.Len(t, got, MaxErrorMessageLen)
	})

	t.Run("never splits a multi-byte rune", func(t *testing.T) {
		// The leading ASCII byte shifts every two-byte rune so one straddles
		// the cut point
		msg := "x" + strings.Repeat("é", MaxErrorMessageLen)
		got := TruncateError(msg)
		assert.True(t, utf8.ValidString(got))
		assert.LessOrEqual(t, len(got), MaxErrorMessageLen)
	})
}

package color

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForReader_Deterministic(t *testing.T) {
	for _, id := range []string{"", "reader-1", "someone@example.com", "💜"} {
		first := ForReader(id)
		assert.Equal(t, first, ForReader(id))
		assert.True(t, Valid(first), "color %q for %q must be in the palette", first, id)
	}
}

func TestForReader_Spreads(t *testing.T) {
	seen := map[string]bool{}
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		seen[ForReader(id)] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("teal"))
	assert.False(t, Valid("#FF0000"))
	assert.False(t, Valid(""))
}

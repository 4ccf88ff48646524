package randx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocIDUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := DocID()
		assert.True(t, IsValidDocID(id))

		_, dup := seen[id]
		assert.False(t, dup, "generated identities must not collide")
		seen[id] = struct{}{}
	}
}

func TestIsValidDocID(t *testing.T) {
	assert.True(t, IsValidDocID("123e4567-e89b-12d3-a456-426614174000"))
	assert.False(t, IsValidDocID(""))
	assert.False(t, IsValidDocID("not-a-uuid"))
	assert.False(t, IsValidDocID("123e4567-e89b-12d3-a456"))
}

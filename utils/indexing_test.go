package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIndex(t *testing.T) {
	r := NewRange(2, 5)
	assert.Equal(t, Index{2, 3, 4, 5}, r)
	assert.True(t, r.Contains(4))
	assert.False(t, r.Contains(6))

	I := Index{5, 1, 3}
	I.Sort()
	assert.Equal(t, Index{1, 3, 5}, I)

	m := I.ToMap()
	_, ok := m[3]
	assert.True(t, ok)
	_, ok = m[2]
	assert.False(t, ok)
}

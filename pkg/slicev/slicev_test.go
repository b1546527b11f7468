package slicev

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestROReadsWithoutAliasing(t *testing.T) {
	backing := make([]int, 0, 8)
	backing = append(backing, 1, 2, 3)

	view := NewRO(backing)
	require.Equal(t, 3, view.Len())
	assert.Equal(t, 2, view.At(1))

	last, ok := view.Last()
	require.True(t, ok)
	assert.Equal(t, 3, last)

	clone := view.Clone()
	clone[0] = 42
	assert.Equal(t, 1, view.At(0))

	// growing the owner's slice must not show up in an existing view
	backing = append(backing, 4)
	assert.Equal(t, 3, view.Len())
	assert.Len(t, backing, 4)
}

func TestROEmpty(t *testing.T) {
	view := NewRO[string](nil)

	_, ok := view.Last()
	assert.False(t, ok)
	assert.Equal(t, 0, view.Len())
	assert.Empty(t, view.Clone())
}

func TestROAllStopsEarly(t *testing.T) {
	view := NewRO([]string{"a", "b", "c"})

	var seen []string
	for i, s := range view.All() {
		seen = append(seen, s)
		if i == 1 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, seen)

	dst := make([]string, 2)
	assert.Equal(t, 2, view.CopyTo(dst))
	assert.Equal(t, []string{"a", "b"}, dst)
}

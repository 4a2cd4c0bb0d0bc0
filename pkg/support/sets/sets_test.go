// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet(t *testing.T) {
	s := MakeWith("smiles", "y1", "y2")
	require.Len(t, s, 3)
	assert.True(t, s.Has("y1"))
	assert.False(t, s.Has("y3"))

	s2 := MakeWith("y2", "y1", "smiles")
	assert.True(t, s.Equal(s2))
	s2.Insert("y3")
	assert.False(t, s.Equal(s2))
	assert.Equal(t, []string{"y3"}, Sorted(s2.Sub(s)))
	assert.Equal(t, []string{"smiles", "y1", "y2"}, Sorted(s2.Intersect(s)))
}

func TestIntersectDisjoint(t *testing.T) {
	train := MakeWith(0, 2, 4)
	val := MakeWith(1, 3)
	assert.Empty(t, train.Intersect(val))
	assert.Empty(t, Make[int](10))
}

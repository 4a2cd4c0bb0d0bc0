// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xslices

import (
	"flag"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlices(t *testing.T) {
	assert.Equal(t, []float64{3, 4}, Iota(3.0, 2))
	assert.Equal(t, []int{}, Iota(0, 0))
	assert.Equal(t, []string{"x", "x", "x"}, SliceWithValue(3, "x"))
	assert.Equal(t, []string{"1", "2"}, Map([]int{1, 2}, strconv.Itoa))
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(map[string]int{"c": 0, "a": 1, "b": 2}))
	assert.Len(t, Keys(map[int]bool{1: true, 2: false}), 2)
}

type stage int

func (s stage) String() string { return "stage" + strconv.Itoa(int(s)) }

func TestFlag(t *testing.T) {
	stages := Flag("test_stages", []stage{1}, "stages", func(v string) (stage, error) {
		n, err := strconv.Atoi(v)
		return stage(n), err
	})
	assert.Equal(t, []stage{1}, *stages)
	require.NoError(t, flag.Set("test_stages", "2,3"))
	assert.Equal(t, []stage{2, 3}, *stages)
	assert.Equal(t, "stage2,stage3", flag.Lookup("test_stages").Value.String())
	require.Error(t, flag.Set("test_stages", "2,x"))
	require.NoError(t, flag.Set("test_stages", ""))
	assert.Empty(t, *stages)
}

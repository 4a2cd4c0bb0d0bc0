// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splits

import (
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubsample(t *testing.T) {
	rows := Subsample(10, 3, 0, 42)
	require.Len(t, rows, 3)
	assert.True(t, slices.IsSorted(rows))
	assert.Equal(t, rows, Subsample(10, 3, 0, 42))
	for _, r := range rows {
		assert.True(t, r >= 0 && r < 10)
	}

	assert.Equal(t, []int{0, 1, 2, 3}, Subsample(4, 20, 0, 1))
	assert.Len(t, Subsample(10, 0, 0.25, 1), 3)
	assert.Len(t, Subsample(10, 0, 0.5, 1), 5)
	assert.Len(t, Subsample(10, 0, 0, 1), 10)
	assert.Empty(t, Subsample(0, 5, 0, 1))
}

func assertPartition(t *testing.T, split *Split, size int) {
	t.Helper()
	var all []int
	for _, list := range [][]int{split.Train, split.Val, split.Test} {
		assert.True(t, slices.IsSorted(list))
		all = append(all, list...)
	}
	slices.Sort(all)
	require.Len(t, all, size)
	for ii, v := range all {
		require.Equal(t, ii, v)
	}
}

func TestResolveRandom(t *testing.T) {
	cfg := Config{Val: 0.1, Test: 0.2, Seed: 7}
	split, err := Resolve(cfg, 100, nil)
	require.NoError(t, err)
	assert.Len(t, split.Train, 70)
	assert.Len(t, split.Val, 10)
	assert.Len(t, split.Test, 20)
	assertPartition(t, split, 100)

	again, err := Resolve(cfg, 100, nil)
	require.NoError(t, err)
	assert.Equal(t, split, again)
	cfg.Seed = 8
	other, err := Resolve(cfg, 100, nil)
	require.NoError(t, err)
	assert.NotEqual(t, split.Test, other.Test)

	for _, size := range []int{1, 2, 3, 10, 97} {
		for _, fractions := range [][2]float64{{0.1, 0.2}, {0.5, 0.5}, {0, 1}, {1, 0}, {0.3, 0}, {0.01, 0.01}} {
			for seed := range uint64(20) {
				cfg := Config{Val: fractions[0], Test: fractions[1], Seed: seed}
				split, err := Resolve(cfg, size, nil)
				require.NoError(t, err, "config %+v", cfg)
				assertPartition(t, split, size)
				if fractions[0]+fractions[1] == 1 {
					assert.Empty(t, split.Train, "config %+v, size %d", cfg, size)
				}
			}
		}
	}

	// No test: all the holdout goes to validation.
	split, err = Resolve(Config{Val: 0.25}, 10, nil)
	require.NoError(t, err)
	assert.Len(t, split.Train, 7)
	assert.Len(t, split.Val, 3)
	assert.Empty(t, split.Test)
	assertPartition(t, split, 10)

	split, err = Resolve(Config{}, 5, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, split.Train)
	assert.Empty(t, split.Val)
	assert.Empty(t, split.Test)

	split, err = Resolve(Config{Val: 0.5, Test: 0.5}, 0, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, split.Len())

	for _, cfg := range []Config{{Val: -0.1}, {Test: 1.5}, {Val: 0.6, Test: 0.6}} {
		_, err = Resolve(cfg, 10, nil)
		require.Error(t, err)
		assert.True(t, errors.Is(err, data.ErrConfiguration))
	}

	_, err = Resolve(Config{}, 3, []int{1, 2})
	require.Error(t, err)
}

func TestCheckDisjoint(t *testing.T) {
	require.NoError(t, (&Split{Train: []int{0, 3}, Val: []int{1}, Test: []int{2}}).checkDisjoint())

	err := (&Split{Train: []int{0, 4, 5}, Val: []int{1}, Test: []int{5, 4}}).checkDisjoint()
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrConfiguration))
	assert.Contains(t, err.Error(), "row 4 is both in train and test")

	err = (&Split{Train: []int{0}, Val: []int{2, 2}}).checkDisjoint()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "val has repeated rows")
}

func TestResolveExternalCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splits.csv")
	require.NoError(t, os.WriteFile(path, []byte("train,val,test\n0,5,9\n2,7,\n3,,\n4,,\n"), 0o644))
	sampleIdx := []int{0, 2, 3, 5, 7, 9}
	split, err := Resolve(Config{ExternalPath: path}, len(sampleIdx), sampleIdx)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, split.Train)
	assert.Equal(t, []int{3, 4}, split.Val)
	assert.Equal(t, []int{5}, split.Test)

	_, err = Resolve(Config{ExternalPath: path, Names: []string{"train", "valid", "test"}}, 6, sampleIdx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrNotFound))

	_, err = Resolve(Config{ExternalPath: filepath.Join(t.TempDir(), "missing.csv")}, 6, sampleIdx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrNotFound))
}

func TestResolveExternalMapping(t *testing.T) {
	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "splits.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"train": [9, 0, 4], "val": [2], "test": []}`), 0o644))
	split, err := Resolve(Config{ExternalPath: jsonPath}, 10, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 4, 9}, split.Train)
	assert.Equal(t, []int{2}, split.Val)
	assert.Empty(t, split.Test)

	// Positions follow the order of the sample indices values.
	split, err = Resolve(Config{ExternalPath: jsonPath}, 4, []int{4, 9, 0, 2})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 0, 1}, split.Train)
	assert.Equal(t, []int{3}, split.Val)

	yamlPath := filepath.Join(dir, "splits.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("fit: [0, 1]\nvalid: [2]\nheldout: [3]\n"), 0o644))
	split, err = Resolve(Config{ExternalPath: yamlPath, Names: []string{"fit", "valid", "heldout"}}, 4, nil)
	require.NoError(t, err)
	assert.Equal(t, &Split{Train: []int{0, 1}, Val: []int{2}, Test: []int{3}}, split)

	overlapPath := filepath.Join(dir, "overlap.yaml")
	require.NoError(t, os.WriteFile(overlapPath, []byte("train: [0, 1]\nval: [1]\ntest: []\n"), 0o644))
	_, err = Resolve(Config{ExternalPath: overlapPath}, 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrConfiguration))

	_, err = Resolve(Config{ExternalPath: yamlPath}, 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrNotFound))

	_, err = Resolve(Config{ExternalPath: filepath.Join(dir, "splits.pt")}, 4, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrUnsupportedFormat))
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package splits subsamples task tables and splits them into train, validation and test sets, either at
// random (seeded) or from an external file of indices.
package splits

import (
	"math"
	"math/rand/v2"
	"slices"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultNames of the splits in external split files.
var DefaultNames = []string{"train", "val", "test"}

// Config of the split of one task.
type Config struct {
	// Val and Test are the fractions of the rows held out for validation and test, used for random splits.
	Val  float64 `yaml:"split_val"`
	Test float64 `yaml:"split_test"`

	// Seed of the random split.
	Seed uint64 `yaml:"split_seed"`

	// ExternalPath of a file with the indices (original row positions) of each split. If set, Val and Test
	// are ignored. See Resolve for the supported formats.
	ExternalPath string `yaml:"splits_path,omitempty"`

	// Names of the train, val and test splits in the external file. Defaults to DefaultNames.
	Names []string `yaml:"split_names,omitempty"`
}

// Validate returns a data.ErrConfiguration for out of range fractions or a wrong number of split names.
func (c Config) Validate() error {
	if c.ExternalPath != "" {
		if c.Names != nil && len(c.Names) != 3 {
			return data.Configurationf("split_names must have 3 names (train, val and test), got %q", c.Names)
		}
		return nil
	}
	if c.Val < 0 || c.Val > 1 || c.Test < 0 || c.Test > 1 {
		return data.Configurationf("split fractions must be in [0, 1], got split_val=%g and split_test=%g", c.Val, c.Test)
	}
	if c.Val+c.Test > 1 {
		return data.Configurationf("split_val + split_test must be <= 1, got %g + %g", c.Val, c.Test)
	}
	return nil
}

// Split of a task, as positions into the (subsampled) task rows.
type Split struct {
	Train, Val, Test []int
}

// Subsample selects the rows of a table with n rows to keep: count > 0 keeps min(count, n) random rows,
// otherwise fraction > 0 keeps round(fraction*n) random rows, otherwise all rows are kept.
// The returned row positions are sorted.
func Subsample(n int, count int, fraction float64, seed uint64) []int {
	var keep int
	switch {
	case count > 0:
		keep = min(count, n)
	case fraction > 0:
		keep = min(int(math.Round(fraction*float64(n))), n)
	default:
		keep = n
	}
	var rows []int
	if keep == n {
		rows = make([]int, n)
		for ii := range rows {
			rows[ii] = ii
		}
		return rows
	}
	rows = newRNG(seed).Perm(n)[:keep]
	slices.Sort(rows)
	klog.V(1).Infof("subsampled %d out of %d rows", keep, n)
	return rows
}

func newRNG(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Resolve splits the rows of a task in train, validation and test.
//
// size is the number of rows of the task after subsampling and sampleIdx holds their original row
// positions (nil means 0..size-1). Returned indices are positions into the subsampled rows, sorted.
//
// For random splits, a holdout of ceil((Val+Test)*size) rows is taken from a seeded permutation, and the
// test set takes ceil(Test/(Val+Test)*holdout) rows of it. With Test == 0 the whole holdout goes to
// validation.
//
// External split files list original row positions per split:
//
//   - ".csv" or ".tsv" (optionally compressed): one column per split name, empty cells are ignored.
//   - ".json", ".yaml" or ".yml": a mapping from split name to a list of indices.
//
// Indices not in sampleIdx (e.g. removed by subsampling) are dropped.
func Resolve(cfg Config, size int, sampleIdx []int) (*Split, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if sampleIdx != nil && len(sampleIdx) != size {
		return nil, errors.Errorf("split of %d rows given %d sample indices", size, len(sampleIdx))
	}
	if cfg.ExternalPath == "" {
		return randomSplit(cfg, size), nil
	}

	if sampleIdx == nil {
		sampleIdx = make([]int, size)
		for ii := range sampleIdx {
			sampleIdx[ii] = ii
		}
	}
	names := cfg.Names
	if names == nil {
		names = DefaultNames
	}
	lists, err := readExternal(cfg.ExternalPath, names)
	if err != nil {
		return nil, errors.WithMessagef(err, "reading splits from %q", cfg.ExternalPath)
	}
	split := &Split{}
	for ii, target := range []*[]int{&split.Train, &split.Val, &split.Test} {
		var dropped int
		*target, dropped = intersect(sampleIdx, lists[ii])
		if dropped > 0 {
			klog.V(1).Infof("split %q of %q: dropped %d indices not in the sampled rows", names[ii], cfg.ExternalPath, dropped)
		}
	}
	if err := split.checkDisjoint(); err != nil {
		return nil, errors.WithMessagef(err, "splits from %q", cfg.ExternalPath)
	}
	return split, nil
}

func randomSplit(cfg Config, size int) *Split {
	positions := make([]int, size)
	for ii := range positions {
		positions[ii] = ii
	}
	split := &Split{Train: positions}
	if cfg.Val+cfg.Test <= 0 || size == 0 {
		split.Val, split.Test = []int{}, []int{}
		return split
	}
	permutation := newRNG(cfg.Seed).Perm(size)
	holdout := min(size, int(math.Ceil((cfg.Val+cfg.Test)*float64(size)-1e-9)))
	numTest := 0
	if cfg.Test > 0 {
		numTest = min(holdout, int(math.Ceil(cfg.Test/(cfg.Val+cfg.Test)*float64(holdout)-1e-9)))
	}
	split.Train = permutation[holdout:]
	split.Test = permutation[:numTest]
	split.Val = permutation[numTest:holdout]
	for _, list := range [][]int{split.Train, split.Val, split.Test} {
		slices.Sort(list)
	}
	return split
}

// intersect returns the positions in sampleIdx of the values in wanted, sorted by value, and the number of
// distinct wanted values not found.
func intersect(sampleIdx []int, wanted []int) (positions []int, dropped int) {
	want := sets.MakeWith(wanted...)
	positions = []int{}
	for pos, v := range sampleIdx {
		if want.Has(v) {
			positions = append(positions, pos)
			delete(want, v)
		}
	}
	slices.SortFunc(positions, func(a, b int) int { return sampleIdx[a] - sampleIdx[b] })
	return positions, len(want)
}

func (s *Split) checkDisjoint() error {
	lists := [][]int{s.Train, s.Val, s.Test}
	partitions := make([]sets.Set[int], len(lists))
	for ii, list := range lists {
		partitions[ii] = sets.MakeWith(list...)
		if len(partitions[ii]) != len(list) {
			return data.Configurationf("%s has repeated rows", DefaultNames[ii])
		}
		for jj := range ii {
			if common := partitions[jj].Intersect(partitions[ii]); len(common) > 0 {
				return data.Configurationf("row %d is both in %s and %s",
					sets.Sorted(common)[0], DefaultNames[jj], DefaultNames[ii])
			}
		}
	}
	return nil
}

// Len returns the total number of indices in the split.
func (s *Split) Len() int {
	return len(s.Train) + len(s.Val) + len(s.Test)
}

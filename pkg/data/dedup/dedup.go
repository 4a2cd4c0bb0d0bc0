// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package dedup maps molecules to canonical identifiers and finds the unique ones, so each molecule is
// featurized once no matter how many rows (or tasks) reference it.
package dedup

import (
	"slices"
	"strings"

	"github.com/gomlx/molpipe/internal/workerspool"
	"github.com/gomlx/molpipe/pkg/chem/smiles"
	"k8s.io/klog/v2"
)

// InvalidPrefix prefixes the identifier of molecules that can't be parsed: they are identified by their raw
// text.
const InvalidPrefix = "invalid:"

// CanonicalID returns the identifier of a molecule string: its canonical SMILES, or InvalidPrefix followed
// by the raw string if it can't be parsed. Such molecules still deduplicate by text and later fail
// featurization.
func CanonicalID(molecule string) string {
	canonical, err := smiles.Canonical(molecule)
	if err != nil {
		return InvalidPrefix + molecule
	}
	return canonical
}

// UniqueIDs returns the CanonicalID of each molecule.
//
// Work is split in batches of batchSize molecules (evenly across workers if batchSize <= 0) run with up to
// parallelism goroutines: 0 runs inline and a negative value uses all CPUs.
func UniqueIDs(molecules []string, parallelism, batchSize int) []string {
	ids := make([]string, len(molecules))
	pool := workerspool.New(parallelism)
	pool.ForEachBatch(len(molecules), batchSize, func(start, end int) {
		for ii := start; ii < end; ii++ {
			ids[ii] = CanonicalID(molecules[ii])
		}
	})
	numInvalid := 0
	for _, id := range ids {
		if strings.HasPrefix(id, InvalidPrefix) {
			numInvalid++
		}
	}
	klog.V(1).Infof("dedup: canonicalized %d molecules (%d could not be parsed)", len(molecules), numInvalid)
	return ids
}

// Unique returns the sorted unique ids, the position of the first occurrence of each unique id in ids, and
// for each element of ids the position of its value in unique. So ids[i] == unique[inverse[i]] and
// ids[firstIndex[j]] == unique[j].
func Unique(ids []string) (unique []string, firstIndex []int, inverse []int) {
	order := make([]int, len(ids))
	for ii := range order {
		order[ii] = ii
	}
	// Stable, so the first occurrence of each id comes first.
	slices.SortStableFunc(order, func(a, b int) int {
		switch {
		case ids[a] < ids[b]:
			return -1
		case ids[a] > ids[b]:
			return 1
		}
		return 0
	})
	inverse = make([]int, len(ids))
	for ii, idx := range order {
		if ii == 0 || ids[idx] != ids[order[ii-1]] {
			unique = append(unique, ids[idx])
			firstIndex = append(firstIndex, idx)
		}
		inverse[idx] = len(unique) - 1
	}
	return unique, firstIndex, inverse
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datasets holds the in-memory datasets of the pipeline: SingleTask, the rows of one task with their
// features, and Multitask, one item per molecule with the labels of every task that includes it.
package datasets

import (
	"fmt"

	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/pkg/errors"
)

// SingleTask holds the rows of one task.
//
// Features are shared: each row points (FeatureIdx) to one of the features of the unique molecules, and
// subsets or other tasks reuse the same feature objects. No row points to a failed (nil) feature.
type SingleTask struct {
	Features   []*featurize.MoleculeFeature
	FeatureIdx []int

	// Labels holds one row of values per row of the task.
	Labels [][]float32

	// IDs are the canonical molecule identifiers and SMILES the original molecule strings, per row.
	IDs    []string
	SMILES []string

	// Weights is nil or holds one row of weights per row of the task.
	Weights [][]float32
}

// NewSingleTask creates a SingleTask, checking that all the per-row slices have the same length and that
// every row points to a valid feature.
func NewSingleTask(features []*featurize.MoleculeFeature, featureIdx []int, labels [][]float32,
	ids, smiles []string, weights [][]float32) (*SingleTask, error) {
	n := len(featureIdx)
	if len(labels) != n || len(ids) != n || len(smiles) != n {
		return nil, errors.Errorf("single task rows mismatch: %d features, %d labels, %d ids and %d smiles",
			n, len(labels), len(ids), len(smiles))
	}
	if weights != nil && len(weights) != n {
		return nil, errors.Errorf("single task has %d rows but %d weights", n, len(weights))
	}
	for row, idx := range featureIdx {
		if idx < 0 || idx >= len(features) {
			return nil, errors.Errorf("row %d points to feature %d, but there are only %d features", row, idx, len(features))
		}
		if features[idx] == nil {
			return nil, errors.Errorf("row %d (%q) points to a failed feature", row, smiles[row])
		}
	}
	return &SingleTask{
		Features:   features,
		FeatureIdx: featureIdx,
		Labels:     labels,
		IDs:        ids,
		SMILES:     smiles,
		Weights:    weights,
	}, nil
}

// Len returns the number of rows.
func (d *SingleTask) Len() int { return len(d.FeatureIdx) }

// At returns the feature, labels, molecule id and weights (nil if there are no weights) of row i.
func (d *SingleTask) At(i int) (feature *featurize.MoleculeFeature, label []float32, id string, weight []float32) {
	feature = d.Features[d.FeatureIdx[i]]
	label = d.Labels[i]
	id = d.IDs[i]
	if d.Weights != nil {
		weight = d.Weights[i]
	}
	return
}

// LabelWidth returns the number of label values per row, 0 if the dataset is empty.
func (d *SingleTask) LabelWidth() int {
	if len(d.Labels) == 0 {
		return 0
	}
	return len(d.Labels[0])
}

// Subset returns a dataset with the given rows, in the given order. Features are shared, not copied.
func (d *SingleTask) Subset(indices []int) *SingleTask {
	sub := &SingleTask{
		Features:   d.Features,
		FeatureIdx: make([]int, len(indices)),
		Labels:     make([][]float32, len(indices)),
		IDs:        make([]string, len(indices)),
		SMILES:     make([]string, len(indices)),
	}
	if d.Weights != nil {
		sub.Weights = make([][]float32, len(indices))
	}
	for ii, row := range indices {
		sub.FeatureIdx[ii] = d.FeatureIdx[row]
		sub.Labels[ii] = d.Labels[row]
		sub.IDs[ii] = d.IDs[row]
		sub.SMILES[ii] = d.SMILES[row]
		if d.Weights != nil {
			sub.Weights[ii] = d.Weights[row]
		}
	}
	return sub
}

// String implements fmt.Stringer.
func (d *SingleTask) String() string {
	return fmt.Sprintf("SingleTask(rows=%d, label_width=%d, weights=%v)", d.Len(), d.LabelWidth(), d.Weights != nil)
}

// FilterFailed finds the rows whose feature (features[featureIdx[row]]) failed, that is, is nil.
//
// It returns the rows kept, in order, and for each original row its position among the kept rows, or -1 if
// it was dropped. Use Translate to convert split indices with the mapping.
func FilterFailed(features []*featurize.MoleculeFeature, featureIdx []int) (kept []int, mapping []int) {
	kept = make([]int, 0, len(featureIdx))
	mapping = make([]int, len(featureIdx))
	for row, idx := range featureIdx {
		if features[idx] == nil {
			mapping[row] = -1
			continue
		}
		mapping[row] = len(kept)
		kept = append(kept, row)
	}
	return kept, mapping
}

// Translate converts pre-filter row positions to post-filter positions with the mapping returned by
// FilterFailed, dropping the rows that were filtered out.
func Translate(indices []int, mapping []int) []int {
	translated := make([]int, 0, len(indices))
	for _, row := range indices {
		if newRow := mapping[row]; newRow >= 0 {
			translated = append(translated, newRow)
		}
	}
	return translated
}

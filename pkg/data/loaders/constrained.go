// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package loaders

import (
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/collate"
	"github.com/gomlx/molpipe/pkg/data/datasets"
)

// ConstrainedShapeLoader yields batches with static shapes: every batch has BatchSize/BatchSizePerPack
// packs, each padded to the largest graph of the dataset times BatchSizePerPack. The graph inputs are
// stacked as [numPacks, ...] tensors.
//
// Labels are not padded: the last batch of an epoch may have fewer label rows, unless DropLast is set.
type ConstrainedShapeLoader struct {
	*StandardLoader
	numPacks int
}

// NewConstrainedShapeLoader creates a loader that packs the batches.
//
// config.BatchSizePerPack must divide config.BatchSize. The maximum number of nodes and edges per graph
// are taken from the collator configuration, or from the dataset if not set.
func NewConstrainedShapeLoader(name string, dataset *datasets.Multitask, collator *collate.Collator, config Config) (*ConstrainedShapeLoader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	perPack := config.BatchSizePerPack
	if perPack <= 0 {
		return nil, data.Configurationf("loader %q: constrained shapes require batch_size_per_pack > 0", name)
	}
	if config.BatchSize%perPack != 0 {
		return nil, data.Configurationf("loader %q: batch_size_per_pack (%d) must divide batch_size (%d)",
			name, perPack, config.BatchSize)
	}
	collateConfig := collator.Config()
	maxNodes, maxEdges := collateConfig.MaxNodesPerGraph, collateConfig.MaxEdgesPerGraph
	if maxNodes <= 0 {
		maxNodes = max(dataset.MaxNumNodes(), 1)
		maxEdges = dataset.MaxNumEdges()
	}
	numPacks := config.BatchSize / perPack
	packed, err := collator.WithPacking(perPack, maxNodes, maxEdges, numPacks)
	if err != nil {
		return nil, err
	}
	l, err := NewStandardLoader(name, dataset, packed, config)
	if err != nil {
		return nil, err
	}
	return &ConstrainedShapeLoader{StandardLoader: l, numPacks: numPacks}, nil
}

// NumPacks returns the number of packs of every batch.
func (l *ConstrainedShapeLoader) NumPacks() int { return l.numPacks }

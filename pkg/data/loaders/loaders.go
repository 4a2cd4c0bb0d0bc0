// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package loaders iterates over a Multitask dataset in collated batches.
//
// Loaders implement the method set of GoMLX's train.Dataset (Name, Reset, Yield), so they can be fed
// directly to a GoMLX training loop.
package loaders

import (
	"math/rand/v2"
	"runtime"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/collate"
	"github.com/gomlx/molpipe/pkg/data/datasets"
)

// BatchLoader yields the batches of one epoch, and io.EOF at its end.
type BatchLoader interface {
	// Name of the loader, usually the name of the stage it serves.
	Name() string

	// Reset restarts the epoch. If Shuffle is configured, the new epoch has a new order.
	Reset()

	// Yield the next batch: spec is the *collate.Batch, inputs are its graph tensors
	// (collate.Batch.Inputs) and labels its label tensors in sorted task order.
	// At the end of the epoch it returns io.EOF.
	Yield() (spec any, inputs, labels []*tensors.Tensor, err error)

	// Len is the number of batches per epoch.
	Len() int

	// Done stops background workers. The loader can't be used afterward.
	Done()
}

// Kinds of loaders.
const (
	KindStandard         = "standard"
	KindConstrainedShape = "constrained_shape"
)

// Config of a loader.
type Config struct {
	BatchSize int  `yaml:"batch_size"`
	Shuffle   bool `yaml:"shuffle"`

	// NumWorkers collating batches in parallel. -1 uses runtime.GOMAXPROCS(0), 0 collates in Yield, in order.
	NumWorkers int `yaml:"num_workers"`

	// PinMemory doubles the number of batches prefetched by the workers.
	PinMemory bool `yaml:"pin_memory"`

	// PersistentWorkers keeps the worker goroutines across epochs, instead of starting them at every Reset.
	PersistentWorkers bool `yaml:"persistent_workers"`

	// Seed of the shuffling.
	Seed uint64 `yaml:"seed"`

	// DropLast drops the last batch of the epoch if it is smaller than BatchSize.
	DropLast bool `yaml:"drop_last"`

	// BatchSizePerPack is the number of graphs per pack. Only used by ConstrainedShapeLoader.
	BatchSizePerPack int `yaml:"batch_size_per_pack"`
}

// Validate returns a data.ErrConfiguration for invalid values.
func (c Config) Validate() error {
	if c.BatchSize <= 0 {
		return data.Configurationf("batch_size must be > 0, got %d", c.BatchSize)
	}
	if c.NumWorkers < -1 {
		return data.Configurationf("num_workers must be >= -1, got %d", c.NumWorkers)
	}
	if c.BatchSizePerPack < 0 {
		return data.Configurationf("batch_size_per_pack must be >= 0, got %d", c.BatchSizePerPack)
	}
	return nil
}

func (c Config) numWorkers() int {
	if c.NumWorkers < 0 {
		return runtime.GOMAXPROCS(0)
	}
	return c.NumWorkers
}

// prefetch is the number of batches queued ahead of Yield.
func (c Config) prefetch() int {
	n := max(c.numWorkers(), 1)
	if c.PinMemory {
		n *= 2
	}
	return n
}

// New creates a loader of the given kind: KindStandard (or "") or KindConstrainedShape.
func New(kind, name string, dataset *datasets.Multitask, collator *collate.Collator, config Config) (BatchLoader, error) {
	switch kind {
	case "", KindStandard:
		return NewStandardLoader(name, dataset, collator, config)
	case KindConstrainedShape:
		return NewConstrainedShapeLoader(name, dataset, collator, config)
	}
	return nil, data.Configurationf("unknown loader %q, valid values are %q", kind,
		[]string{KindStandard, KindConstrainedShape})
}

// epochBatches returns the item indices of each batch of an epoch.
func epochBatches(numItems int, config Config, rng *rand.Rand) [][]int {
	order := make([]int, numItems)
	for ii := range order {
		order[ii] = ii
	}
	if config.Shuffle {
		rng.Shuffle(numItems, func(i, j int) { order[i], order[j] = order[j], order[i] })
	}
	var batches [][]int
	for start := 0; start < numItems; start += config.BatchSize {
		end := min(start+config.BatchSize, numItems)
		if end-start < config.BatchSize && config.DropLast {
			break
		}
		batches = append(batches, order[start:end])
	}
	return batches
}

func numBatches(numItems int, config Config) int {
	if config.DropLast {
		return numItems / config.BatchSize
	}
	return (numItems + config.BatchSize - 1) / config.BatchSize
}

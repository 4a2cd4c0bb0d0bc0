// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package loaders

import (
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/molpipe/pkg/data/collate"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/support/xsync"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// StandardLoader collates batches of a Multitask dataset.
//
// With NumWorkers > 0 batches are collated by worker goroutines, up to Config.prefetch batches ahead
// of Yield. Batches are yielded in the epoch order, whatever the number of workers.
//
// It is not safe for concurrent use: Yield, Reset and Done should be called from one goroutine.
// To avoid leaking goroutines, call Done when finished.
type StandardLoader struct {
	name     string
	dataset  *datasets.Multitask
	collator *collate.Collator
	config   Config
	rng      *rand.Rand
	epoch    int
	done     bool

	// Used when there are no workers.
	batches [][]int
	next    int

	// impl is nil if there are no workers.
	impl *loaderImpl
}

var _ BatchLoader = (*StandardLoader)(nil)

type yieldUnit struct {
	spec   *collate.Batch
	inputs []*tensors.Tensor
	labels []*tensors.Tensor
	err    error
}

type job struct {
	indices []int
	result  chan yieldUnit
}

// loaderImpl holds the worker goroutines. It doesn't point back to the StandardLoader, so garbage
// collecting the loader stops the goroutines.
type loaderImpl struct {
	dataset    *datasets.Multitask
	collator   *collate.Collator
	numWorkers int
	prefetch   int
	persistent bool

	// jobs feeds the workers. If persistent, it lives until Done, otherwise it is closed at the end of
	// each epoch.
	jobs chan job

	// pending holds the result channel of each batch, in epoch order.
	pending   chan chan yieldUnit
	stopEpoch chan struct{}
	workers   *xsync.DynamicWaitGroup
}

// NewStandardLoader creates a loader over the dataset and starts its first epoch.
func NewStandardLoader(name string, dataset *datasets.Multitask, collator *collate.Collator, config Config) (*StandardLoader, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	l := &StandardLoader{
		name:     name,
		dataset:  dataset,
		collator: collator,
		config:   config,
		rng:      rand.New(rand.NewPCG(config.Seed, config.Seed^0x9e3779b97f4a7c15)),
	}
	if numWorkers := config.numWorkers(); numWorkers > 0 {
		impl := &loaderImpl{
			dataset:    dataset,
			collator:   collator,
			numWorkers: numWorkers,
			prefetch:   config.prefetch(),
			persistent: config.PersistentWorkers,
			workers:    xsync.NewDynamicWaitGroup(),
		}
		if impl.persistent {
			impl.jobs = make(chan job)
			impl.startWorkers(impl.jobs)
		}
		l.impl = impl
		runtime.SetFinalizer(l, func(l *StandardLoader) {
			if l.impl != nil {
				go l.impl.stop()
				l.impl = nil
			}
		})
	}
	l.startEpoch()
	klog.V(1).Infof("loader %q: %d items, %d batches of %d, %d workers", name, dataset.Len(), l.Len(),
		config.BatchSize, config.numWorkers())
	return l, nil
}

// Name implements BatchLoader and train.Dataset.
func (l *StandardLoader) Name() string { return l.name }

// ShortName implements train.HasShortName.
func (l *StandardLoader) ShortName() string {
	if len(l.name) <= 5 {
		return l.name
	}
	return l.name[:5]
}

// Config returns the loader configuration.
func (l *StandardLoader) Config() Config { return l.config }

// Collator used to build the batches.
func (l *StandardLoader) Collator() *collate.Collator { return l.collator }

// Dataset being iterated.
func (l *StandardLoader) Dataset() *datasets.Multitask { return l.dataset }

// Epoch returns the number of times the loader was reset.
func (l *StandardLoader) Epoch() int { return l.epoch }

// Len implements BatchLoader.
func (l *StandardLoader) Len() int {
	return numBatches(l.dataset.Len(), l.config)
}

// String implements fmt.Stringer.
func (l *StandardLoader) String() string {
	return fmt.Sprintf("%s loader: %d batches of %d items from %s", l.name, l.Len(), l.config.BatchSize, l.dataset)
}

func (l *StandardLoader) startEpoch() {
	batches := epochBatches(l.dataset.Len(), l.config, l.rng)
	if l.impl == nil {
		l.batches, l.next = batches, 0
		return
	}
	l.impl.startEpoch(batches)
}

// Reset implements BatchLoader and train.Dataset.
func (l *StandardLoader) Reset() {
	if l.done {
		klog.Warningf("loader %q: Reset called after Done", l.name)
		return
	}
	if l.impl != nil {
		l.impl.stopCurrentEpoch()
	}
	l.epoch++
	l.startEpoch()
}

// Yield implements BatchLoader and train.Dataset: spec is the *collate.Batch.
func (l *StandardLoader) Yield() (spec any, inputs, labels []*tensors.Tensor, err error) {
	if l.done {
		return nil, nil, nil, errors.Errorf("loader %q: Yield called after Done", l.name)
	}
	var unit yieldUnit
	if l.impl == nil {
		if l.next >= len(l.batches) {
			return nil, nil, nil, io.EOF
		}
		unit = collateUnit(l.dataset, l.collator, l.batches[l.next])
		l.next++
	} else {
		result, ok := <-l.impl.pending
		if !ok {
			return nil, nil, nil, io.EOF
		}
		unit = <-result
	}
	if unit.err != nil {
		return nil, nil, nil, errors.WithMessagef(unit.err, "loader %q, epoch %d", l.name, l.epoch)
	}
	return unit.spec, unit.inputs, unit.labels, nil
}

// Done implements BatchLoader: it stops the workers and waits for them to exit.
func (l *StandardLoader) Done() {
	l.done = true
	if l.impl != nil {
		impl := l.impl
		l.impl = nil
		impl.stop()
		impl.workers.Wait()
	}
	l.batches, l.next = nil, 0
}

func collateUnit(dataset *datasets.Multitask, collator *collate.Collator, indices []int) (unit yieldUnit) {
	items := make([]*datasets.Item, len(indices))
	for ii, idx := range indices {
		items[ii] = dataset.Items[idx]
	}
	unit.spec, unit.err = collator.Collate(items)
	if unit.err != nil {
		return
	}
	unit.inputs = unit.spec.Inputs()
	unit.labels = unit.spec.LabelTensors()
	return
}

func (impl *loaderImpl) startWorkers(jobs <-chan job) {
	for range impl.numWorkers {
		impl.workers.Add(1)
		go func() {
			defer impl.workers.Done()
			for j := range jobs {
				// result is buffered: a worker never blocks on an abandoned epoch.
				j.result <- collateUnit(impl.dataset, impl.collator, j.indices)
			}
		}()
	}
}

// startEpoch starts the goroutine that queues the batches of the epoch.
func (impl *loaderImpl) startEpoch(batches [][]int) {
	pending := make(chan chan yieldUnit, impl.prefetch)
	stopEpoch := make(chan struct{})
	jobs := impl.jobs
	if !impl.persistent {
		jobs = make(chan job)
		impl.startWorkers(jobs)
	}
	impl.pending, impl.stopEpoch = pending, stopEpoch
	go func() {
		defer close(pending)
		if !impl.persistent {
			defer close(jobs)
		}
		for _, indices := range batches {
			result := make(chan yieldUnit, 1)
			select {
			case <-stopEpoch:
				return
			case pending <- result:
			}
			select {
			case <-stopEpoch:
				return
			case jobs <- job{indices: indices, result: result}:
			}
		}
	}()
}

// stopCurrentEpoch signals the epoch to stop, and drains the pending batches until it exits.
func (impl *loaderImpl) stopCurrentEpoch() {
	close(impl.stopEpoch)
	for range impl.pending {
	}
}

// stop the current epoch and the persistent workers. It doesn't wait for the workers to exit.
func (impl *loaderImpl) stop() {
	impl.stopCurrentEpoch()
	if impl.persistent {
		close(impl.jobs)
	}
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements a bounded pool of goroutines used for CPU-heavy work in the data pipeline,
// like canonicalizing and featurizing molecules.
package workerspool

import (
	"runtime"
	"sync"
)

// Pool limits the number of tasks running in parallel.
type Pool struct {
	// maxParallelism is the limit of tasks running concurrently. If 0 tasks are run inline.
	maxParallelism int
	mu             sync.Mutex
	cond           sync.Cond // Should be signaled whenever numRunning is decreased.
	numRunning     int
}

// New returns a new Pool of workers.
//
// If parallelism is negative it is set to runtime.GOMAXPROCS(0). If it is 0, parallelism is disabled and
// tasks are run inline, in the caller's goroutine.
func New(parallelism int) *Pool {
	w := &Pool{}
	if parallelism < 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	w.maxParallelism = parallelism
	w.cond = sync.Cond{L: &w.mu}
	return w
}

// IsEnabled returns whether parallelism is enabled (maxParallelism is != 0)
func (w *Pool) IsEnabled() bool {
	return w.maxParallelism != 0
}

// MaxParallelism returns the maximum number of tasks running concurrently. 0 means tasks run inline.
func (w *Pool) MaxParallelism() int {
	return w.maxParallelism
}

// WaitToStart waits until there is a worker available to run the task, and starts it in a goroutine.
//
// If parallelism is disabled (maxParallelism is 0), it runs the task inline and returns when it is finished.
func (w *Pool) WaitToStart(task func()) {
	if w.maxParallelism == 0 {
		task()
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for w.numRunning >= w.maxParallelism {
		w.cond.Wait()
	}
	w.numRunning++
	go func() {
		defer func() {
			w.mu.Lock()
			w.numRunning--
			w.cond.Signal()
			w.mu.Unlock()
		}()
		task()
	}()
}

// ForEachBatch splits the range [0, numItems) into consecutive batches of at most batchSize items
// and calls fn(start, end) for each of them, using the pool's workers.
//
// It returns only when all batches are processed. fn must be safe for concurrent calls on
// non-overlapping ranges. If batchSize <= 0, the range is split evenly across the workers.
func (w *Pool) ForEachBatch(numItems, batchSize int, fn func(start, end int)) {
	if numItems <= 0 {
		return
	}
	if batchSize <= 0 {
		workers := max(w.maxParallelism, 1)
		batchSize = (numItems + workers - 1) / workers
	}
	var wg sync.WaitGroup
	for start := 0; start < numItems; start += batchSize {
		end := min(start+batchSize, numItems)
		wg.Add(1)
		w.WaitToStart(func() {
			defer wg.Done()
			fn(start, end)
		})
	}
	wg.Wait()
}

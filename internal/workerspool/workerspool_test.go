// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForEachBatch(t *testing.T) {
	for _, parallelism := range []int{0, 1, 3, -1} {
		pool := New(parallelism)
		assert.Equal(t, parallelism != 0, pool.IsEnabled())
		const numItems = 103
		visited := make([]int32, numItems)
		var running, maxRunning atomic.Int32
		var mu sync.Mutex
		pool.ForEachBatch(numItems, 10, func(start, end int) {
			r := running.Add(1)
			mu.Lock()
			if r > maxRunning.Load() {
				maxRunning.Store(r)
			}
			mu.Unlock()
			for ii := start; ii < end; ii++ {
				atomic.AddInt32(&visited[ii], 1)
			}
			running.Add(-1)
		})
		for ii, v := range visited {
			require.Equalf(t, int32(1), v, "item %d visited %d times with parallelism %d", ii, v, parallelism)
		}
		if parallelism > 0 {
			assert.LessOrEqual(t, int(maxRunning.Load()), parallelism)
		}
	}
}

func TestForEachBatchEvenSplit(t *testing.T) {
	pool := New(4)
	var calls atomic.Int32
	pool.ForEachBatch(10, 0, func(start, end int) {
		calls.Add(1)
		assert.LessOrEqual(t, end-start, 3)
	})
	assert.Equal(t, int32(4), calls.Load())
	pool.ForEachBatch(0, 5, func(start, end int) { t.Fatal("should not be called") })
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package xsync

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDynamicWaitGroup(t *testing.T) {
	wg := NewDynamicWaitGroup()
	wg.Wait() // Zero count doesn't block.

	var finished atomic.Int32
	release := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-release
		// Adding while the main goroutine waits.
		wg.Add(1)
		go func() {
			defer wg.Done()
			time.Sleep(10 * time.Millisecond)
			finished.Add(1)
		}()
		finished.Add(1)
	}()
	assert.Equal(t, 1, wg.Count())
	close(release)
	wg.Wait()
	assert.Equal(t, int32(2), finished.Load())
	assert.Equal(t, 0, wg.Count())

	require.Panics(t, func() { wg.Done() })
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datamodule

import (
	"runtime"
	"sync"

	"k8s.io/klog/v2"
)

var initOnce sync.Once

// InitProcess does the process-wide initialization of the pipeline. It should be called once by the
// program, before creating a DataModule; further calls are no-ops.
//
// If maxProcs > 0, it limits the number of OS threads running Go code (runtime.GOMAXPROCS), which is also
// the default number of workers (-1) of the loaders and featurization.
func InitProcess(maxProcs int) {
	initOnce.Do(func() {
		if maxProcs > 0 {
			previous := runtime.GOMAXPROCS(maxProcs)
			klog.V(1).Infof("GOMAXPROCS set to %d (was %d)", maxProcs, previous)
		}
	})
}

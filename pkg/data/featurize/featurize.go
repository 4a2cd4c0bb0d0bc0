// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package featurize

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/gomlx/exceptions"
	"github.com/gomlx/molpipe/internal/workerspool"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/pkg/errors"
	"github.com/schollz/progressbar/v3"
	"k8s.io/klog/v2"
)

// Options of Featurize.
type Options struct {
	// Parallelism is the number of goroutines featurizing: 0 runs inline and a negative value uses all CPUs.
	Parallelism int

	// BatchSize is the number of molecules handed to a worker at a time. If <= 0, molecules are split
	// evenly across workers.
	BatchSize int

	// Progress displays a progress bar on the terminal.
	Progress bool
}

// maxErrorMsgLen limits the error message of each failed molecule in the warning.
const maxErrorMsgLen = 200

// Failure of one molecule.
type Failure struct {
	Index    int
	Molecule string
	Err      error
}

// Featurize runs fn on each of the molecules, in parallel batches.
//
// It returns one feature per molecule. Molecules whose featurization returns an error, panics with an error
// or yields an invalid feature (see MoleculeFeature.Validate) get a nil feature and their positions are
// listed, in increasing order, in failed. A single warning lists all failures.
func Featurize(molecules []string, fn Func, opts Options) (features []*MoleculeFeature, failed []int) {
	features, failures := FeaturizeWithFailures(molecules, fn, opts)
	failed = make([]int, 0, len(failures))
	for _, failure := range failures {
		failed = append(failed, failure.Index)
	}
	return features, failed
}

// FeaturizeWithFailures is like Featurize, but returns the details of each failure.
func FeaturizeWithFailures(molecules []string, fn Func, opts Options) ([]*MoleculeFeature, []Failure) {
	features := make([]*MoleculeFeature, len(molecules))
	var (
		mu       sync.Mutex
		failures []Failure
	)
	var bar *progressbar.ProgressBar
	if opts.Progress && len(molecules) > 0 {
		bar = progressbar.NewOptions(len(molecules),
			progressbar.OptionSetDescription("Featurizing molecules"),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("mols"),
			progressbar.OptionThrottle(100_000_000),
			progressbar.OptionClearOnFinish())
	}

	pool := workerspool.New(opts.Parallelism)
	pool.ForEachBatch(len(molecules), opts.BatchSize, func(start, end int) {
		var batchFailures []Failure
		for ii := start; ii < end; ii++ {
			feature, err := featurizeOne(molecules[ii], fn)
			if err != nil {
				batchFailures = append(batchFailures, Failure{Index: ii, Molecule: molecules[ii], Err: err})
				continue
			}
			features[ii] = feature
		}
		if bar != nil {
			_ = bar.Add(end - start)
		}
		if len(batchFailures) > 0 {
			mu.Lock()
			failures = append(failures, batchFailures...)
			mu.Unlock()
		}
	})
	if bar != nil {
		_ = bar.Finish()
	}

	slices.SortFunc(failures, func(a, b Failure) int { return a.Index - b.Index })
	if len(failures) > 0 {
		klog.Warningf("featurization failed for %d out of %d molecules:\n%s",
			len(failures), len(molecules), formatFailures(failures))
	}
	klog.V(1).Infof("featurized %d molecules (%d failed)", len(molecules), len(failures))
	return features, failures
}

// featurizeOne calls fn, converting panics and invalid features to errors wrapping
// data.ErrFeaturizationFailure.
func featurizeOne(molecule string, fn Func) (feature *MoleculeFeature, err error) {
	panicValue := exceptions.TryCatch[any](func() {
		feature, err = fn(molecule)
	})
	if panicValue != nil {
		err = errors.Errorf("featurizer panicked: %v", panicValue)
	}
	if err == nil {
		err = feature.Validate()
	}
	if err != nil {
		return nil, errors.Wrapf(data.ErrFeaturizationFailure, "%v", err)
	}
	return feature, nil
}

func formatFailures(failures []Failure) string {
	var sb strings.Builder
	for _, failure := range failures {
		msg := failure.Err.Error()
		if len(msg) > maxErrorMsgLen {
			msg = msg[:maxErrorMsgLen]
		}
		_, _ = fmt.Fprintf(&sb, "    idx=%d - smiles=%s - Error_msg[:-200]=%s\n", failure.Index, failure.Molecule, msg)
	}
	return sb.String()
}

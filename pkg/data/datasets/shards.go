// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/support/fsutil"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
	"k8s.io/klog/v2"
)

// ItemsPerBucket is the number of item files per sub-directory of a saved dataset.
const ItemsPerBucket = 1000

// MetaFileName holds the description of a saved dataset, written after all items.
const MetaFileName = "meta.gob"

type shardMeta struct {
	Name       string
	NumItems   int
	LabelsSize map[string]int
}

// ItemPath returns the file of item idx under dir: "NNNN/IIIIIII.gob", with NNNN = idx/ItemsPerBucket.
func ItemPath(dir string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf("%04d", idx/ItemsPerBucket), fmt.Sprintf("%07d.gob", idx))
}

func numGoroutines(parallelism int) int {
	if parallelism <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return parallelism
}

// Save writes one gob file per item (see ItemPath) and then the meta file, using up to parallelism
// goroutines (all CPUs if <= 0).
func (mt *Multitask) Save(dir string, parallelism int) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "creating %q", dir)
	}
	var g errgroup.Group
	g.SetLimit(numGoroutines(parallelism))
	for idx, item := range mt.Items {
		g.Go(func() error {
			return fsutil.WriteFileAtomically(ItemPath(dir, idx), func(w io.Writer) error {
				return gob.NewEncoder(w).Encode(item)
			})
		})
	}
	if err := g.Wait(); err != nil {
		return errors.WithMessagef(err, "saving %s dataset to %q", mt.Name, dir)
	}
	meta := shardMeta{Name: mt.Name, NumItems: len(mt.Items), LabelsSize: mt.LabelsSize}
	err := fsutil.WriteFileAtomically(filepath.Join(dir, MetaFileName), func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(&meta)
	})
	if err != nil {
		return err
	}
	klog.Infof("saved %s dataset (%d items) to %q", mt.Name, len(mt.Items), dir)
	return nil
}

// Load a dataset saved with Save.
//
// It returns false (and no error) if dir doesn't exist or holds no data. Missing or undecodable files return
// an error wrapping data.ErrCacheCorruption that lists every failing file.
func Load(dir string, parallelism int) (*Multitask, bool, error) {
	exists, err := fsutil.FileExists(dir)
	if err != nil || !exists {
		return nil, false, err
	}
	size, err := fsutil.DirSize(dir)
	if err != nil {
		return nil, false, err
	}
	if size == 0 {
		return nil, false, nil
	}

	var meta shardMeta
	if err := decodeFile(filepath.Join(dir, MetaFileName), &meta); err != nil {
		return nil, false, err
	}
	mt := &Multitask{
		Name:       meta.Name,
		Items:      make([]*Item, meta.NumItems),
		LabelsSize: meta.LabelsSize,
	}
	if mt.LabelsSize == nil {
		mt.LabelsSize = make(map[string]int)
	}
	var (
		mu     sync.Mutex
		allErr *multierror.Error
		g      errgroup.Group
	)
	g.SetLimit(numGoroutines(parallelism))
	for idx := range mt.Items {
		g.Go(func() error {
			item := &Item{}
			if err := decodeFile(ItemPath(dir, idx), item); err != nil {
				mu.Lock()
				allErr = multierror.Append(allErr, err)
				mu.Unlock()
				return nil
			}
			if item.Feature == nil {
				mu.Lock()
				allErr = multierror.Append(allErr, errors.Wrapf(data.ErrCacheCorruption, "item %d has no feature", idx))
				mu.Unlock()
				return nil
			}
			mt.Items[idx] = item
			return nil
		})
	}
	_ = g.Wait()
	if err := allErr.ErrorOrNil(); err != nil {
		return nil, false, errors.WithMessagef(err, "loading dataset from %q", dir)
	}
	klog.Infof("loaded %s dataset (%d items) from %q", mt.Name, mt.Len(), dir)
	return mt, true, nil
}

func decodeFile(path string, target any) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(data.ErrCacheCorruption, "opening %q: %v", path, err)
	}
	defer func() { _ = f.Close() }()
	if err := gob.NewDecoder(f).Decode(target); err != nil {
		return errors.Wrapf(data.ErrCacheCorruption, "decoding %q: %v", path, err)
	}
	return nil
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datamodule

import (
	"crypto/md5"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/gomlx/molpipe/pkg/data/splits"
	"github.com/gomlx/molpipe/pkg/support/fsutil"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// CacheExtension of the prepared data cache files, followed by ".gz" or ".zst" if compressed.
const CacheExtension = ".datacache"

// DataHash returns the hex MD5 of the JSON encoding of the featurization configuration and the task
// configurations. It changes whenever any of them change, but not when the contents of the data files do.
func DataHash(config *Config) (string, error) {
	encoded, err := json.Marshal(struct {
		Featurization featurize.Config
		Tasks         []TaskConfig
	}{config.Featurization, config.Tasks})
	if err != nil {
		return "", errors.Wrap(err, "encoding configuration for hashing")
	}
	sum := md5.Sum(encoded)
	return hex.EncodeToString(sum[:]), nil
}

// cachedTask is the prepared data of one task.
type cachedTask struct {
	FeatureIdx []int
	Labels     [][]float32
	IDs        []string
	SMILES     []string
	Weights    [][]float32
	Split      splits.Split
}

// cacheContents holds everything Prepare computes. Features are stored once and referenced by index.
type cacheContents struct {
	Hash     string
	Features []*featurize.MoleculeFeature
	Tasks    map[string]*cachedTask
}

// CacheFile returns the path of the prepared data cache, or "" if caching is disabled.
func (dm *DataModule) CacheFile() string {
	if dm.config.CachePath == "" {
		return ""
	}
	name := dm.hash + CacheExtension
	switch dm.config.CacheCompression {
	case CompressionGzip:
		name += ".gz"
	case CompressionZstd:
		name += ".zst"
	}
	return filepath.Join(dm.config.CachePath, name)
}

func (dm *DataModule) saveCache(contents *cacheContents) error {
	path := dm.CacheFile()
	if path == "" {
		klog.V(1).Infof("no cache_data_path configured, not saving the prepared data")
		return nil
	}
	start := time.Now()
	err := fsutil.WriteFileAtomically(path, func(w io.Writer) error {
		switch dm.config.CacheCompression {
		case CompressionGzip:
			gz := gzip.NewWriter(w)
			if err := gob.NewEncoder(gz).Encode(contents); err != nil {
				return err
			}
			return gz.Close()
		case CompressionZstd:
			zw, err := zstd.NewWriter(w)
			if err != nil {
				return err
			}
			if err := gob.NewEncoder(zw).Encode(contents); err != nil {
				_ = zw.Close()
				return err
			}
			return zw.Close()
		}
		return gob.NewEncoder(w).Encode(contents)
	})
	if err != nil {
		return errors.WithMessagef(err, "saving data cache")
	}
	klog.Infof("saved prepared data to cache %q in %s", path, time.Since(start).Round(time.Millisecond))
	return nil
}

// loadCache returns nil without error if there is no cache file. A file that can't be decoded returns
// data.ErrCacheCorruption.
func (dm *DataModule) loadCache() (*cacheContents, error) {
	path := dm.CacheFile()
	if path == "" {
		klog.V(1).Infof("no cache_data_path configured, not loading the prepared data from cache")
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			klog.Infof("data cache %q not found, the data will be prepared and cached", path)
			return nil, nil
		}
		return nil, errors.Wrapf(err, "opening data cache %q", path)
	}
	defer func() { _ = f.Close() }()

	start := time.Now()
	var r io.Reader = f
	switch dm.config.CacheCompression {
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(data.ErrCacheCorruption, "reading %q: %v", path, err)
		}
		defer func() { _ = gz.Close() }()
		r = gz
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, errors.Wrapf(data.ErrCacheCorruption, "reading %q: %v", path, err)
		}
		defer zr.Close()
		r = zr
	}
	contents := &cacheContents{}
	if err := gob.NewDecoder(r).Decode(contents); err != nil {
		return nil, errors.Wrapf(data.ErrCacheCorruption, "decoding %q: %v", path, err)
	}
	if contents.Hash != dm.hash {
		return nil, errors.Wrapf(data.ErrCacheCorruption, "%q holds data of hash %q", path, contents.Hash)
	}
	for name, task := range contents.Tasks {
		for _, idx := range task.FeatureIdx {
			if idx < 0 || idx >= len(contents.Features) || contents.Features[idx] == nil {
				return nil, errors.Wrapf(data.ErrCacheCorruption, "%q: task %q points to an invalid feature", path, name)
			}
		}
	}
	klog.Infof("loaded prepared data from cache %q in %s", path, time.Since(start).Round(time.Millisecond))
	return contents, nil
}

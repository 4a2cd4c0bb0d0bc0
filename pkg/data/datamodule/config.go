// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datamodule

import (
	"bytes"
	"os"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/gomlx/molpipe/pkg/data/labels"
	"github.com/gomlx/molpipe/pkg/data/loaders"
	"github.com/gomlx/molpipe/pkg/data/splits"
	"github.com/gomlx/molpipe/pkg/support/fsutil"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Cache compression values.
const (
	CompressionNone = "none"
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// TaskConfig describes how to build the dataset of one task.
type TaskConfig struct {
	Name string `yaml:"name"`

	// DataPath of the table(s), a path or a glob pattern. See tables.Read for the supported formats.
	DataPath string `yaml:"df_path"`

	// SMILESColumn holds the molecules. If empty, the only column with "smile" in its name is used.
	SMILESColumn string `yaml:"smiles_col,omitempty"`

	// LabelColumns are column names or patterns ("prefix*", "*suffix"). If empty, all remaining columns
	// are labels.
	LabelColumns []string `yaml:"label_cols,omitempty"`

	IndexColumn  string            `yaml:"idx_col,omitempty"`
	WeightColumn string            `yaml:"weights_col,omitempty"`
	WeightType   labels.WeightType `yaml:"weights_type,omitempty"`

	// SampleCount, if > 0, keeps that many random rows. Otherwise, SampleFraction, if > 0, keeps that
	// fraction of the rows.
	SampleCount    int     `yaml:"sample_size,omitempty"`
	SampleFraction float64 `yaml:"sample_fraction,omitempty"`
	SampleSeed     uint64  `yaml:"sample_seed,omitempty"`

	Split              splits.Config          `yaml:",inline"`
	LabelNormalization datasets.Normalization `yaml:"label_normalization,omitempty"`
}

// Validate returns a data.ErrConfiguration for invalid values. If requireData is false, DataPath may
// be empty.
func (tc *TaskConfig) Validate(requireData bool) error {
	if tc.Name == "" {
		return data.Configurationf("task without a name")
	}
	if requireData && tc.DataPath == "" {
		return data.Configurationf("task %q: df_path not given", tc.Name)
	}
	if tc.WeightColumn != "" && tc.WeightType != labels.WeightNone {
		return data.Configurationf("task %q: weights_col and weights_type are mutually exclusive", tc.Name)
	}
	if tc.SampleCount < 0 || tc.SampleFraction < 0 || tc.SampleFraction > 1 {
		return data.Configurationf("task %q: invalid sample_size (%d) or sample_fraction (%g)",
			tc.Name, tc.SampleCount, tc.SampleFraction)
	}
	if err := tc.Split.Validate(); err != nil {
		return errors.WithMessagef(err, "task %q", tc.Name)
	}
	if err := tc.LabelNormalization.Validate(); err != nil {
		return errors.WithMessagef(err, "task %q", tc.Name)
	}
	return nil
}

// Config of a DataModule.
type Config struct {
	Tasks         []TaskConfig     `yaml:"task_specific_args"`
	Featurization featurize.Config `yaml:"featurization"`

	// CachePath is the directory of the prepared data cache, "{hash}.datacache[.gz|.zst]". Empty disables it.
	CachePath        string `yaml:"cache_data_path,omitempty"`
	CacheCompression string `yaml:"cache_compression,omitempty"`

	// ProcessedGraphDataPath is the directory of the per-stage item shards, "{stage}_{hash}/", and the label
	// statistics, "{hash}/task_norms.gob". Empty disables them.
	ProcessedGraphDataPath string `yaml:"processed_graph_data_path,omitempty"`

	BatchSizeTraining  int `yaml:"batch_size_training"`
	BatchSizeInference int `yaml:"batch_size_inference"`

	// BatchSizePerPack, if > 0, must divide both batch sizes.
	BatchSizePerPack int `yaml:"batch_size_per_pack,omitempty"`

	// Loader is loaders.KindStandard or loaders.KindConstrainedShape. If empty, the constrained shape
	// loader is used when BatchSizePerPack > 0.
	Loader string `yaml:"loader,omitempty"`

	NumWorkers        int    `yaml:"num_workers"`
	PinMemory         bool   `yaml:"pin_memory"`
	PersistentWorkers bool   `yaml:"persistent_workers"`
	ShuffleSeed       uint64 `yaml:"shuffle_seed,omitempty"`

	// FeaturizationWorkers: 0 featurizes inline, -1 uses all CPUs.
	FeaturizationWorkers   int  `yaml:"featurization_n_jobs"`
	FeaturizationBatchSize int  `yaml:"featurization_batch_size"`
	FeaturizationProgress  bool `yaml:"featurization_progress"`

	// MaskNaN replaces missing labels in batches. If nil, they are kept as NaN.
	MaskNaN *float32 `yaml:"mask_nan"`
}

// DefaultConfig returns a configuration without tasks.
func DefaultConfig() Config {
	var zero float32
	return Config{
		Featurization:          featurize.DefaultConfig(),
		CacheCompression:       CompressionNone,
		BatchSizeTraining:      16,
		BatchSizeInference:     16,
		FeaturizationWorkers:   -1,
		FeaturizationBatchSize: 1000,
		MaskNaN:                &zero,
	}
}

// LoadConfig reads a YAML configuration file, on top of DefaultConfig, and validates it.
func LoadConfig(path string) (Config, error) {
	config := DefaultConfig()
	path, err := fsutil.ReplaceTildeInDir(path)
	if err != nil {
		return config, err
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, data.NotFoundf("config file %q", path)
		}
		return config, errors.Wrapf(err, "reading config %q", path)
	}
	decoder := yaml.NewDecoder(bytes.NewReader(contents))
	decoder.KnownFields(true)
	if err := decoder.Decode(&config); err != nil {
		return config, errors.Wrapf(data.ErrConfiguration, "parsing config %q: %v", path, err)
	}
	if err := config.Validate(); err != nil {
		return config, errors.WithMessagef(err, "config %q", path)
	}
	return config, nil
}

// Validate returns a data.ErrConfiguration for invalid values, before any data is read.
func (c *Config) Validate() error {
	return c.validate(true)
}

func (c *Config) validate(requireData bool) error {
	if len(c.Tasks) == 0 {
		return data.Configurationf("no tasks configured")
	}
	names := make(map[string]bool, len(c.Tasks))
	for ii := range c.Tasks {
		task := &c.Tasks[ii]
		if err := task.Validate(requireData); err != nil {
			return err
		}
		if names[task.Name] {
			return data.Configurationf("task %q configured more than once", task.Name)
		}
		names[task.Name] = true
	}
	if err := c.Featurization.Validate(); err != nil {
		return err
	}
	switch c.CacheCompression {
	case "", CompressionNone, CompressionGzip, CompressionZstd:
	default:
		return data.Configurationf("unknown cache_compression %q, valid values are %q", c.CacheCompression,
			[]string{CompressionNone, CompressionGzip, CompressionZstd})
	}
	if c.BatchSizeTraining <= 0 || c.BatchSizeInference <= 0 {
		return data.Configurationf("batch sizes must be > 0, got batch_size_training=%d and batch_size_inference=%d",
			c.BatchSizeTraining, c.BatchSizeInference)
	}
	if c.BatchSizePerPack < 0 {
		return data.Configurationf("batch_size_per_pack must be >= 0, got %d", c.BatchSizePerPack)
	}
	if c.BatchSizePerPack > 0 {
		for _, batchSize := range []int{c.BatchSizeTraining, c.BatchSizeInference} {
			if batchSize%c.BatchSizePerPack != 0 {
				return data.Configurationf("batch size %d is not a multiple of batch_size_per_pack %d",
					batchSize, c.BatchSizePerPack)
			}
		}
	}
	switch c.loaderKind() {
	case loaders.KindStandard:
	case loaders.KindConstrainedShape:
		if c.BatchSizePerPack == 0 {
			return data.Configurationf("loader %q requires batch_size_per_pack > 0", loaders.KindConstrainedShape)
		}
	default:
		return data.Configurationf("unknown loader %q, valid values are %q", c.Loader,
			[]string{loaders.KindStandard, loaders.KindConstrainedShape})
	}
	if c.NumWorkers < -1 || c.FeaturizationWorkers < -1 {
		return data.Configurationf("num_workers (%d) and featurization_n_jobs (%d) must be >= -1",
			c.NumWorkers, c.FeaturizationWorkers)
	}
	return nil
}

func (c *Config) loaderKind() string {
	if c.Loader != "" {
		return c.Loader
	}
	if c.BatchSizePerPack > 0 {
		return loaders.KindConstrainedShape
	}
	return loaders.KindStandard
}

// needsNormalization returns whether any task normalizes its labels.
func (c *Config) needsNormalization() bool {
	for _, task := range c.Tasks {
		if !task.LabelNormalization.IsIdentity() {
			return true
		}
	}
	return false
}

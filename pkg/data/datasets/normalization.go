// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"encoding/gob"
	"io"
	"math"
	"os"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/support/fsutil"
	"github.com/pkg/errors"
)

// Normalization methods.
const (
	NormalizeNone = "none"

	// NormalizeNormal subtracts the mean and divides by the standard deviation.
	NormalizeNormal = "normal"

	// NormalizeUnit maps [min, max] to [0, 1].
	NormalizeUnit = "unit"
)

// Normalization of the labels of a task.
type Normalization struct {
	Method string `yaml:"normalize_val_type,omitempty"`

	// MinClipping and MaxClipping, if set, clip the normalized values.
	MinClipping *float32 `yaml:"min_clipping,omitempty"`
	MaxClipping *float32 `yaml:"max_clipping,omitempty"`
}

// Validate returns a data.ErrConfiguration for unknown methods or inverted clipping bounds.
func (n Normalization) Validate() error {
	switch n.Method {
	case "", NormalizeNone, NormalizeNormal, NormalizeUnit:
	default:
		return data.Configurationf("unknown label normalization %q, valid values are %q", n.Method,
			[]string{NormalizeNone, NormalizeNormal, NormalizeUnit})
	}
	if n.MinClipping != nil && n.MaxClipping != nil && *n.MinClipping > *n.MaxClipping {
		return data.Configurationf("min_clipping (%g) > max_clipping (%g)", *n.MinClipping, *n.MaxClipping)
	}
	return nil
}

// IsIdentity returns whether the normalization leaves labels unchanged.
func (n Normalization) IsIdentity() bool {
	return (n.Method == "" || n.Method == NormalizeNone) && n.MinClipping == nil && n.MaxClipping == nil
}

// Statistics of the labels of a task, per label column, ignoring NaN.
//
// Std and Max-Min are never zero: zeros (and columns with no values) are replaced by ones.
type Statistics struct {
	Mean, Std, Min, Max []float32
}

// ComputeStatistics of the label rows.
func ComputeStatistics(labels [][]float32) Statistics {
	width := 0
	if len(labels) > 0 {
		width = len(labels[0])
	}
	stats := Statistics{
		Mean: make([]float32, width),
		Std:  make([]float32, width),
		Min:  make([]float32, width),
		Max:  make([]float32, width),
	}
	for col := range width {
		var count int
		var sum, sumSq float64
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, row := range labels {
			v := float64(row[col])
			if math.IsNaN(v) {
				continue
			}
			count++
			sum += v
			sumSq += v * v
			minV = min(minV, v)
			maxV = max(maxV, v)
		}
		if count == 0 {
			stats.Std[col], stats.Max[col] = 1, 1
			continue
		}
		mean := sum / float64(count)
		std := math.Sqrt(max(0, sumSq/float64(count)-mean*mean))
		if std == 0 {
			std = 1
		}
		if maxV == minV {
			maxV = minV + 1
		}
		stats.Mean[col] = float32(mean)
		stats.Std[col] = float32(std)
		stats.Min[col] = float32(minV)
		stats.Max[col] = float32(maxV)
	}
	return stats
}

// Normalize returns a normalized copy of the label row. NaN values stay NaN.
func (n Normalization) Normalize(stats Statistics, label []float32) []float32 {
	result := make([]float32, len(label))
	for col, v := range label {
		switch n.Method {
		case NormalizeNormal:
			v = (v - stats.Mean[col]) / stats.Std[col]
		case NormalizeUnit:
			v = (v - stats.Min[col]) / (stats.Max[col] - stats.Min[col])
		}
		if n.MinClipping != nil && v < *n.MinClipping {
			v = *n.MinClipping
		}
		if n.MaxClipping != nil && v > *n.MaxClipping {
			v = *n.MaxClipping
		}
		result[col] = v
	}
	return result
}

// Denormalize reverts Normalize (except for clipping), e.g. to convert predictions back to label units.
func (n Normalization) Denormalize(stats Statistics, values []float32) []float32 {
	result := make([]float32, len(values))
	for col, v := range values {
		switch n.Method {
		case NormalizeNormal:
			v = v*stats.Std[col] + stats.Mean[col]
		case NormalizeUnit:
			v = v*(stats.Max[col]-stats.Min[col]) + stats.Min[col]
		}
		result[col] = v
	}
	return result
}

// NormalizeLabels replaces the labels of every item with their normalized values, for the tasks in
// normalizations.
func (mt *Multitask) NormalizeLabels(normalizations map[string]Normalization, stats map[string]Statistics) {
	for _, item := range mt.Items {
		for task, label := range item.Labels {
			norm, found := normalizations[task]
			if !found || norm.IsIdentity() {
				continue
			}
			item.Labels[task] = norm.Normalize(stats[task], label)
		}
	}
}

// TaskLabels returns the label rows of the task, for the items that include it.
func (mt *Multitask) TaskLabels(task string) [][]float32 {
	var labels [][]float32
	for _, item := range mt.Items {
		if label, found := item.Labels[task]; found {
			labels = append(labels, label)
		}
	}
	return labels
}

// SaveStatistics writes the statistics per task to path.
func SaveStatistics(path string, stats map[string]Statistics) error {
	return fsutil.WriteFileAtomically(path, func(w io.Writer) error {
		return gob.NewEncoder(w).Encode(stats)
	})
}

// LoadStatistics reads the statistics saved with SaveStatistics. It returns false if the file doesn't exist.
func LoadStatistics(path string) (map[string]Statistics, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, errors.Wrapf(err, "checking %q", path)
	}
	var stats map[string]Statistics
	if err := decodeFile(path, &stats); err != nil {
		return nil, false, err
	}
	return stats, true, nil
}

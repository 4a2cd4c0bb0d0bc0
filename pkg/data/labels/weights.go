// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package labels

import (
	"strings"

	"github.com/gomlx/molpipe/pkg/data"
)

// WeightType selects how sample weights are computed from binary labels.
//
//go:generate go tool enumer -type=WeightType -trimprefix=Weight -transform=snake -json -yaml -text -output=gen_weighttype_enumer.go
type WeightType int

const (
	// WeightNone computes no weights.
	WeightNone WeightType = iota

	// WeightSampleBalanced assigns one weight per sample: the product over labels of the class balancing
	// factor of the sample's value.
	WeightSampleBalanced

	// WeightSampleLabelBalanced keeps one balancing weight per sample and label.
	WeightSampleLabelBalanced
)

// ParseWeightType converts the name of a weight type (case-insensitive). The empty string is WeightNone.
func ParseWeightType(name string) (WeightType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return WeightNone, nil
	}
	w, err := WeightTypeString(name)
	if err != nil {
		return WeightNone, data.Configurationf("unknown weight type %q, valid values are %q", name, WeightTypeStrings())
	}
	return w, nil
}

// ComputeWeights returns class balancing sample weights for binary (0 or 1) labels.
//
// For each label, ratio is the fraction of samples with value 0: samples with value 0 get ratio, and samples
// with value 1 get 1/ratio. Labels with a single class (ratio of 0 or 1) weight every sample by 1.
// WeightSampleBalanced multiplies the factors of all labels of a sample, and WeightSampleLabelBalanced keeps
// them per label. Finally, weights are divided by their maximum (per label for WeightSampleLabelBalanced),
// so the largest weight is 1.
//
// Example: labels [0,0,1,1,1] with WeightSampleBalanced give ratio 0.4 and weights [0.16,0.16,1,1,1].
//
// Non-binary values (including NaN) return data.ErrConfiguration.
func ComputeWeights(labels [][]float32, weightType WeightType) ([][]float32, error) {
	if weightType == WeightNone {
		return nil, nil
	}
	if weightType != WeightSampleBalanced && weightType != WeightSampleLabelBalanced {
		return nil, data.Configurationf("unknown weight type %s", weightType)
	}
	numRows := len(labels)
	if numRows == 0 {
		return [][]float32{}, nil
	}
	numLabels := len(labels[0])
	negatives := make([]int, numLabels)
	for row, values := range labels {
		for col, v := range values {
			switch v {
			case 0:
				negatives[col]++
			case 1:
			default:
				return nil, data.Configurationf("labels must be binary (0 or 1) to compute %s weights, got %g in row %d",
					weightType, v, row)
			}
		}
	}
	ratios := make([]float64, numLabels)
	for col, count := range negatives {
		ratios[col] = float64(count) / float64(numRows)
	}
	factor := func(col int, v float32) float64 {
		ratio := ratios[col]
		if ratio == 0 || ratio == 1 {
			return 1
		}
		if v == 0 {
			return ratio
		}
		return 1 / ratio
	}

	width := numLabels
	if weightType == WeightSampleBalanced {
		width = 1
	}
	weights64 := make([][]float64, numRows)
	maxWeights := make([]float64, width)
	for row, values := range labels {
		weights64[row] = make([]float64, width)
		if weightType == WeightSampleBalanced {
			product := 1.0
			for col, v := range values {
				product *= factor(col, v)
			}
			weights64[row][0] = product
		} else {
			for col, v := range values {
				weights64[row][col] = factor(col, v)
			}
		}
		for col, w := range weights64[row] {
			maxWeights[col] = max(maxWeights[col], w)
		}
	}

	weights := make([][]float32, numRows)
	for row := range weights64 {
		weights[row] = make([]float32, width)
		for col, w := range weights64[row] {
			weights[row][col] = float32(w / maxWeights[col])
		}
	}
	return weights, nil
}

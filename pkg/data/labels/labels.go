// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package labels extracts molecules, labels, indices and sample weights from a table.
package labels

import (
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/pkg/errors"
)

// Records extracted from a table, in row order.
type Records struct {
	// IDs are the molecule strings (e.g. SMILES) of each row.
	IDs []string

	// LabelColumns are the resolved label columns, and Labels holds one row of len(LabelColumns) values per
	// record. Values that are missing or not numeric are NaN.
	LabelColumns []string
	Labels       [][]float32

	// Indices holds the values of the index column, nil if there was none.
	Indices []int

	// Weights is nil if no weight column or weight type was given. Otherwise, it holds one row per record,
	// of width 1, or of width len(LabelColumns) for WeightSampleLabelBalanced.
	Weights [][]float32
}

// Len returns the number of records.
func (r *Records) Len() int { return len(r.IDs) }

// Options of Extract.
type Options struct {
	// SMILESColumn holds the molecules. If empty, it is searched with FindSMILESColumn.
	SMILESColumn string

	// LabelColumns specification, see ResolveLabelColumns. If nil, all columns except the SMILES, index and
	// weight columns are used.
	LabelColumns []string

	// IndexColumn optionally holds an integer index per row.
	IndexColumn string

	// WeightColumn holds explicit sample weights. It can't be used with WeightType.
	WeightColumn string

	// WeightType of the computed sample weights.
	WeightType WeightType
}

// Extract the records from the table.
func Extract(df dataframe.DataFrame, opts Options) (*Records, error) {
	if df.Err != nil {
		return nil, errors.Wrap(df.Err, "invalid table")
	}
	if opts.WeightColumn != "" && opts.WeightType != WeightNone {
		return nil, data.Configurationf("weight column %q and weight type %s are mutually exclusive",
			opts.WeightColumn, opts.WeightType)
	}
	columns := df.Names()
	available := make(map[string]bool, len(columns))
	for _, col := range columns {
		available[col] = true
	}
	for _, col := range []string{opts.SMILESColumn, opts.IndexColumn, opts.WeightColumn} {
		if col != "" && !available[col] {
			return nil, data.NotFoundf("column %q not found, columns are %q", col, columns)
		}
	}

	smilesCol := opts.SMILESColumn
	if smilesCol == "" {
		var err error
		smilesCol, err = FindSMILESColumn(columns)
		if err != nil {
			return nil, err
		}
	}
	var exclude []string
	for _, col := range []string{opts.IndexColumn, opts.WeightColumn} {
		if col != "" {
			exclude = append(exclude, col)
		}
	}
	labelColumns, err := ResolveLabelColumns(columns, smilesCol, opts.LabelColumns, exclude...)
	if err != nil {
		return nil, err
	}

	numRows := df.Nrow()
	records := &Records{
		IDs:          df.Col(smilesCol).Records(),
		LabelColumns: labelColumns,
		Labels:       make([][]float32, numRows),
	}
	flat := make([]float32, numRows*len(labelColumns))
	for row := range records.Labels {
		records.Labels[row] = flat[row*len(labelColumns) : (row+1)*len(labelColumns)]
	}
	for colIdx, col := range labelColumns {
		for row, v := range df.Col(col).Float() {
			records.Labels[row][colIdx] = float32(v)
		}
	}

	if opts.IndexColumn != "" {
		values := df.Col(opts.IndexColumn).Float()
		records.Indices = make([]int, numRows)
		for row, v := range values {
			if math.IsNaN(v) || v != math.Trunc(v) {
				return nil, errors.Errorf("index column %q has a non-integer value in row %d", opts.IndexColumn, row)
			}
			records.Indices[row] = int(v)
		}
	}

	switch {
	case opts.WeightColumn != "":
		records.Weights = make([][]float32, numRows)
		for row, v := range df.Col(opts.WeightColumn).Float() {
			records.Weights[row] = []float32{float32(v)}
		}
	case opts.WeightType != WeightNone:
		records.Weights, err = ComputeWeights(records.Labels, opts.WeightType)
		if err != nil {
			return nil, errors.WithMessagef(err, "label columns %q", labelColumns)
		}
	}
	return records, nil
}

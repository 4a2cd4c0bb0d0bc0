// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tables

import (
	"slices"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/molpipe/pkg/chem/sdf"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// readSDF reads an SDF file as a table: one row per record, with the canonical SMILES in SMILESColumn
// followed by one column per data field (in order of first appearance).
//
// Records whose structure can't be parsed keep their row with an empty SMILES, so they fail at
// featurization like any other invalid molecule.
func readSDF(path string, compression Compression) (dataframe.DataFrame, error) {
	r, err := openDecompressed(path, compression)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer func() { _ = r.Close() }()
	records, err := sdf.ReadAll(r)
	if err != nil {
		return dataframe.DataFrame{}, errors.WithMessagef(err, "SDF file %q", path)
	}

	var fieldNames []string
	seen := make(map[string]bool)
	smilesCol := make([]string, len(records))
	numInvalid := 0
	for ii, record := range records {
		smiles, err := record.SMILES()
		if err != nil {
			numInvalid++
			klog.V(1).Infof("tables: %q: %v", path, err)
		}
		smilesCol[ii] = smiles
		for _, name := range record.FieldNames {
			if name == SMILESColumn || seen[name] {
				continue
			}
			seen[name] = true
			fieldNames = append(fieldNames, name)
		}
	}
	if numInvalid > 0 {
		klog.Warningf("tables: %d of %d records of %q have invalid structures", numInvalid, len(records), path)
	}

	cols := make([]series.Series, 0, 1+len(fieldNames))
	cols = append(cols, series.New(smilesCol, series.String, SMILESColumn))
	for _, name := range fieldNames {
		values := make([]string, len(records))
		for ii, record := range records {
			value, found := record.Fields[name]
			if !found || slices.Contains(NaNValues, value) {
				value = "NaN"
			}
			values[ii] = value
		}
		cols = append(cols, series.New(values, series.String, name))
	}
	df := dataframe.New(cols...)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "building table from %q", path)
	}
	return df, nil
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tables

import (
	"fmt"
	"math"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/pkg/errors"
	"github.com/x448/float16"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/source"
)

// parquetReaderParallelism is the number of goroutines used by the parquet column reader.
const parquetReaderParallelism = 4

// parquetColumn describes a leaf column of a parquet file.
type parquetColumn struct {
	index int64
	name  string
	pType parquet.Type
}

func openParquet(path string) (source.ParquetFile, *reader.ParquetReader, []parquetColumn, error) {
	pf, err := local.NewLocalFileReader(path)
	if err != nil {
		return nil, nil, nil, errors.Wrapf(err, "opening parquet file %q", path)
	}
	pr, err := reader.NewParquetColumnReader(pf, parquetReaderParallelism)
	if err != nil {
		_ = pf.Close()
		return nil, nil, nil, errors.Wrapf(err, "reading parquet footer of %q", path)
	}
	handler := pr.SchemaHandler
	columns := make([]parquetColumn, 0, len(handler.ValueColumns))
	for ii, pathStr := range handler.ValueColumns {
		schemaIdx := handler.MapIndex[pathStr]
		element := handler.SchemaElements[schemaIdx]
		col := parquetColumn{index: int64(ii), name: handler.GetExName(int(schemaIdx))}
		if element.Type != nil {
			col.pType = *element.Type
		}
		columns = append(columns, col)
	}
	return pf, pr, columns, nil
}

func parquetColumns(path string) ([]string, error) {
	pf, pr, columns, err := openParquet(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = pf.Close() }()
	defer pr.ReadStop()
	names := make([]string, len(columns))
	for ii, col := range columns {
		names[ii] = col.name
	}
	return names, nil
}

// readParquet reads the requested columns (all if none are given) of a parquet file.
//
// Floating point columns are quantized to float16 precision. Integer columns are converted to floats
// (nulls become NaN), and byte arrays to strings (nulls become "NaN").
func readParquet(path string, wantColumns []string) (dataframe.DataFrame, error) {
	pf, pr, columns, err := openParquet(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer func() { _ = pf.Close() }()
	defer pr.ReadStop()

	byName := make(map[string]parquetColumn, len(columns))
	for _, col := range columns {
		byName[col.name] = col
	}
	selected := columns
	if len(wantColumns) > 0 {
		selected = make([]parquetColumn, 0, len(wantColumns))
		for _, name := range wantColumns {
			col, found := byName[name]
			if !found {
				return dataframe.DataFrame{}, data.NotFoundf("column %q not found in parquet file %q", name, path)
			}
			selected = append(selected, col)
		}
	}

	numRows := pr.GetNumRows()
	allSeries := make([]series.Series, 0, len(selected))
	for _, col := range selected {
		if numRows == 0 {
			allSeries = append(allSeries, series.New([]string{}, series.String, col.name))
			continue
		}
		values, _, _, err := pr.ReadColumnByIndex(col.index, numRows)
		if err != nil {
			return dataframe.DataFrame{}, errors.Wrapf(err, "reading column %q of %q", col.name, path)
		}
		if int64(len(values)) != numRows {
			return dataframe.DataFrame{}, errors.Wrapf(data.ErrSchemaMismatch,
				"column %q of %q has %d values for %d rows (nested columns are not supported)",
				col.name, path, len(values), numRows)
		}
		s, err := parquetSeries(col, values)
		if err != nil {
			return dataframe.DataFrame{}, errors.WithMessagef(err, "parquet file %q", path)
		}
		allSeries = append(allSeries, s)
	}
	df := dataframe.New(allSeries...)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "building table from %q", path)
	}
	return df, nil
}

// quantize rounds v to the nearest float16 value.
func quantize(v float64) float64 {
	if math.IsNaN(v) {
		return v
	}
	return float64(float16.Fromfloat32(float32(v)).Float32())
}

func parquetSeries(col parquetColumn, values []any) (series.Series, error) {
	switch col.pType {
	case parquet.Type_FLOAT, parquet.Type_DOUBLE, parquet.Type_INT32, parquet.Type_INT64:
		floats := make([]float64, len(values))
		for ii, v := range values {
			switch typed := v.(type) {
			case nil:
				floats[ii] = math.NaN()
			case float32:
				floats[ii] = quantize(float64(typed))
			case float64:
				floats[ii] = quantize(typed)
			case int32:
				floats[ii] = float64(typed)
			case int64:
				floats[ii] = float64(typed)
			default:
				return series.Series{}, errors.Errorf("column %q: unexpected value type %T", col.name, v)
			}
		}
		return series.New(floats, series.Float, col.name), nil
	case parquet.Type_BOOLEAN:
		floats := make([]float64, len(values))
		for ii, v := range values {
			switch typed := v.(type) {
			case nil:
				floats[ii] = math.NaN()
			case bool:
				if typed {
					floats[ii] = 1
				}
			default:
				return series.Series{}, errors.Errorf("column %q: unexpected value type %T", col.name, v)
			}
		}
		return series.New(floats, series.Float, col.name), nil
	}
	strs := make([]string, len(values))
	for ii, v := range values {
		switch typed := v.(type) {
		case nil:
			strs[ii] = "NaN"
		case string:
			strs[ii] = typed
		default:
			strs[ii] = fmt.Sprint(typed)
		}
	}
	return series.New(strs, series.String, col.name), nil
}

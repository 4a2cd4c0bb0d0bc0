// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package tables reads molecule tables (CSV, TSV, Parquet and SDF files, optionally compressed) into
// gota DataFrames.
//
// Text formats are loaded with every column as strings, so values that fail to parse as numbers are
// handled downstream (as NaN) and never by type detection. Parquet numeric columns are loaded as floats.
package tables

import (
	"io"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/support/sets"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// Kind of table file.
//
//go:generate go tool enumer -type=Kind -trimprefix=Kind -transform=lower -output=gen_kind_enumer.go
type Kind int

const (
	KindUnknown Kind = iota
	KindCSV
	KindTSV
	KindParquet
	KindSDF
)

// Compression of a table file, taken from its last extension.
//
//go:generate go tool enumer -type=Compression -trimprefix=Compression -transform=lower -output=gen_compression_enumer.go
type Compression int

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionBzip2
)

var compressionExtensions = map[string]Compression{
	".gz":   CompressionGzip,
	".gzip": CompressionGzip,
	".zst":  CompressionZstd,
	".zstd": CompressionZstd,
	".bz2":  CompressionBzip2,
}

var kindExtensions = map[string]Kind{
	".csv":     KindCSV,
	".tsv":     KindTSV,
	".parquet": KindParquet,
	".sdf":     KindSDF,
}

// NaNValues are the cell values read as missing in text tables.
var NaNValues = []string{"", "NA", "N/A", "NaN", "nan", "null", "None", "<nil>"}

// SMILESColumn is the name of the column holding the molecules read from SDF files.
const SMILESColumn = "smiles"

// KindOf returns the kind and compression of a table file from its (possibly compound) extension, e.g.:
// "data.csv.gz" is a gzip compressed CSV file.
//
// Unknown extensions and compressed Parquet files (Parquet compresses internally) return
// data.ErrUnsupportedFormat.
func KindOf(path string) (Kind, Compression, error) {
	name := strings.ToLower(filepath.Base(path))
	ext := filepath.Ext(name)
	compression, compressed := compressionExtensions[ext]
	if compressed {
		name = strings.TrimSuffix(name, ext)
		ext = filepath.Ext(name)
	}
	kind, found := kindExtensions[ext]
	if !found {
		return KindUnknown, CompressionNone, errors.Wrapf(data.ErrUnsupportedFormat,
			"file %q: expected extensions .csv, .tsv, .parquet or .sdf, optionally followed by .gz, .zst or .bz2", path)
	}
	if kind == KindParquet && compression != CompressionNone {
		return KindUnknown, CompressionNone, errors.Wrapf(data.ErrUnsupportedFormat,
			"file %q: parquet files can't be externally compressed", path)
	}
	return kind, compression, nil
}

// Glob returns the sorted list of files matching pathOrGlob, or data.ErrNotFound if there are none.
// A path without glob metacharacters must exist.
func Glob(pathOrGlob string) ([]string, error) {
	paths, err := filepath.Glob(pathOrGlob)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid glob pattern %q", pathOrGlob)
	}
	if len(paths) == 0 {
		return nil, data.NotFoundf("no files match %q", pathOrGlob)
	}
	slices.Sort(paths)
	return paths, nil
}

// Read the table(s) matching pathOrGlob. If more than one file matches, their rows are concatenated in
// (sorted) file order, and their column sets must be the same (data.ErrSchemaMismatch otherwise).
//
// If columns are given, only those are returned (and only those are read from Parquet files); a missing
// one is data.ErrNotFound.
func Read(pathOrGlob string, columns ...string) (dataframe.DataFrame, error) {
	paths, err := Glob(pathOrGlob)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	var result dataframe.DataFrame
	var firstColumns sets.Set[string]
	for ii, path := range paths {
		df, err := readFile(path, columns)
		if err != nil {
			return dataframe.DataFrame{}, err
		}
		if ii == 0 {
			result = df
			firstColumns = sets.MakeWith(df.Names()...)
			continue
		}
		if !firstColumns.Equal(sets.MakeWith(df.Names()...)) {
			return dataframe.DataFrame{}, errors.Wrapf(data.ErrSchemaMismatch,
				"file %q has columns %q, but %q has columns %q", path, df.Names(), paths[0], result.Names())
		}
		result = result.RBind(df)
		if result.Err != nil {
			return dataframe.DataFrame{}, errors.Wrapf(result.Err, "concatenating %q", path)
		}
	}
	klog.V(1).Infof("tables: read %d rows and %d columns from %d file(s) matching %q",
		result.Nrow(), result.Ncol(), len(paths), pathOrGlob)
	return result, nil
}

// PeekColumns returns the column names of a table, reading only its header (or schema). For globs, the
// first matching file is used.
func PeekColumns(pathOrGlob string) ([]string, error) {
	paths, err := Glob(pathOrGlob)
	if err != nil {
		return nil, err
	}
	path := paths[0]
	kind, compression, err := KindOf(path)
	if err != nil {
		return nil, err
	}
	switch kind {
	case KindParquet:
		return parquetColumns(path)
	case KindSDF:
		// Fields are only known after reading the records.
		df, err := readFile(path, nil)
		if err != nil {
			return nil, err
		}
		return df.Names(), nil
	}
	r, err := openDecompressed(path, compression)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()
	reader := newTextReader(r, kind)
	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "reading header of %q", path)
	}
	return header, nil
}

// readFile reads one table file.
func readFile(path string, columns []string) (dataframe.DataFrame, error) {
	kind, compression, err := KindOf(path)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	var df dataframe.DataFrame
	switch kind {
	case KindParquet:
		df, err = readParquet(path, columns)
	case KindSDF:
		df, err = readSDF(path, compression)
	default:
		df, err = readText(path, kind, compression)
	}
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	if len(columns) == 0 {
		return df, nil
	}
	return selectColumns(df, columns, path)
}

func selectColumns(df dataframe.DataFrame, columns []string, path string) (dataframe.DataFrame, error) {
	available := sets.MakeWith(df.Names()...)
	for _, col := range columns {
		if !available.Has(col) {
			return dataframe.DataFrame{}, data.NotFoundf("column %q not found in %q (columns: %q)", col, path, df.Names())
		}
	}
	df = df.Select(columns)
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "selecting columns %q from %q", columns, path)
	}
	return df, nil
}

func readText(path string, kind Kind, compression Compression) (dataframe.DataFrame, error) {
	r, err := openDecompressed(path, compression)
	if err != nil {
		return dataframe.DataFrame{}, err
	}
	defer func() { _ = r.Close() }()
	reader := newTextReader(r, kind)
	records, err := reader.ReadAll()
	if err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(err, "reading %s file %q", kind, path)
	}
	if len(records) == 0 {
		return dataframe.DataFrame{}, errors.Wrapf(data.ErrSchemaMismatch, "file %q has no header", path)
	}
	if len(records) == 1 {
		// Header only: gota doesn't build empty DataFrames from records.
		return emptyFrame(records[0]), nil
	}
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.NaNValues(NaNValues))
	if df.Err != nil {
		return dataframe.DataFrame{}, errors.Wrapf(df.Err, "parsing %s file %q", kind, path)
	}
	return df, nil
}

// emptyFrame returns a DataFrame with the given string columns and no rows.
func emptyFrame(names []string) dataframe.DataFrame {
	cols := make([]series.Series, len(names))
	for ii, name := range names {
		cols[ii] = series.New([]string{}, series.String, name)
	}
	return dataframe.New(cols...)
}

// closerFunc adapts a function to io.Closer.
type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// readCloser joins a reader with the closer of its underlying file.
type readCloser struct {
	io.Reader
	io.Closer
}

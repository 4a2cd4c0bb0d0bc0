// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tables

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/janpfeifer/must"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/writer"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

func writeGzip(t *testing.T, path, contents string) {
	t.Helper()
	f := must.M1(os.Create(path))
	gz := gzip.NewWriter(f)
	must.M1(gz.Write([]byte(contents)))
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func writeZstd(t *testing.T, path, contents string) {
	t.Helper()
	f := must.M1(os.Create(path))
	zw := must.M1(zstd.NewWriter(f))
	must.M1(zw.Write([]byte(contents)))
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

type parquetRow struct {
	SMILES string   `parquet:"name=smiles, type=BYTE_ARRAY, convertedtype=UTF8"`
	Y      float64  `parquet:"name=y, type=DOUBLE"`
	Z      *float32 `parquet:"name=z, type=FLOAT, repetitiontype=OPTIONAL"`
	Idx    int64    `parquet:"name=idx, type=INT64"`
}

func writeParquet(t *testing.T, path string, rows []parquetRow) {
	t.Helper()
	fw := must.M1(local.NewLocalFileWriter(path))
	pw := must.M1(writer.NewParquetWriter(fw, new(parquetRow), 1))
	for _, row := range rows {
		require.NoError(t, pw.Write(row))
	}
	require.NoError(t, pw.WriteStop())
	require.NoError(t, fw.Close())
}

func TestKindOf(t *testing.T) {
	for path, want := range map[string][2]int{
		"a.csv":        {int(KindCSV), int(CompressionNone)},
		"dir/a.CSV.gz": {int(KindCSV), int(CompressionGzip)},
		"a.tsv.zst":    {int(KindTSV), int(CompressionZstd)},
		"a.sdf.bz2":    {int(KindSDF), int(CompressionBzip2)},
		"a.parquet":    {int(KindParquet), int(CompressionNone)},
	} {
		kind, compression, err := KindOf(path)
		require.NoError(t, err, path)
		assert.Equal(t, Kind(want[0]), kind, path)
		assert.Equal(t, Compression(want[1]), compression, path)
	}
	for _, path := range []string{"a.txt", "a.gz", "a.parquet.gz", "a"} {
		_, _, err := KindOf(path)
		require.Error(t, err, path)
		assert.True(t, errors.Is(err, data.ErrUnsupportedFormat), path)
	}
}

func TestReadText(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.csv"), "smiles,y1,y2\nCCO,1,0.5\nCCN,NA,x\n")
	df, err := Read(filepath.Join(dir, "a.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"smiles", "y1", "y2"}, df.Names())
	assert.Equal(t, []string{"CCO", "CCN"}, df.Col("smiles").Records())
	y1 := df.Col("y1").Float()
	assert.Equal(t, 1.0, y1[0])
	assert.True(t, math.IsNaN(y1[1]))
	y2 := df.Col("y2").Float()
	assert.Equal(t, 0.5, y2[0])
	assert.True(t, math.IsNaN(y2[1]), "non-numeric values become NaN")

	writeGzip(t, filepath.Join(dir, "b.tsv.gz"), "smiles\ty1\nC\t3\n")
	df, err = Read(filepath.Join(dir, "b.tsv.gz"))
	require.NoError(t, err)
	assert.Equal(t, []string{"C"}, df.Col("smiles").Records())

	writeZstd(t, filepath.Join(dir, "c.csv.zst"), "smiles,y1\nO,2\n")
	df, err = Read(filepath.Join(dir, "c.csv.zst"), "y1")
	require.NoError(t, err)
	assert.Equal(t, []string{"y1"}, df.Names())
	assert.Equal(t, []float64{2}, df.Col("y1").Float())

	// Header only.
	writeFile(t, filepath.Join(dir, "empty.csv"), "smiles,y1\n")
	df, err = Read(filepath.Join(dir, "empty.csv"))
	require.NoError(t, err)
	assert.Equal(t, 0, df.Nrow())
	assert.Equal(t, []string{"smiles", "y1"}, df.Names())

	// Missing column.
	_, err = Read(filepath.Join(dir, "a.csv"), "y3")
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrNotFound))
}

func TestReadGlob(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "part-1.csv"), "smiles,y\nC,1\nCC,2\n")
	writeFile(t, filepath.Join(dir, "part-2.csv"), "y,smiles\n3,CCC\n")
	df, err := Read(filepath.Join(dir, "part-*.csv"))
	require.NoError(t, err)
	assert.Equal(t, 3, df.Nrow())
	assert.Equal(t, []string{"C", "CC", "CCC"}, df.Col("smiles").Records())
	assert.Equal(t, []float64{1, 2, 3}, df.Col("y").Float())

	writeFile(t, filepath.Join(dir, "part-3.csv"), "smiles,z\nCCCC,4\n")
	_, err = Read(filepath.Join(dir, "part-*.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrSchemaMismatch))

	_, err = Read(filepath.Join(dir, "nothing-*.csv"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrNotFound))

	columns, err := PeekColumns(filepath.Join(dir, "part-*.csv"))
	require.NoError(t, err)
	assert.Equal(t, []string{"smiles", "y"}, columns)
}

func TestReadParquet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mols.parquet")
	z := float32(2.5)
	writeParquet(t, path, []parquetRow{
		{SMILES: "CCO", Y: 0.1, Z: &z, Idx: 7},
		{SMILES: "c1ccccc1", Y: 1, Z: nil, Idx: 8},
	})

	columns, err := PeekColumns(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"smiles", "y", "z", "idx"}, columns)

	df, err := Read(path, "smiles", "y", "z")
	require.NoError(t, err)
	assert.Equal(t, []string{"smiles", "y", "z"}, df.Names())
	assert.Equal(t, []string{"CCO", "c1ccccc1"}, df.Col("smiles").Records())
	y := df.Col("y").Float()
	assert.InDelta(t, 0.1, y[0], 1e-3)
	assert.NotEqual(t, 0.1, y[0], "floats are quantized to float16")
	assert.Equal(t, 1.0, y[1])
	zs := df.Col("z").Float()
	assert.Equal(t, 2.5, zs[0])
	assert.True(t, math.IsNaN(zs[1]))

	df, err = Read(path)
	require.NoError(t, err)
	assert.Equal(t, []float64{7, 8}, df.Col("idx").Float())

	_, err = Read(path, "w")
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrNotFound))
}

func TestReadSDF(t *testing.T) {
	dir := t.TempDir()
	contents := `ethanol


  3  2  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.0000    1.2000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  END
> <logS>
-0.77

$$$$
methane


  1  0  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
M  END
> <logS>
-0.5

> <source>
lab

$$$$
`
	writeGzip(t, filepath.Join(dir, "mols.sdf.gz"), contents)
	df, err := Read(filepath.Join(dir, "mols.sdf.gz"))
	require.NoError(t, err)
	assert.Equal(t, []string{SMILESColumn, "logS", "source"}, df.Names())
	assert.Equal(t, []string{"CCO", "C"}, df.Col(SMILESColumn).Records())
	assert.Equal(t, []float64{-0.77, -0.5}, df.Col("logS").Float())
	assert.Equal(t, []string{"NaN", "lab"}, df.Col("source").Records())
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package tables

import (
	"compress/bzip2"
	"encoding/csv"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// openDecompressed opens the file and wraps it with a decompressing reader. Closing the returned reader
// closes the file.
func openDecompressed(path string, compression Compression) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	switch compression {
	case CompressionNone:
		return f, nil
	case CompressionGzip:
		gz, err := gzip.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "reading gzip header of %q", path)
		}
		return readCloser{Reader: gz, Closer: closerFunc(func() error {
			_ = gz.Close()
			return f.Close()
		})}, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(f)
		if err != nil {
			_ = f.Close()
			return nil, errors.Wrapf(err, "opening zstd stream of %q", path)
		}
		return readCloser{Reader: zr, Closer: closerFunc(func() error {
			zr.Close()
			return f.Close()
		})}, nil
	case CompressionBzip2:
		return readCloser{Reader: bzip2.NewReader(f), Closer: f}, nil
	}
	_ = f.Close()
	return nil, errors.Errorf("unknown compression %s for %q", compression, path)
}

// newTextReader returns a CSV reader configured for the delimiter of kind.
func newTextReader(r io.Reader, kind Kind) *csv.Reader {
	reader := csv.NewReader(r)
	if kind == KindTSV {
		reader.Comma = '\t'
	}
	reader.LazyQuotes = true
	reader.ReuseRecord = false
	return reader
}

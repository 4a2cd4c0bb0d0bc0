// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package data holds what is shared by the molecular data pipeline packages: the error taxonomy and the
// training stages.
//
// Errors returned by the pipeline wrap one of the sentinel errors below (with github.com/pkg/errors), so
// callers can test for the kind of failure with errors.Is:
//
//	df, err := tables.Read("data/*.csv.gz")
//	if errors.Is(err, data.ErrNotFound) { ... }
package data

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when no file matches a path or glob, or a requested column is missing.
	ErrNotFound = errors.New("not found")

	// ErrSchemaMismatch is returned when concatenating files with different sets of columns.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrAmbiguousColumn is returned when the SMILES column is not given, and zero or more than one
	// column name contains "smile".
	ErrAmbiguousColumn = errors.New("ambiguous column")

	// ErrUnsupportedFormat is returned for file extensions the table reader doesn't know about.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrFeaturizationFailure marks a molecule that couldn't be featurized. It is never fatal: the molecule is
	// filtered out and reported in an aggregated warning.
	ErrFeaturizationFailure = errors.New("featurization failed")

	// ErrCacheCorruption is returned when a cache file exists but can't be decoded. Callers treat it as a
	// cache miss.
	ErrCacheCorruption = errors.New("cache corrupted")

	// ErrConfiguration is returned for invalid combinations of configuration values. It is raised at
	// construction time, before any expensive work.
	ErrConfiguration = errors.New("invalid configuration")
)

// Configurationf returns an error wrapping ErrConfiguration with the formatted message.
func Configurationf(format string, args ...any) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}

// NotFoundf returns an error wrapping ErrNotFound with the formatted message.
func NotFoundf(format string, args ...any) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}

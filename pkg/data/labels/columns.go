// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package labels

import (
	"strings"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/pkg/errors"
)

// Wildcard marks a label column pattern: "prefix*" selects the columns starting with prefix, and
// "*suffix" the columns ending with suffix.
const Wildcard = "*"

// FindSMILESColumn returns the only column whose name contains "smile" (case-insensitive). It fails with
// data.ErrAmbiguousColumn if there are none or more than one.
func FindSMILESColumn(columns []string) (string, error) {
	var found []string
	for _, col := range columns {
		if strings.Contains(strings.ToLower(col), "smile") {
			found = append(found, col)
		}
	}
	switch len(found) {
	case 0:
		return "", errors.Wrapf(data.ErrAmbiguousColumn, "no SMILES column found, columns are %q", columns)
	case 1:
		return found[0], nil
	}
	return "", errors.Wrapf(data.ErrAmbiguousColumn, "multiple SMILES columns found: %q", found)
}

// ResolveLabelColumns expands the label columns specification against the table columns.
//
// A nil spec selects every column except smilesCol and the columns in exclude. Otherwise each entry is
// either a literal column name (data.ErrNotFound if missing) or a pattern with a leading or trailing
// Wildcard, expanded to the matching columns in table order. The result has no duplicates and is always a
// new slice.
func ResolveLabelColumns(columns []string, smilesCol string, spec []string, exclude ...string) ([]string, error) {
	if spec == nil {
		excluded := make(map[string]bool, 1+len(exclude))
		excluded[smilesCol] = true
		for _, col := range exclude {
			excluded[col] = true
		}
		resolved := make([]string, 0, len(columns))
		for _, col := range columns {
			if !excluded[col] {
				resolved = append(resolved, col)
			}
		}
		return resolved, nil
	}

	available := make(map[string]bool, len(columns))
	for _, col := range columns {
		available[col] = true
	}
	seen := make(map[string]bool)
	resolved := make([]string, 0, len(spec))
	add := func(col string) {
		if !seen[col] {
			seen[col] = true
			resolved = append(resolved, col)
		}
	}
	for _, entry := range spec {
		switch {
		case entry != Wildcard && strings.HasSuffix(entry, Wildcard):
			prefix := strings.TrimSuffix(entry, Wildcard)
			for _, col := range columns {
				if col != smilesCol && strings.HasPrefix(col, prefix) {
					add(col)
				}
			}
		case entry != Wildcard && strings.HasPrefix(entry, Wildcard):
			suffix := strings.TrimPrefix(entry, Wildcard)
			for _, col := range columns {
				if col != smilesCol && strings.HasSuffix(col, suffix) {
					add(col)
				}
			}
		default:
			if !available[entry] {
				return nil, data.NotFoundf("label column %q not found, columns are %q", entry, columns)
			}
			add(entry)
		}
	}
	return resolved, nil
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package splits

import (
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/tables"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// readExternal returns the list of indices of each of the names from a split file.
func readExternal(path string, names []string) ([][]int, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
		return readMapping(path, names)
	}
	kind, _, err := tables.KindOf(path)
	if err != nil {
		return nil, err
	}
	if kind != tables.KindCSV && kind != tables.KindTSV {
		return nil, errors.Wrapf(data.ErrUnsupportedFormat, "split files must be csv, tsv, json or yaml, got %s", kind)
	}
	df, err := tables.Read(path, names...)
	if err != nil {
		return nil, err
	}
	lists := make([][]int, len(names))
	for ii, name := range names {
		lists[ii] = []int{}
		for row, v := range df.Col(name).Float() {
			if math.IsNaN(v) {
				continue
			}
			if v != math.Trunc(v) || v < 0 {
				return nil, errors.Errorf("split %q has invalid index %g in row %d", name, v, row)
			}
			lists[ii] = append(lists[ii], int(v))
		}
	}
	return lists, nil
}

// readMapping reads a JSON or YAML mapping of split name to indices. YAML being a superset of JSON, the
// YAML decoder reads both.
func readMapping(path string, names []string) ([][]int, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, data.NotFoundf("split file %q", path)
		}
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	var mapping map[string][]int
	if err := yaml.Unmarshal(contents, &mapping); err != nil {
		return nil, errors.Wrapf(err, "parsing %q", path)
	}
	lists := make([][]int, len(names))
	for ii, name := range names {
		list, found := mapping[name]
		if !found {
			return nil, data.NotFoundf("split %q missing in %q", name, path)
		}
		for _, v := range list {
			if v < 0 {
				return nil, errors.Errorf("split %q has negative index %d", name, v)
			}
		}
		lists[ii] = list
	}
	return lists, nil
}

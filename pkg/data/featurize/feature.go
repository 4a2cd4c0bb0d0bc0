// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package featurize converts molecules into graph features: one node per atom, two directed edges per bond,
// and optional node-level positional encodings.
package featurize

import (
	"math"
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// MoleculeFeature is the graph representation of one molecule.
//
// It is treated as read-only once created: datasets share the same feature among all rows (and tasks)
// that refer to the molecule.
type MoleculeFeature struct {
	NumNodes, NumEdges int

	// NodeDim and EdgeDim are the widths of the node and edge feature rows.
	NodeDim, EdgeDim int

	// NodeFeatures is shaped [NumNodes, NodeDim], row-major.
	NodeFeatures []float32

	// EdgeFeatures is shaped [NumEdges, EdgeDim], row-major.
	EdgeFeatures []float32

	// EdgeSrc and EdgeDst hold the source and destination node of each edge. Each bond of the molecule
	// appears twice, once in each direction.
	EdgeSrc, EdgeDst []int32

	// PositionalEncodings are node-level encodings shaped [NumNodes, PositionalDims[name]].
	PositionalEncodings map[string][]float32
	PositionalDims      map[string]int
}

// PositionalNames returns the names of the positional encodings, sorted.
func (f *MoleculeFeature) PositionalNames() []string {
	names := maps.Keys(f.PositionalDims)
	slices.Sort(names)
	return names
}

// Validate checks the structure of the feature: consistent sizes, edge endpoints within the nodes and
// finite values.
func (f *MoleculeFeature) Validate() error {
	if f == nil {
		return errors.New("nil feature")
	}
	if f.NumNodes <= 0 {
		return errors.Errorf("feature has %d nodes", f.NumNodes)
	}
	if f.NumEdges < 0 || f.NodeDim < 0 || f.EdgeDim < 0 {
		return errors.Errorf("invalid dimensions: NumEdges=%d, NodeDim=%d, EdgeDim=%d", f.NumEdges, f.NodeDim, f.EdgeDim)
	}
	if len(f.NodeFeatures) != f.NumNodes*f.NodeDim {
		return errors.Errorf("node features have %d values, wanted %d nodes x %d", len(f.NodeFeatures), f.NumNodes, f.NodeDim)
	}
	if len(f.EdgeFeatures) != f.NumEdges*f.EdgeDim {
		return errors.Errorf("edge features have %d values, wanted %d edges x %d", len(f.EdgeFeatures), f.NumEdges, f.EdgeDim)
	}
	if len(f.EdgeSrc) != f.NumEdges || len(f.EdgeDst) != f.NumEdges {
		return errors.Errorf("edge index has %d sources and %d destinations, wanted %d", len(f.EdgeSrc), len(f.EdgeDst), f.NumEdges)
	}
	for ii := range f.NumEdges {
		src, dst := f.EdgeSrc[ii], f.EdgeDst[ii]
		if src < 0 || dst < 0 || int(src) >= f.NumNodes || int(dst) >= f.NumNodes {
			return errors.Errorf("edge %d connects nodes %d->%d, but there are only %d nodes", ii, src, dst, f.NumNodes)
		}
	}
	if err := checkFinite("node features", f.NodeFeatures); err != nil {
		return err
	}
	if err := checkFinite("edge features", f.EdgeFeatures); err != nil {
		return err
	}
	if len(f.PositionalEncodings) != len(f.PositionalDims) {
		return errors.Errorf("%d positional encodings but %d dimensions", len(f.PositionalEncodings), len(f.PositionalDims))
	}
	for name, dim := range f.PositionalDims {
		values, found := f.PositionalEncodings[name]
		if !found {
			return errors.Errorf("missing positional encoding %q", name)
		}
		if len(values) != f.NumNodes*dim {
			return errors.Errorf("positional encoding %q has %d values, wanted %d nodes x %d", name, len(values), f.NumNodes, dim)
		}
		if err := checkFinite("positional encoding "+name, values); err != nil {
			return err
		}
	}
	return nil
}

func checkFinite(what string, values []float32) error {
	for ii, v := range values {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return errors.Errorf("%s has non-finite value %g at position %d", what, v, ii)
		}
	}
	return nil
}

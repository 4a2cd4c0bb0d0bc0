// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datamodule

import (
	"maps"

	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/pkg/errors"
)

// FakeGraphMolecule is the molecule featurized by FakeGraph: benzene.
const FakeGraphMolecule = "C1=CC=CC=C1"

// Input names of InDims.
const (
	InputNodeFeatures = "feat"
	InputEdgeFeatures = "edge_feat"
)

// NumNodeFeats is the width of the node features.
func (dm *DataModule) NumNodeFeats() int { return dm.config.Featurization.NodeDim() }

// NumEdgeFeats is the width of the edge features.
func (dm *DataModule) NumEdgeFeats() int { return dm.config.Featurization.EdgeDim() }

// InDims returns the width of every node or edge level input: InputNodeFeatures, InputEdgeFeatures and
// each configured positional encoding.
func (dm *DataModule) InDims() map[string]int {
	dims := map[string]int{
		InputNodeFeatures: dm.NumNodeFeats(),
		InputEdgeFeatures: dm.NumEdgeFeats(),
	}
	maps.Copy(dims, dm.config.Featurization.PositionalDims())
	return dims
}

// FakeGraph featurizes FakeGraphMolecule with the configured featurizer, e.g. to build a model before any
// data is prepared.
func (dm *DataModule) FakeGraph() (*featurize.MoleculeFeature, error) {
	feature, err := dm.featurizer(FakeGraphMolecule)
	if err != nil {
		return nil, errors.WithMessagef(err, "featurizing fake graph %q", FakeGraphMolecule)
	}
	if feature == nil {
		return nil, errors.Errorf("featurizer failed on fake graph %q", FakeGraphMolecule)
	}
	return feature, nil
}

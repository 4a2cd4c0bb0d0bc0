// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package collate

import (
	"fmt"
	"math"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testItems(t *testing.T, cfg featurize.Config) []*datasets.Item {
	t.Helper()
	fn := must.M1(featurize.GraphFeaturizer(cfg))
	return []*datasets.Item{
		{MolID: "C", SMILES: "C", Feature: must.M1(fn("C")),
			Labels: map[string][]float32{"a": {1, 2}, "b": {3}}},
		{MolID: "CC", SMILES: "C-C", Feature: must.M1(fn("CC")),
			Labels:  map[string][]float32{"b": {float32(math.NaN())}},
			Weights: map[string][]float32{"b": {0.5}}},
		{MolID: "CCO", SMILES: "OCC", Feature: must.M1(fn("CCO")),
			Labels: map[string][]float32{"a": {5, 6}}},
	}
}

func dims(t *tensors.Tensor) []int {
	return t.Shape().Dimensions
}

func TestCollate(t *testing.T) {
	items := testItems(t, featurize.DefaultConfig())
	collator := must.M1(New(DefaultConfig(map[string]int{"b": 1, "a": 2})))
	assert.Equal(t, []string{"a", "b"}, collator.Tasks())

	batch, err := collator.Collate(items)
	require.NoError(t, err)
	assert.Equal(t, 3, batch.Size)
	assert.Nil(t, batch.Packs)
	assert.Equal(t, "collate.Batch(tasks=a,b)", fmt.Sprint(batch))
	g := batch.Graph
	require.NotNil(t, g)
	assert.Equal(t, 3, g.NumGraphs)
	assert.Equal(t, 6, g.NumNodes)
	assert.Equal(t, 6, g.NumEdges)
	assert.Equal(t, []int32{1, 2, 3, 4, 4, 5}, g.EdgeSrc)
	assert.Equal(t, []int32{2, 1, 4, 3, 5, 4}, g.EdgeDst)
	assert.Equal(t, []int32{0, 1, 1, 2, 2, 2}, g.GraphIndex)
	assert.Nil(t, g.NodeMask)

	inputs := batch.Inputs()
	assert.Equal(t, []string{"node_features", "edge_features", "edge_index", "graph_index"}, g.InputNames())
	require.Len(t, inputs, 4)
	assert.Equal(t, []int{6, 44}, dims(inputs[0]))
	assert.Equal(t, []int{6, 7}, dims(inputs[1]))
	assert.Equal(t, []int{2, 6}, dims(inputs[2]))
	assert.Equal(t, []int32{1, 2, 3, 4, 4, 5, 2, 1, 4, 3, 5, 4}, tensors.CopyFlatData[int32](inputs[2]))

	labels := batch.LabelTensors()
	require.Len(t, labels, 2)
	assert.Equal(t, []int{3, 2}, dims(labels[0]))
	assert.Equal(t, []float32{1, 2, 0, 0, 5, 6}, tensors.CopyFlatData[float32](labels[0]))
	assert.Equal(t, []float32{3, 0, 0}, tensors.CopyFlatData[float32](labels[1]))

	require.Contains(t, batch.Weights, "b")
	assert.NotContains(t, batch.Weights, "a")
	assert.Equal(t, []float32{0, 0.5, 0}, tensors.CopyFlatData[float32](batch.Weights["b"]))

	assert.Equal(t, map[string][]string{
		KeySMILES: {"C", "C-C", "OCC"},
		KeyMolIDs: {"C", "CC", "CCO"},
	}, batch.Extras)

	// Without masking NaN labels are kept.
	cfg := DefaultConfig(map[string]int{"a": 2})
	cfg.MaskNaN = nil
	cfg.DoNotCollate = []string{KeyMolIDs}
	batch, err = must.M1(New(cfg)).Collate(items)
	require.NoError(t, err)
	values := tensors.CopyFlatData[float32](batch.Labels["a"])
	assert.True(t, math.IsNaN(float64(values[2])))
	assert.NotContains(t, batch.Extras, KeySMILES)

	_, err = collator.Collate(nil)
	require.Error(t, err)

	_, err = must.M1(New(DefaultConfig(map[string]int{"a": 3}))).Collate(items)
	require.Error(t, err, "label width mismatch")
}

func TestCollatePositional(t *testing.T) {
	cfg := featurize.DefaultConfig()
	cfg.PositionalEncodings = []featurize.PositionalEncoding{{Type: featurize.LaplacianEigvec, K: 2}}
	items := testItems(t, cfg)
	batch, err := must.M1(New(DefaultConfig(map[string]int{"a": 2}))).Collate(items)
	require.NoError(t, err)
	assert.Equal(t, "pe_laplacian_eigvec", batch.Graph.InputNames()[4])
	inputs := batch.Inputs()
	require.Len(t, inputs, 5)
	assert.Equal(t, []int{6, 2}, dims(inputs[4]))
}

func TestCollatePacks(t *testing.T) {
	items := testItems(t, featurize.DefaultConfig())
	collator := must.M1(New(DefaultConfig(map[string]int{"a": 2, "b": 1})))
	packed := must.M1(collator.WithPacking(2, 3, 4, 0))
	batch, err := packed.Collate(items)
	require.NoError(t, err)
	assert.Nil(t, batch.Graph)
	require.Len(t, batch.Packs, 2)
	assert.Equal(t, "collate.Batch(packs=2, tasks=a,b)", batch.String())

	pack := batch.Packs[0]
	assert.Equal(t, 2, pack.NumGraphs)
	assert.Equal(t, 7, pack.NumNodes)
	assert.Equal(t, 8, pack.NumEdges)
	assert.Equal(t, []int32{0, 1, 1, 2, 2, 2, 2}, pack.GraphIndex)
	assert.Equal(t, []bool{true, true, true, false, false, false, false}, pack.NodeMask)
	assert.Equal(t, []bool{true, true, false, false, false, false, false, false}, pack.EdgeMask)
	assert.Equal(t, []int32{1, 2, 6, 6, 6, 6, 6, 6}, pack.EdgeSrc)
	assert.Len(t, pack.NodeFeatures, 7*44)

	pack = batch.Packs[1]
	assert.Equal(t, []int32{0, 0, 0, 2, 2, 2, 2}, pack.GraphIndex)

	inputs := batch.Inputs()
	assert.Equal(t, []string{"node_features", "edge_features", "edge_index", "graph_index", "node_mask", "edge_mask"},
		pack.InputNames())
	require.Len(t, inputs, 6)
	assert.Equal(t, []int{2, 7, 44}, dims(inputs[0]))
	assert.Equal(t, []int{2, 8, 7}, dims(inputs[1]))
	assert.Equal(t, []int{2, 2, 8}, dims(inputs[2]))
	assert.Equal(t, []int{2, 7}, dims(inputs[3]))
	assert.Equal(t, []int{2, 7}, dims(inputs[4]))

	// Labels still cover all items.
	assert.Equal(t, []int{3, 2}, dims(batch.Labels["a"]))

	// A single pack still gets the leading dimension.
	batch, err = packed.Collate(items[:1])
	require.NoError(t, err)
	assert.Equal(t, []int{1, 7, 44}, dims(batch.Inputs()[0]))

	tooSmall := must.M1(collator.WithPacking(1, 1, 4, 0))
	_, err = tooSmall.Collate(items)
	require.Error(t, err)

	// Fixed number of packs: the missing ones are padding.
	fixed := must.M1(collator.WithPacking(2, 3, 4, 3))
	batch, err = fixed.Collate(items[:1])
	require.NoError(t, err)
	require.Len(t, batch.Packs, 3)
	assert.Equal(t, []int{3, 7, 44}, dims(batch.Inputs()[0]))
	assert.Equal(t, []bool{false, false, false, false, false, false, false}, batch.Packs[2].NodeMask)
	assert.Equal(t, []int32{2, 2, 2, 2, 2, 2, 2}, batch.Packs[2].GraphIndex)
	assert.Equal(t, []int{1, 2}, dims(batch.Labels["a"]))
	fixed = must.M1(collator.WithPacking(1, 3, 4, 2))
	_, err = fixed.Collate(items)
	require.Error(t, err, "3 items don't fit in 2 packs of 1")
}

func TestCollatePackWithFullNodes(t *testing.T) {
	fn := must.M1(featurize.GraphFeaturizer(featurize.DefaultConfig()))
	hexane := &datasets.Item{MolID: "CCCCCC", SMILES: "CCCCCC", Feature: must.M1(fn("CCCCCC")),
		Labels: map[string][]float32{"a": {1, 2}}}
	require.Equal(t, 6, hexane.Feature.NumNodes)
	require.Equal(t, 10, hexane.Feature.NumEdges)

	collator := must.M1(New(DefaultConfig(map[string]int{"a": 2})))
	packed := must.M1(collator.WithPacking(1, 6, 12, 1))
	batch, err := packed.Collate([]*datasets.Item{hexane})
	require.NoError(t, err)
	require.Len(t, batch.Packs, 1)
	pack := batch.Packs[0]
	assert.Equal(t, 7, pack.NumNodes)
	assert.Equal(t, []int32{0, 0, 0, 0, 0, 0, 1}, pack.GraphIndex)
	assert.Equal(t, []bool{true, true, true, true, true, true, false}, pack.NodeMask)
	for ii := 10; ii < pack.NumEdges; ii++ {
		assert.False(t, pack.EdgeMask[ii])
		for _, node := range []int32{pack.EdgeSrc[ii], pack.EdgeDst[ii]} {
			assert.Equal(t, int32(pack.NumGraphs), pack.GraphIndex[node], "padding edge %d on a real atom", ii)
		}
	}
	for ii := range 10 {
		assert.Equal(t, int32(0), pack.GraphIndex[pack.EdgeSrc[ii]])
	}
}

func TestConfigValidate(t *testing.T) {
	for _, cfg := range []Config{
		{DoNotCollate: []string{"features"}},
		{LabelsSize: map[string]int{"a": 0}},
		{BatchSizePerPack: -1},
		{BatchSizePerPack: 2},
		{NumPacks: 2},
	} {
		_, err := New(cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, data.ErrConfiguration))
	}
}

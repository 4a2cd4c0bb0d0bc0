// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package collate

import (
	"maps"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Graph is the union of the graphs of a batch (or of a pack) as one disconnected graph.
type Graph struct {
	// NumGraphs is the number of graphs. For packs it is the pack capacity, which may be larger than the
	// number of real graphs.
	NumGraphs int

	// NumNodes and NumEdges include padding.
	NumNodes, NumEdges int
	NodeDim, EdgeDim   int

	// NodeFeatures shaped [NumNodes, NodeDim] and EdgeFeatures shaped [NumEdges, EdgeDim].
	NodeFeatures, EdgeFeatures []float32

	// EdgeSrc and EdgeDst are node indices, already offset to the position of the graph in the batch.
	EdgeSrc, EdgeDst []int32

	// GraphIndex is the graph of each node. Padding nodes belong to graph NumGraphs.
	GraphIndex []int32

	// NodeMask and EdgeMask are false for padding. Only set for packs.
	NodeMask, EdgeMask []bool

	// Positional encodings, each shaped [NumNodes, PositionalDims[name]].
	Positional     map[string][]float32
	PositionalDims map[string]int
}

// packShape are the static dimensions of a pack.
type packShape struct {
	numGraphs, numNodes, numEdges int
}

// concatGraphs concatenates the features of the items. If shape is given, the graph is padded to it.
func concatGraphs(items []*datasets.Item, shape *packShape) (*Graph, error) {
	first := items[0].Feature
	g := &Graph{
		NumGraphs:      len(items),
		NodeDim:        first.NodeDim,
		EdgeDim:        first.EdgeDim,
		PositionalDims: maps.Clone(first.PositionalDims),
	}
	if g.PositionalDims == nil {
		g.PositionalDims = make(map[string]int)
	}
	for _, item := range items {
		f := item.Feature
		if f.NodeDim != g.NodeDim || f.EdgeDim != g.EdgeDim || !maps.Equal(f.PositionalDims, first.PositionalDims) {
			return nil, errors.Errorf("item %q has features of different dimensions than item %q", item.MolID, items[0].MolID)
		}
		g.NumNodes += f.NumNodes
		g.NumEdges += f.NumEdges
	}
	realNodes, realEdges := g.NumNodes, g.NumEdges
	if shape != nil {
		if realNodes > shape.numNodes || realEdges > shape.numEdges {
			return nil, errors.Errorf("%d graphs with %d nodes and %d edges don't fit in a pack of %d nodes and %d edges",
				len(items), realNodes, realEdges, shape.numNodes, shape.numEdges)
		}
		g.NumGraphs, g.NumNodes, g.NumEdges = shape.numGraphs, shape.numNodes, shape.numEdges
	}

	g.NodeFeatures = make([]float32, 0, g.NumNodes*g.NodeDim)
	g.EdgeFeatures = make([]float32, 0, g.NumEdges*g.EdgeDim)
	g.EdgeSrc = make([]int32, 0, g.NumEdges)
	g.EdgeDst = make([]int32, 0, g.NumEdges)
	g.GraphIndex = make([]int32, 0, g.NumNodes)
	g.Positional = make(map[string][]float32, len(g.PositionalDims))
	for name, dim := range g.PositionalDims {
		g.Positional[name] = make([]float32, 0, g.NumNodes*dim)
	}
	var offset int32
	for graphIdx, item := range items {
		f := item.Feature
		g.NodeFeatures = append(g.NodeFeatures, f.NodeFeatures...)
		g.EdgeFeatures = append(g.EdgeFeatures, f.EdgeFeatures...)
		for ii := range f.NumEdges {
			g.EdgeSrc = append(g.EdgeSrc, f.EdgeSrc[ii]+offset)
			g.EdgeDst = append(g.EdgeDst, f.EdgeDst[ii]+offset)
		}
		for range f.NumNodes {
			g.GraphIndex = append(g.GraphIndex, int32(graphIdx))
		}
		for name := range g.PositionalDims {
			g.Positional[name] = append(g.Positional[name], f.PositionalEncodings[name]...)
		}
		offset += int32(f.NumNodes)
	}
	if shape == nil {
		return g, nil
	}

	// Padding: zero features, padding nodes in graph NumGraphs, padding edges as self-loops of the last node.
	// Packs have one node more than their graphs can fill, so the last node is always padding.
	g.NodeMask = make([]bool, g.NumNodes)
	xslices.FillSlice(g.NodeMask[:realNodes], true)
	g.EdgeMask = make([]bool, g.NumEdges)
	xslices.FillSlice(g.EdgeMask[:realEdges], true)
	g.NodeFeatures = g.NodeFeatures[:g.NumNodes*g.NodeDim]
	g.EdgeFeatures = g.EdgeFeatures[:g.NumEdges*g.EdgeDim]
	for range g.NumNodes - realNodes {
		g.GraphIndex = append(g.GraphIndex, int32(g.NumGraphs))
	}
	lastNode := int32(g.NumNodes - 1)
	for range g.NumEdges - realEdges {
		g.EdgeSrc = append(g.EdgeSrc, lastNode)
		g.EdgeDst = append(g.EdgeDst, lastNode)
	}
	for name, dim := range g.PositionalDims {
		g.Positional[name] = g.Positional[name][:g.NumNodes*dim]
	}
	return g, nil
}

// emptyPack returns a pack shaped as template, holding only padding.
func emptyPack(template *Graph) *Graph {
	g := &Graph{
		NumGraphs:      template.NumGraphs,
		NumNodes:       template.NumNodes,
		NumEdges:       template.NumEdges,
		NodeDim:        template.NodeDim,
		EdgeDim:        template.EdgeDim,
		NodeFeatures:   make([]float32, len(template.NodeFeatures)),
		EdgeFeatures:   make([]float32, len(template.EdgeFeatures)),
		EdgeSrc:        make([]int32, template.NumEdges),
		EdgeDst:        make([]int32, template.NumEdges),
		GraphIndex:     make([]int32, template.NumNodes),
		NodeMask:       make([]bool, template.NumNodes),
		EdgeMask:       make([]bool, template.NumEdges),
		Positional:     make(map[string][]float32, len(template.Positional)),
		PositionalDims: template.PositionalDims,
	}
	xslices.FillSlice(g.GraphIndex, int32(g.NumGraphs))
	xslices.FillSlice(g.EdgeSrc, int32(g.NumNodes-1))
	xslices.FillSlice(g.EdgeDst, int32(g.NumNodes-1))
	for name, values := range template.Positional {
		g.Positional[name] = make([]float32, len(values))
	}
	return g
}

// InputNames returns the names of the tensors returned by Tensors, in order: "node_features",
// "edge_features", "edge_index" ([2, NumEdges] with sources and destinations), "graph_index", then
// "node_mask" and "edge_mask" for packs, and finally "pe_<name>" for each positional encoding in sorted
// name order.
func (g *Graph) InputNames() []string {
	names := []string{"node_features", "edge_features", "edge_index", "graph_index"}
	if g.NodeMask != nil {
		names = append(names, "node_mask", "edge_mask")
	}
	for _, name := range xslices.SortedKeys(g.PositionalDims) {
		names = append(names, "pe_"+name)
	}
	return names
}

// Tensors returns the graph as tensors, see InputNames.
func (g *Graph) Tensors() []*tensors.Tensor {
	return stackGraphs([]*Graph{g}, false)
}

// stackGraphs converts the graphs to tensors. If stacked (packs, which share the same shapes), each tensor
// gets a leading dimension with the number of graphs.
func stackGraphs(graphs []*Graph, stacked bool) []*tensors.Tensor {
	g0 := graphs[0]
	var lead []int
	if stacked {
		lead = []int{len(graphs)}
	}
	dims := func(inner ...int) []int {
		return append(append([]int{}, lead...), inner...)
	}
	var nodeFeatures, edgeFeatures []float32
	var edgeIndex, graphIndex []int32
	var nodeMask, edgeMask []bool
	for _, g := range graphs {
		nodeFeatures = append(nodeFeatures, g.NodeFeatures...)
		edgeFeatures = append(edgeFeatures, g.EdgeFeatures...)
		edgeIndex = append(edgeIndex, g.EdgeSrc...)
		edgeIndex = append(edgeIndex, g.EdgeDst...)
		graphIndex = append(graphIndex, g.GraphIndex...)
		nodeMask = append(nodeMask, g.NodeMask...)
		edgeMask = append(edgeMask, g.EdgeMask...)
	}
	result := []*tensors.Tensor{
		tensors.FromFlatDataAndDimensions(nodeFeatures, dims(g0.NumNodes, g0.NodeDim)...),
		tensors.FromFlatDataAndDimensions(edgeFeatures, dims(g0.NumEdges, g0.EdgeDim)...),
		tensors.FromFlatDataAndDimensions(edgeIndex, dims(2, g0.NumEdges)...),
		tensors.FromFlatDataAndDimensions(graphIndex, dims(g0.NumNodes)...),
	}
	if g0.NodeMask != nil {
		result = append(result,
			tensors.FromFlatDataAndDimensions(nodeMask, dims(g0.NumNodes)...),
			tensors.FromFlatDataAndDimensions(edgeMask, dims(g0.NumEdges)...))
	}
	for _, name := range xslices.SortedKeys(g0.PositionalDims) {
		var values []float32
		for _, g := range graphs {
			values = append(values, g.Positional[name]...)
		}
		result = append(result, tensors.FromFlatDataAndDimensions(values, dims(g0.NumNodes, g0.PositionalDims[name])...))
	}
	return result
}

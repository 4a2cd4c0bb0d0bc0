// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package collate converts a list of dataset items into a Batch: the graphs concatenated into one
// disconnected graph (or packed into statically shaped packs), and per-task label and weight tensors.
package collate

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/support/xslices"
	"github.com/pkg/errors"
)

// Keys of the string fields of the items that can be gathered as plain lists (see Config.DoNotCollate).
const (
	KeySMILES = "smiles"
	KeyMolIDs = "mol_ids"
)

// DefaultDoNotCollate are the fields gathered as plain lists by default.
var DefaultDoNotCollate = []string{KeySMILES, KeyMolIDs}

// Config of a Collator.
type Config struct {
	// MaskNaN replaces missing (NaN) labels. If nil, NaN labels are kept.
	MaskNaN *float32

	// LabelsSize is the width of the labels of each task. Every batch has one label tensor per task.
	LabelsSize map[string]int

	// DoNotCollate lists the string fields (KeySMILES, KeyMolIDs) gathered as plain lists in Batch.Extras.
	DoNotCollate []string

	// BatchSizePerPack, if > 0, makes the Collator pack the graphs in groups of at most BatchSizePerPack,
	// each padded to BatchSizePerPack*MaxNodesPerGraph+1 nodes and BatchSizePerPack*MaxEdgesPerGraph edges.
	BatchSizePerPack int
	MaxNodesPerGraph int
	MaxEdgesPerGraph int

	// NumPacks, if > 0, pads packed batches with empty packs, so every batch has NumPacks packs.
	NumPacks int
}

// DefaultConfig masks NaN labels with 0 and gathers SMILES and molecule ids.
func DefaultConfig(labelsSize map[string]int) Config {
	var zero float32
	return Config{
		MaskNaN:      &zero,
		LabelsSize:   labelsSize,
		DoNotCollate: slices.Clone(DefaultDoNotCollate),
	}
}

// Validate returns a data.ErrConfiguration for inconsistent values.
func (c Config) Validate() error {
	for _, key := range c.DoNotCollate {
		if key != KeySMILES && key != KeyMolIDs {
			return data.Configurationf("unknown do_not_collate key %q, valid keys are %q", key, DefaultDoNotCollate)
		}
	}
	for task, width := range c.LabelsSize {
		if width <= 0 {
			return data.Configurationf("task %q has invalid labels size %d", task, width)
		}
	}
	if c.BatchSizePerPack < 0 {
		return data.Configurationf("batch_size_per_pack must be >= 0, got %d", c.BatchSizePerPack)
	}
	if c.BatchSizePerPack > 0 && (c.MaxNodesPerGraph <= 0 || c.MaxEdgesPerGraph < 0) {
		return data.Configurationf("packing requires max nodes (%d) and edges (%d) per graph",
			c.MaxNodesPerGraph, c.MaxEdgesPerGraph)
	}
	if c.NumPacks < 0 || (c.NumPacks > 0 && c.BatchSizePerPack == 0) {
		return data.Configurationf("num_packs (%d) requires packing", c.NumPacks)
	}
	return nil
}

// Collator builds batches from dataset items.
type Collator struct {
	config Config
	tasks  []string
}

// New creates a Collator with the given configuration.
func New(config Config) (*Collator, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Collator{
		config: config,
		tasks:  xslices.SortedKeys(config.LabelsSize),
	}, nil
}

// Config returns the configuration of the collator.
func (c *Collator) Config() Config { return c.config }

// Tasks returns the sorted task names: the order of the label tensors of Batch.LabelTensors.
func (c *Collator) Tasks() []string { return c.tasks }

// WithPacking returns a copy of the collator that packs batches. numPacks, if > 0, is the fixed number of
// packs of every batch (see Config.NumPacks).
func (c *Collator) WithPacking(batchSizePerPack, maxNodesPerGraph, maxEdgesPerGraph, numPacks int) (*Collator, error) {
	config := c.config
	config.BatchSizePerPack = batchSizePerPack
	config.MaxNodesPerGraph = maxNodesPerGraph
	config.MaxEdgesPerGraph = maxEdgesPerGraph
	config.NumPacks = numPacks
	return New(config)
}

// Batch of collated items.
type Batch struct {
	// Size is the number of items.
	Size int

	// Graph holds all the graphs concatenated. It is nil if the batch is packed.
	Graph *Graph

	// Packs of at most Config.BatchSizePerPack graphs each, with static shapes. Only set if packing.
	Packs []*Graph

	// Tasks are the sorted task names, and Labels the label tensor of each, shaped [Size, width].
	Tasks  []string
	Labels map[string]*tensors.Tensor

	// Weights tensors shaped [Size, width], for tasks where any item has weights. Items without weights
	// for the task get 0.
	Weights map[string]*tensors.Tensor

	// Extras holds the plain lists of the Config.DoNotCollate fields.
	Extras map[string][]string
}

// String returns a key that is the same for every batch of a collator: it describes the kind of inputs,
// not their values. GoMLX trainers use the string of the yielded spec as the key of the computation graph.
func (b *Batch) String() string {
	if b.Packs != nil {
		return fmt.Sprintf("collate.Batch(packs=%d, tasks=%s)", len(b.Packs), strings.Join(b.Tasks, ","))
	}
	return fmt.Sprintf("collate.Batch(tasks=%s)", strings.Join(b.Tasks, ","))
}

// LabelTensors returns the label tensors in task order.
func (b *Batch) LabelTensors() []*tensors.Tensor {
	labels := make([]*tensors.Tensor, len(b.Tasks))
	for ii, task := range b.Tasks {
		labels[ii] = b.Labels[task]
	}
	return labels
}

// Inputs returns the graph tensors (see Graph.Tensors). For packed batches, each tensor is stacked over the
// packs, with a leading dimension of len(Packs).
func (b *Batch) Inputs() []*tensors.Tensor {
	if b.Packs == nil {
		return b.Graph.Tensors()
	}
	return stackGraphs(b.Packs, true)
}

// Collate the items into a Batch.
func (c *Collator) Collate(items []*datasets.Item) (*Batch, error) {
	if len(items) == 0 {
		return nil, errors.New("can't collate an empty list of items")
	}
	batch := &Batch{
		Size:    len(items),
		Tasks:   c.tasks,
		Labels:  make(map[string]*tensors.Tensor, len(c.tasks)),
		Weights: make(map[string]*tensors.Tensor),
		Extras:  make(map[string][]string, len(c.config.DoNotCollate)),
	}
	var err error
	if c.config.BatchSizePerPack > 0 {
		shape := &packShape{
			numGraphs: c.config.BatchSizePerPack,
			numNodes:  c.config.BatchSizePerPack*c.config.MaxNodesPerGraph + 1,
			numEdges:  c.config.BatchSizePerPack * c.config.MaxEdgesPerGraph,
		}
		for start := 0; start < len(items); start += c.config.BatchSizePerPack {
			end := min(start+c.config.BatchSizePerPack, len(items))
			pack, err := concatGraphs(items[start:end], shape)
			if err != nil {
				return nil, errors.WithMessagef(err, "pack of items %d to %d", start, end)
			}
			batch.Packs = append(batch.Packs, pack)
		}
		if c.config.NumPacks > 0 && len(batch.Packs) > c.config.NumPacks {
			return nil, errors.Errorf("%d items need %d packs, more than the %d packs per batch",
				len(items), len(batch.Packs), c.config.NumPacks)
		}
		for len(batch.Packs) < c.config.NumPacks {
			batch.Packs = append(batch.Packs, emptyPack(batch.Packs[0]))
		}
	} else {
		batch.Graph, err = concatGraphs(items, nil)
		if err != nil {
			return nil, err
		}
	}
	if err = c.collateLabels(items, batch); err != nil {
		return nil, err
	}
	for _, key := range c.config.DoNotCollate {
		values := make([]string, len(items))
		for ii, item := range items {
			if key == KeySMILES {
				values[ii] = item.SMILES
			} else {
				values[ii] = item.MolID
			}
		}
		batch.Extras[key] = values
	}
	return batch, nil
}

func (c *Collator) collateLabels(items []*datasets.Item, batch *Batch) error {
	nan := float32(math.NaN())
	for _, task := range c.tasks {
		width := c.config.LabelsSize[task]
		values := make([]float32, len(items)*width)
		for ii, item := range items {
			row := values[ii*width : (ii+1)*width]
			label, found := item.Labels[task]
			if !found {
				xslices.FillSlice(row, nan)
				continue
			}
			if len(label) != width {
				return errors.Errorf("item %q has %d labels for task %q, expected %d", item.MolID, len(label), task, width)
			}
			copy(row, label)
		}
		if c.config.MaskNaN != nil {
			mask := *c.config.MaskNaN
			for ii, v := range values {
				if math.IsNaN(float64(v)) {
					values[ii] = mask
				}
			}
		}
		batch.Labels[task] = tensors.FromFlatDataAndDimensions(values, len(items), width)

		weightWidth := 0
		for _, item := range items {
			if weight, found := item.Weights[task]; found {
				weightWidth = len(weight)
				break
			}
		}
		if weightWidth == 0 {
			continue
		}
		weights := make([]float32, len(items)*weightWidth)
		for ii, item := range items {
			weight, found := item.Weights[task]
			if !found {
				continue
			}
			if len(weight) != weightWidth {
				return errors.Errorf("item %q has %d weights for task %q, expected %d", item.MolID, len(weight), task, weightWidth)
			}
			copy(weights[ii*weightWidth:], weight)
		}
		batch.Weights[task] = tensors.FromFlatDataAndDimensions(weights, len(items), weightWidth)
	}
	return nil
}

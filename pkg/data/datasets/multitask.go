// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"fmt"

	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/gomlx/molpipe/pkg/support/xslices"
	"k8s.io/klog/v2"
)

// Item of a Multitask dataset: one molecule with the labels (and weights) of the tasks that include it.
type Item struct {
	MolID   string
	SMILES  string
	Feature *featurize.MoleculeFeature

	// Labels and Weights are keyed by task name. Tasks that don't include the molecule are absent.
	Labels  map[string][]float32
	Weights map[string][]float32
}

// Multitask dataset: the merge of the SingleTask datasets of one stage.
type Multitask struct {
	Name  string
	Items []*Item

	// LabelsSize is the width of the labels of each task.
	LabelsSize map[string]int
}

// NewMultitask merges the tasks by molecule id.
//
// Tasks are visited in sorted name order and their rows in order; items are created in the order their
// molecule is first seen. If a molecule appears more than once in the same task, the first row is used.
func NewMultitask(name string, tasks map[string]*SingleTask) *Multitask {
	mt := &Multitask{
		Name:       name,
		LabelsSize: make(map[string]int, len(tasks)),
	}
	byID := make(map[string]*Item)
	for _, task := range xslices.SortedKeys(tasks) {
		ds := tasks[task]
		if ds.Len() > 0 {
			mt.LabelsSize[task] = ds.LabelWidth()
		}
		var numDuplicates int
		for row := range ds.Len() {
			feature, label, id, weight := ds.At(row)
			item, found := byID[id]
			if !found {
				item = &Item{
					MolID:   id,
					SMILES:  ds.SMILES[row],
					Feature: feature,
					Labels:  make(map[string][]float32),
				}
				byID[id] = item
				mt.Items = append(mt.Items, item)
			}
			if _, found := item.Labels[task]; found {
				numDuplicates++
				continue
			}
			item.Labels[task] = label
			if weight != nil {
				if item.Weights == nil {
					item.Weights = make(map[string][]float32)
				}
				item.Weights[task] = weight
			}
		}
		if numDuplicates > 0 {
			klog.V(1).Infof("%s dataset: task %q has %d duplicate molecules, only their first row is used",
				name, task, numDuplicates)
		}
	}
	return mt
}

// Len returns the number of items (unique molecules).
func (mt *Multitask) Len() int { return len(mt.Items) }

// At returns the item i.
func (mt *Multitask) At(i int) *Item { return mt.Items[i] }

// TaskNames returns the sorted names of the tasks.
func (mt *Multitask) TaskNames() []string {
	return xslices.SortedKeys(mt.LabelsSize)
}

// MaxNumNodes returns the largest number of nodes of the features of the items.
func (mt *Multitask) MaxNumNodes() int {
	var maxNodes int
	for _, item := range mt.Items {
		maxNodes = max(maxNodes, item.Feature.NumNodes)
	}
	return maxNodes
}

// MaxNumEdges returns the largest number of edges of the features of the items.
func (mt *Multitask) MaxNumEdges() int {
	var maxEdges int
	for _, item := range mt.Items {
		maxEdges = max(maxEdges, item.Feature.NumEdges)
	}
	return maxEdges
}

// String implements fmt.Stringer.
func (mt *Multitask) String() string {
	return fmt.Sprintf("Multitask(%s, items=%d, tasks=%v)", mt.Name, mt.Len(), mt.TaskNames())
}

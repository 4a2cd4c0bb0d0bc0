// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datamodule

import (
	"fmt"
	"math/rand/v2"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/gomlx/molpipe/pkg/data/splits"
	"github.com/gomlx/molpipe/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// FakeMolecule is the molecule repeated by the fake DataModule.
const FakeMolecule = "C1N2C3C4C5OC13C2C45"

type fakeConfig struct {
	numMolecules int
}

// NewFake creates a DataModule with synthetic data, to benchmark the loaders without reading or featurizing
// real data: each task has numMolecules rows of FakeMolecule, featurized only once, with uniform random
// labels. The label width of a task is the number of its LabelColumns, or 1. Train, validation and test
// datasets all hold every row.
//
// Task DataPath, splits and sampling are ignored, and nothing is cached or saved.
func NewFake(config Config, numMolecules int) (*DataModule, error) {
	if numMolecules <= 0 {
		return nil, data.Configurationf("fake DataModule requires a positive number of molecules, got %d", numMolecules)
	}
	if err := config.validate(false); err != nil {
		return nil, err
	}
	config.CachePath = ""
	config.ProcessedGraphDataPath = ""
	dm, err := newDataModule(config)
	if err != nil {
		return nil, err
	}
	dm.fake = &fakeConfig{numMolecules: numMolecules}
	return dm, nil
}

// IsFake returns whether the DataModule was created with NewFake.
func (dm *DataModule) IsFake() bool { return dm.fake != nil }

func (dm *DataModule) prepareFake() error {
	feature, err := dm.featurizer(FakeMolecule)
	if err != nil {
		return errors.WithMessagef(err, "featurizing fake molecule %q", FakeMolecule)
	}
	if err := feature.Validate(); err != nil {
		return errors.WithMessagef(err, "featurizing fake molecule %q", FakeMolecule)
	}
	n := dm.fake.numMolecules
	features := []*featurize.MoleculeFeature{feature}
	ids := make([]string, n)
	for ii := range ids {
		ids[ii] = fmt.Sprintf("fake%07d", ii)
	}
	smiles := xslices.SliceWithValue(n, FakeMolecule)
	all := xslices.Iota(0, n)

	dm.features = features
	dm.tasks = make(map[string]*datasets.SingleTask, len(dm.config.Tasks))
	dm.splits = make(map[string]*splits.Split, len(dm.config.Tasks))
	for taskIdx, task := range dm.config.Tasks {
		width := max(len(task.LabelColumns), 1)
		rng := rand.New(rand.NewPCG(task.SampleSeed, uint64(taskIdx)))
		labels := make([][]float32, n)
		for ii := range labels {
			labels[ii] = make([]float32, width)
			for jj := range labels[ii] {
				labels[ii][jj] = rng.Float32()
			}
		}
		st, err := datasets.NewSingleTask(features, make([]int, n), labels, ids, smiles, nil)
		if err != nil {
			return err
		}
		dm.tasks[task.Name] = st
		dm.splits[task.Name] = &splits.Split{Train: all, Val: all, Test: all}
	}
	klog.Infof("prepared fake data: %d tasks with %d molecules each", len(dm.tasks), n)
	dm.state = StatePrepared
	return nil
}

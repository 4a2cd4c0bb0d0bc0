// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datamodule

import (
	"maps"
	"slices"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/collate"
	"github.com/gomlx/molpipe/pkg/data/loaders"
	"github.com/pkg/errors"
)

// Collator returns the collator shared by the loaders: one label tensor per task seen in the datasets set
// up so far, missing labels replaced by Config.MaskNaN.
//
// With packing configured, all stages use the same number of nodes and edges per graph: the largest of
// the datasets set up.
func (dm *DataModule) Collator() (*collate.Collator, error) {
	if dm.state != StateSetup {
		return nil, errors.New("DataModule.Collator called before Setup")
	}
	config := collate.DefaultConfig(maps.Clone(dm.labelsSize))
	config.MaskNaN = dm.config.MaskNaN
	collator, err := collate.New(config)
	if err != nil {
		return nil, err
	}
	if dm.config.loaderKind() == loaders.KindConstrainedShape {
		return collator.WithPacking(dm.config.BatchSizePerPack, max(dm.MaxNumNodes(), 1), dm.MaxNumEdges(), 0)
	}
	return collator, nil
}

func (dm *DataModule) loaderConfig(stage data.Stage) loaders.Config {
	config := loaders.Config{
		BatchSize:         dm.config.BatchSizeInference,
		NumWorkers:        dm.config.NumWorkers,
		PinMemory:         dm.config.PinMemory,
		PersistentWorkers: dm.config.PersistentWorkers,
		Seed:              dm.config.ShuffleSeed,
		BatchSizePerPack:  dm.config.BatchSizePerPack,
	}
	if stage == data.StageTrain {
		config.BatchSize = dm.config.BatchSizeTraining
		config.Shuffle = true
	}
	return config
}

// Loader creates a loader for the dataset of the stage. Training loaders shuffle and use
// Config.BatchSizeTraining, the others keep the dataset order and use Config.BatchSizeInference.
//
// The caller owns the loader and must call its Done method.
func (dm *DataModule) Loader(stage data.Stage) (loaders.BatchLoader, error) {
	dataset := dm.Dataset(stage)
	if dataset == nil {
		return nil, errors.Errorf("%s dataset is not set up, Setup(%s) must be called first", stage, dm.setupStageFor(stage))
	}
	collator, err := dm.Collator()
	if err != nil {
		return nil, err
	}
	return loaders.New(dm.config.loaderKind(), stage.String(), dataset, collator, dm.loaderConfig(stage))
}

func (dm *DataModule) setupStageFor(stage data.Stage) string {
	if slices.Contains(StageFit.Stages(), stage) {
		return "StageFit"
	}
	return "StageTest"
}

// TrainLoader returns a shuffling loader over the training dataset.
func (dm *DataModule) TrainLoader() (loaders.BatchLoader, error) {
	return dm.Loader(data.StageTrain)
}

// ValLoader returns a loader over the validation dataset.
func (dm *DataModule) ValLoader() (loaders.BatchLoader, error) {
	return dm.Loader(data.StageVal)
}

// TestLoader returns a loader over the test dataset.
func (dm *DataModule) TestLoader() (loaders.BatchLoader, error) {
	return dm.Loader(data.StageTest)
}

// PredictLoader returns a loader over the dataset given to SetPredictDataset, or the test dataset.
func (dm *DataModule) PredictLoader() (loaders.BatchLoader, error) {
	return dm.Loader(data.StagePredict)
}

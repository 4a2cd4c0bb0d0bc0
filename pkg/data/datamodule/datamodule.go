// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package datamodule orchestrates the molecular data pipeline: it reads the task tables, featurizes the
// unique molecules once, splits each task, merges the tasks into one dataset per stage and creates the
// batch loaders.
//
// Usage:
//
//	config := must.M1(datamodule.LoadConfig("config.yaml"))
//	dm := must.M1(datamodule.New(config))
//	must.M(dm.Prepare())
//	must.M(dm.Setup(datamodule.StageFit))
//	train := must.M1(dm.TrainLoader())
//	defer train.Done()
package datamodule

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/data/dedup"
	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/gomlx/molpipe/pkg/data/labels"
	"github.com/gomlx/molpipe/pkg/data/splits"
	"github.com/gomlx/molpipe/pkg/data/tables"
	"github.com/gomlx/molpipe/pkg/support/fsutil"
	"github.com/gomlx/molpipe/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// State of a DataModule.
//
//go:generate go tool enumer -type=State -trimprefix=State -transform=lower -output=gen_state_enumer.go
type State int

const (
	StateUnprepared State = iota
	StatePrepared
	StateSetup
)

// SetupStage selects the stages built by Setup.
//
//go:generate go tool enumer -type=SetupStage -trimprefix=Stage -transform=lower -output=gen_setupstage_enumer.go
type SetupStage int

const (
	// StageAll builds the train, validation and test datasets.
	StageAll SetupStage = iota

	// StageFit builds the train and validation datasets.
	StageFit

	// StageTest builds the test dataset.
	StageTest
)

// Stages returns the dataset stages of the setup stage.
func (s SetupStage) Stages() []data.Stage {
	switch s {
	case StageFit:
		return []data.Stage{data.StageTrain, data.StageVal}
	case StageTest:
		return []data.Stage{data.StageTest}
	}
	return data.Stages
}

// DataModule owns the data of all tasks through its lifecycle: Unprepared, Prepared (after Prepare) and
// Setup (after Setup).
//
// It is not safe for concurrent use, but once Setup returns the datasets are read-only, and the loaders
// can be used concurrently.
type DataModule struct {
	config     Config
	hash       string
	featurizer featurize.Func
	state      State
	fake       *fakeConfig

	// Prepared: features of the unique molecules (none failed), and per task its rows and split.
	features []*featurize.MoleculeFeature
	tasks    map[string]*datasets.SingleTask
	splits   map[string]*splits.Split

	// Setup.
	stageDatasets map[data.Stage]*datasets.Multitask
	stats         map[string]datasets.Statistics
	labelsSize    map[string]int
	predict       *datasets.Multitask
}

// New validates the configuration and creates an unprepared DataModule. No data is read.
func New(config Config) (*DataModule, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return newDataModule(config)
}

func newDataModule(config Config) (*DataModule, error) {
	featurizer, err := featurize.GraphFeaturizer(config.Featurization)
	if err != nil {
		return nil, err
	}
	hash, err := DataHash(&config)
	if err != nil {
		return nil, err
	}
	if config.CachePath, err = expandPath(config.CachePath); err != nil {
		return nil, err
	}
	if config.ProcessedGraphDataPath, err = expandPath(config.ProcessedGraphDataPath); err != nil {
		return nil, err
	}
	return &DataModule{
		config:        config,
		hash:          hash,
		featurizer:    featurizer,
		stageDatasets: make(map[data.Stage]*datasets.Multitask),
		labelsSize:    make(map[string]int),
	}, nil
}

// WithFeaturizer replaces the featurization function built from Config.Featurization. The data hash is
// still computed from Config.Featurization. It must be called before Prepare.
func (dm *DataModule) WithFeaturizer(fn featurize.Func) *DataModule {
	if dm.state != StateUnprepared {
		klog.Warningf("DataModule.WithFeaturizer called after Prepare, ignored")
		return dm
	}
	dm.featurizer = fn
	return dm
}

// Config returns the configuration of the DataModule.
func (dm *DataModule) Config() Config { return dm.config }

// DataHash identifies the prepared data, see the DataHash function.
func (dm *DataModule) DataHash() string { return dm.hash }

// State returns the lifecycle state.
func (dm *DataModule) State() State { return dm.state }

// IsPrepared returns whether Prepare has completed.
func (dm *DataModule) IsPrepared() bool { return dm.state >= StatePrepared }

// IsSetup returns whether Setup has completed for some stage.
func (dm *DataModule) IsSetup() bool { return dm.state == StateSetup }

// Tasks returns the prepared datasets of each task. It is nil before Prepare.
func (dm *DataModule) Tasks() map[string]*datasets.SingleTask { return dm.tasks }

// Split returns the split of a task, nil if not prepared or unknown.
func (dm *DataModule) Split(task string) *splits.Split { return dm.splits[task] }

// Features returns the features of the unique molecules.
func (dm *DataModule) Features() []*featurize.MoleculeFeature { return dm.features }

// Prepare reads, featurizes and splits the data of every task, or loads it from the cache.
// Calling it again is a no-op.
func (dm *DataModule) Prepare() error {
	if dm.state >= StatePrepared {
		klog.Infof("data is already prepared, skipping")
		return nil
	}
	if dm.fake != nil {
		return dm.prepareFake()
	}
	contents, err := dm.loadCache()
	if err != nil {
		if !errors.Is(err, data.ErrCacheCorruption) {
			return err
		}
		klog.Warningf("data cache failed to load, the data will be prepared again: %v", err)
		contents = nil
	}
	if contents != nil {
		dm.fromCache(contents)
		dm.state = StatePrepared
		return nil
	}

	contents, err = dm.prepareTasks()
	if err != nil {
		return err
	}
	dm.fromCache(contents)
	dm.state = StatePrepared
	return dm.saveCache(contents)
}

// taskRows are the extracted rows of a task, before featurization.
type taskRows struct {
	config    *TaskConfig
	records   *labels.Records
	sampleIdx []int
}

func (dm *DataModule) readTask(task *TaskConfig) (*taskRows, error) {
	klog.Infof("reading data for task %q from %q", task.Name, task.DataPath)
	columns, err := tables.PeekColumns(task.DataPath)
	if err != nil {
		return nil, err
	}
	smilesCol := task.SMILESColumn
	if smilesCol == "" {
		if smilesCol, err = labels.FindSMILESColumn(columns); err != nil {
			return nil, err
		}
	}
	var extra []string
	for _, col := range []string{task.IndexColumn, task.WeightColumn} {
		if col != "" {
			extra = append(extra, col)
		}
	}
	labelCols, err := labels.ResolveLabelColumns(columns, smilesCol, task.LabelColumns, extra...)
	if err != nil {
		return nil, err
	}
	if len(labelCols) == 0 {
		return nil, data.NotFoundf("no label columns in %q, columns are %q", task.DataPath, columns)
	}
	useColumns := append(append([]string{smilesCol}, labelCols...), extra...)
	df, err := tables.Read(task.DataPath, useColumns...)
	if err != nil {
		return nil, err
	}

	numRows := df.Nrow()
	sampleIdx := splits.Subsample(numRows, task.SampleCount, task.SampleFraction, task.SampleSeed)
	if len(sampleIdx) < numRows {
		df = df.Subset(sampleIdx)
	}
	records, err := labels.Extract(df, labels.Options{
		SMILESColumn: smilesCol,
		LabelColumns: labelCols,
		IndexColumn:  task.IndexColumn,
		WeightColumn: task.WeightColumn,
		WeightType:   task.WeightType,
	})
	if err != nil {
		return nil, errors.WithMessagef(err, "task %q", task.Name)
	}
	if records.Indices != nil {
		sampleIdx = records.Indices
	}
	klog.Infof("task %q: %d rows (%d read), %d label columns", task.Name, records.Len(), numRows, len(labelCols))
	return &taskRows{config: task, records: records, sampleIdx: sampleIdx}, nil
}

// prepareTasks runs the whole preparation pipeline, returning the contents to cache.
func (dm *DataModule) prepareTasks() (*cacheContents, error) {
	rows := make([]*taskRows, len(dm.config.Tasks))
	var allMolecules []string
	for ii := range dm.config.Tasks {
		var err error
		rows[ii], err = dm.readTask(&dm.config.Tasks[ii])
		if err != nil {
			return nil, err
		}
		allMolecules = append(allMolecules, rows[ii].records.IDs...)
	}

	// Featurize each unique molecule once.
	ids := dedup.UniqueIDs(allMolecules, dm.config.FeaturizationWorkers, dm.config.FeaturizationBatchSize)
	unique, firstIndex, inverse := dedup.Unique(ids)
	toFeaturize := make([]string, len(unique))
	for ii, idx := range firstIndex {
		toFeaturize[ii] = allMolecules[idx]
	}
	klog.Infof("featurizing %d unique molecules out of %d rows", len(unique), len(allMolecules))
	features, failed := featurize.Featurize(toFeaturize, dm.featurizer, featurize.Options{
		Parallelism: dm.config.FeaturizationWorkers,
		BatchSize:   dm.config.FeaturizationBatchSize,
		Progress:    dm.config.FeaturizationProgress,
	})
	if len(failed) > 0 {
		klog.Infof("%d out of %d unique molecules failed featurization and are dropped", len(failed), len(unique))
	}

	// Filter failed molecules and split each task.
	contents := &cacheContents{Hash: dm.hash, Tasks: make(map[string]*cachedTask, len(rows))}
	offset := 0
	for _, task := range rows {
		records := task.records
		n := records.Len()
		featureIdx := inverse[offset : offset+n]
		taskIDs := ids[offset : offset+n]
		offset += n

		split, err := splits.Resolve(task.config.Split, n, task.sampleIdx)
		if err != nil {
			return nil, errors.WithMessagef(err, "task %q", task.config.Name)
		}
		kept, mapping := datasets.FilterFailed(features, featureIdx)
		if dropped := n - len(kept); dropped > 0 {
			klog.Infof("task %q: dropped %d rows with molecules that failed featurization", task.config.Name, dropped)
		}
		cached := &cachedTask{
			FeatureIdx: make([]int, len(kept)),
			Labels:     make([][]float32, len(kept)),
			IDs:        make([]string, len(kept)),
			SMILES:     make([]string, len(kept)),
			Split: splits.Split{
				Train: datasets.Translate(split.Train, mapping),
				Val:   datasets.Translate(split.Val, mapping),
				Test:  datasets.Translate(split.Test, mapping),
			},
		}
		if records.Weights != nil {
			cached.Weights = make([][]float32, len(kept))
		}
		for ii, row := range kept {
			cached.FeatureIdx[ii] = featureIdx[row]
			cached.Labels[ii] = records.Labels[row]
			cached.IDs[ii] = taskIDs[row]
			cached.SMILES[ii] = records.IDs[row]
			if records.Weights != nil {
				cached.Weights[ii] = records.Weights[row]
			}
		}
		contents.Tasks[task.config.Name] = cached
	}
	contents.Features = compactFeatures(features, contents.Tasks)
	return contents, nil
}

// compactFeatures removes the failed (nil) features, and updates the feature indices of the tasks.
func compactFeatures(features []*featurize.MoleculeFeature, tasks map[string]*cachedTask) []*featurize.MoleculeFeature {
	compact := make([]*featurize.MoleculeFeature, 0, len(features))
	remap := make([]int, len(features))
	for ii, feature := range features {
		remap[ii] = -1
		if feature != nil {
			remap[ii] = len(compact)
			compact = append(compact, feature)
		}
	}
	for _, task := range tasks {
		for ii, idx := range task.FeatureIdx {
			task.FeatureIdx[ii] = remap[idx]
		}
	}
	return compact
}

// fromCache sets the prepared data.
func (dm *DataModule) fromCache(contents *cacheContents) {
	dm.features = contents.Features
	dm.tasks = make(map[string]*datasets.SingleTask, len(contents.Tasks))
	dm.splits = make(map[string]*splits.Split, len(contents.Tasks))
	for name, task := range contents.Tasks {
		dm.tasks[name] = &datasets.SingleTask{
			Features:   contents.Features,
			FeatureIdx: task.FeatureIdx,
			Labels:     task.Labels,
			IDs:        task.IDs,
			SMILES:     task.SMILES,
			Weights:    task.Weights,
		}
		split := task.Split
		dm.splits[name] = &split
	}
}

// stageTasks returns the subsets of each task for the stage.
func (dm *DataModule) stageTasks(stage data.Stage) map[string]*datasets.SingleTask {
	subsets := make(map[string]*datasets.SingleTask, len(dm.tasks))
	for name, task := range dm.tasks {
		split := dm.splits[name]
		var indices []int
		switch stage {
		case data.StageTrain:
			indices = split.Train
		case data.StageVal:
			indices = split.Val
		case data.StageTest:
			indices = split.Test
		}
		subsets[name] = task.Subset(indices)
	}
	return subsets
}

// Setup builds the datasets of the stages, loading them from ProcessedGraphDataPath when saved by a
// previous run. Labels are normalized with statistics of the training data. It can be called more than
// once, for different stages: stages already built are kept.
func (dm *DataModule) Setup(stage SetupStage) error {
	if dm.state == StateUnprepared {
		return errors.New("DataModule.Setup called before Prepare")
	}
	for _, s := range stage.Stages() {
		if _, found := dm.stageDatasets[s]; found {
			continue
		}
		mt, err := dm.buildStage(s)
		if err != nil {
			return errors.WithMessagef(err, "setting up %s dataset", s)
		}
		dm.stageDatasets[s] = mt
		klog.Infof("%s", mt)
		for task, width := range mt.LabelsSize {
			if previous, found := dm.labelsSize[task]; found && previous != width {
				return errors.Errorf("task %q has labels of width %d and %d in different stages", task, previous, width)
			}
			dm.labelsSize[task] = width
		}
	}
	dm.state = StateSetup
	return nil
}

// StageDir returns the directory of the saved items of the stage, or "" if not configured.
func (dm *DataModule) StageDir(stage data.Stage) string {
	if dm.config.ProcessedGraphDataPath == "" {
		return ""
	}
	return filepath.Join(dm.config.ProcessedGraphDataPath, fmt.Sprintf("%s_%s", stage, dm.hash))
}

// StatisticsFile returns the path of the saved label statistics, or "" if not configured.
func (dm *DataModule) StatisticsFile() string {
	if dm.config.ProcessedGraphDataPath == "" {
		return ""
	}
	return filepath.Join(dm.config.ProcessedGraphDataPath, dm.hash, "task_norms.gob")
}

func (dm *DataModule) buildStage(stage data.Stage) (*datasets.Multitask, error) {
	dir := dm.StageDir(stage)
	if dir != "" {
		mt, found, err := datasets.Load(dir, dm.config.FeaturizationWorkers)
		if err != nil {
			if !errors.Is(err, data.ErrCacheCorruption) {
				return nil, err
			}
			klog.Warningf("saved %s dataset failed to load, it will be rebuilt: %v", stage, err)
		} else if found {
			klog.Infof("loaded %s dataset from %q", stage, dir)
			return mt, nil
		}
	}

	if err := dm.ensureStatistics(); err != nil {
		return nil, err
	}
	mt := datasets.NewMultitask(stage.String(), dm.stageTasks(stage))
	mt.NormalizeLabels(dm.normalizations(), dm.stats)
	if dir != "" {
		if err := os.RemoveAll(dir); err != nil {
			return nil, errors.Wrapf(err, "removing %q", dir)
		}
		if err := mt.Save(dir, dm.config.FeaturizationWorkers); err != nil {
			return nil, err
		}
		klog.Infof("saved %s dataset to %q", stage, dir)
	}
	return mt, nil
}

func (dm *DataModule) normalizations() map[string]datasets.Normalization {
	norms := make(map[string]datasets.Normalization, len(dm.config.Tasks))
	for _, task := range dm.config.Tasks {
		norms[task.Name] = task.LabelNormalization
	}
	return norms
}

// ensureStatistics loads or computes the label statistics of the training data.
func (dm *DataModule) ensureStatistics() error {
	if dm.stats != nil {
		return nil
	}
	if !dm.config.needsNormalization() {
		dm.stats = make(map[string]datasets.Statistics)
		return nil
	}
	path := dm.StatisticsFile()
	if path != "" {
		stats, found, err := datasets.LoadStatistics(path)
		if err != nil && !errors.Is(err, data.ErrCacheCorruption) {
			return err
		}
		if err != nil {
			klog.Warningf("label statistics failed to load, they will be computed again: %v", err)
		} else if found {
			dm.stats = stats
			return nil
		}
	}
	train := datasets.NewMultitask("train", dm.stageTasks(data.StageTrain))
	stats := make(map[string]datasets.Statistics)
	for _, task := range dm.config.Tasks {
		if task.LabelNormalization.IsIdentity() {
			continue
		}
		stats[task.Name] = datasets.ComputeStatistics(train.TaskLabels(task.Name))
	}
	dm.stats = stats
	if path != "" {
		if err := datasets.SaveStatistics(path, stats); err != nil {
			return err
		}
	}
	return nil
}

// Statistics returns the label statistics of the training data, per normalized task, e.g. to
// denormalize predictions. It is nil before Setup.
func (dm *DataModule) Statistics() map[string]datasets.Statistics { return dm.stats }

// Dataset returns the dataset of the stage, or nil if it hasn't been set up. For data.StagePredict it
// returns the dataset given to SetPredictDataset, or the test dataset.
func (dm *DataModule) Dataset(stage data.Stage) *datasets.Multitask {
	if stage == data.StagePredict {
		if dm.predict != nil {
			return dm.predict
		}
		stage = data.StageTest
	}
	return dm.stageDatasets[stage]
}

// SetPredictDataset sets the dataset used by PredictLoader.
func (dm *DataModule) SetPredictDataset(mt *datasets.Multitask) {
	dm.predict = mt
	for task, width := range mt.LabelsSize {
		if _, found := dm.labelsSize[task]; !found {
			dm.labelsSize[task] = width
		}
	}
}

// LabelsSize returns the label width of each task in the datasets set up so far.
func (dm *DataModule) LabelsSize() map[string]int { return dm.labelsSize }

// Len returns the total number of rows of all tasks, after filtering failed molecules. It is 0 before
// Prepare.
func (dm *DataModule) Len() int {
	var total int
	for _, task := range dm.tasks {
		total += task.Len()
	}
	return total
}

// MaxNumNodes returns the largest number of nodes of a molecule in the datasets of the stages (all set up
// stages if none given).
func (dm *DataModule) MaxNumNodes(stages ...data.Stage) int {
	var result int
	for _, mt := range dm.datasetsOf(stages) {
		result = max(result, mt.MaxNumNodes())
	}
	return result
}

// MaxNumEdges is like MaxNumNodes, for edges.
func (dm *DataModule) MaxNumEdges(stages ...data.Stage) int {
	var result int
	for _, mt := range dm.datasetsOf(stages) {
		result = max(result, mt.MaxNumEdges())
	}
	return result
}

func (dm *DataModule) datasetsOf(stages []data.Stage) []*datasets.Multitask {
	if len(stages) == 0 {
		stages = xslices.SortedKeys(dm.stageDatasets)
	}
	var result []*datasets.Multitask
	for _, stage := range stages {
		if mt := dm.Dataset(stage); mt != nil && !slices.Contains(result, mt) {
			result = append(result, mt)
		}
	}
	return result
}

func expandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	return fsutil.ReplaceTildeInDir(path)
}

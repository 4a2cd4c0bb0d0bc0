// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package ogb downloads the molecular graph property datasets of the Open Graph Benchmark (OGB) and
// describes them as DataModule tasks.
//
// Usage:
//
//	task := must.M1(ogb.TaskFor("", "ogbg-molhiv", "hiv"))
//	config.Tasks = append(config.Tasks, task)
package ogb

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/datamodule"
	"github.com/gomlx/molpipe/pkg/data/tables"
	"github.com/gomlx/molpipe/pkg/support/fsutil"
	"github.com/gomlx/molpipe/pkg/support/xslices"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

// DefaultCacheDir where datasets are downloaded, if no base directory is given.
var DefaultCacheDir = "~/.cache/molpipe/ogb"

// Task types.
const (
	TaskBinaryClassification = "binary classification"
	TaskRegression           = "regression"
)

// DatasetMetadata describes an OGB dataset.
type DatasetMetadata struct {
	Name string

	// DownloadName is the name of the zip file and of the directory it extracts to.
	DownloadName string
	URL          string

	// Split is the name of the official split.
	Split string

	NumTasks   int
	TaskType   string
	EvalMetric string
}

// IsLSC returns whether it is one of the large scale challenge (PCQM4M) datasets, which have a different
// layout.
func (m *DatasetMetadata) IsLSC() bool { return strings.HasPrefix(m.DownloadName, "pcqm4m") }

const ogbMolURL = "http://snap.stanford.edu/ogb/data/graphproppred/csv_mol_download/"

var knownDatasets = map[string]*DatasetMetadata{
	"ogbg-molhiv": {Name: "ogbg-molhiv", DownloadName: "hiv", URL: ogbMolURL + "hiv.zip",
		Split: "scaffold", NumTasks: 1, TaskType: TaskBinaryClassification, EvalMetric: "rocauc"},
	"ogbg-molpcba": {Name: "ogbg-molpcba", DownloadName: "pcba", URL: ogbMolURL + "pcba.zip",
		Split: "scaffold", NumTasks: 128, TaskType: TaskBinaryClassification, EvalMetric: "ap"},
	"ogbg-moltox21": {Name: "ogbg-moltox21", DownloadName: "tox21", URL: ogbMolURL + "tox21.zip",
		Split: "scaffold", NumTasks: 12, TaskType: TaskBinaryClassification, EvalMetric: "rocauc"},
	"ogbg-molfreesolv": {Name: "ogbg-molfreesolv", DownloadName: "freesolv", URL: ogbMolURL + "freesolv.zip",
		Split: "scaffold", NumTasks: 1, TaskType: TaskRegression, EvalMetric: "rmse"},
	"ogbg-lsc-pcqm4m": {Name: "ogbg-lsc-pcqm4m", DownloadName: "pcqm4m_kddcup2021",
		URL:   "https://dgl-data.s3-accelerate.amazonaws.com/dataset/OGB-LSC/pcqm4m_kddcup2021.zip",
		Split: "scaffold", NumTasks: 1, TaskType: TaskRegression, EvalMetric: "mae"},
	"ogbg-lsc-pcqm4mv2": {Name: "ogbg-lsc-pcqm4mv2", DownloadName: "pcqm4m-v2",
		URL:   "https://dgl-data.s3-accelerate.amazonaws.com/dataset/OGB-LSC/pcqm4m-v2.zip",
		Split: "scaffold", NumTasks: 1, TaskType: TaskRegression, EvalMetric: "mae"},
}

// Datasets returns the names of the known datasets, sorted.
func Datasets() []string { return xslices.SortedKeys(knownDatasets) }

// Metadata returns the description of the dataset, or a data.ErrNotFound if it is not known.
func Metadata(name string) (*DatasetMetadata, error) {
	m, found := knownDatasets[name]
	if !found {
		return nil, data.NotFoundf("unknown OGB dataset %q, known datasets are %q", name, Datasets())
	}
	clone := *m
	return &clone, nil
}

// TaskFor downloads (if missing) the dataset into baseDir (DefaultCacheDir if empty) and returns the task
// configuration reading it, with its official split.
func TaskFor(baseDir, datasetName, taskName string) (datamodule.TaskConfig, error) {
	meta, err := Metadata(datasetName)
	if err != nil {
		return datamodule.TaskConfig{}, err
	}
	return TaskForMetadata(baseDir, meta, taskName, true)
}

// TaskForMetadata is like TaskFor, for a dataset described by meta.
func TaskForMetadata(baseDir string, meta *DatasetMetadata, taskName string, showProgressBar bool) (datamodule.TaskConfig, error) {
	task := datamodule.TaskConfig{Name: taskName}
	if baseDir == "" {
		baseDir = DefaultCacheDir
	}
	baseDir, err := fsutil.ReplaceTildeInDir(baseDir)
	if err != nil {
		return task, err
	}
	zipFile := filepath.Join(baseDir, meta.DownloadName+".zip")
	if err := DownloadAndUnzipIfMissing(meta.URL, zipFile, baseDir, meta.DownloadName, "", showProgressBar); err != nil {
		return task, errors.WithMessagef(err, "dataset %q", meta.Name)
	}
	datasetDir := filepath.Join(baseDir, meta.DownloadName)

	// OGB columns are predictable.
	if meta.IsLSC() {
		task.DataPath = filepath.Join(datasetDir, "raw", "data.csv.gz")
	} else {
		task.DataPath = filepath.Join(datasetDir, "mapping", "mol.csv.gz")
	}
	columns, err := tables.PeekColumns(task.DataPath)
	if err != nil {
		return task, errors.WithMessagef(err, "dataset %q", meta.Name)
	}
	if len(columns) < 3 {
		return task, errors.Wrapf(data.ErrSchemaMismatch, "dataset %q: %q has columns %q, expected at least 3",
			meta.Name, task.DataPath, columns)
	}
	n := len(columns)
	task.SMILESColumn = columns[n-2]
	if meta.IsLSC() {
		task.IndexColumn = columns[0]
		task.LabelColumns = columns[n-1:]
	} else {
		task.IndexColumn = columns[n-1]
		task.LabelColumns = slices.Clone(columns[:n-2])
	}

	splitsPath, err := writeSplits(datasetDir, meta.Split)
	if err != nil {
		return task, errors.WithMessagef(err, "dataset %q", meta.Name)
	}
	if splitsPath == "" {
		klog.Warningf("dataset %q: official split %q not available in CSV format, a random split will be used",
			meta.Name, meta.Split)
	}
	task.Split.ExternalPath = splitsPath
	return task, nil
}

// writeSplits combines the official split files "split/<name>/{train,valid,test}.csv.gz" (one index per
// row, no header) into "split/<name>.csv.gz", with columns train, val and test. It returns "" if the
// official split files are missing.
func writeSplits(datasetDir, name string) (string, error) {
	splitsPath := filepath.Join(datasetDir, "split", name+".csv.gz")
	exists, err := fsutil.FileExists(splitsPath)
	if err != nil || exists {
		return splitsPath, err
	}
	var lists [][]string
	for _, file := range []string{"train", "valid", "test"} {
		path := filepath.Join(datasetDir, "split", name, file+".csv.gz")
		exists, err := fsutil.FileExists(path)
		if err != nil {
			return "", err
		}
		if !exists {
			return "", nil
		}
		list, err := readIndices(path)
		if err != nil {
			return "", err
		}
		lists = append(lists, list)
	}
	numRows := max(len(lists[0]), len(lists[1]), len(lists[2]))
	err = fsutil.WriteFileAtomically(splitsPath, func(w io.Writer) error {
		gz := gzip.NewWriter(w)
		writer := csv.NewWriter(gz)
		if err := writer.Write([]string{"train", "val", "test"}); err != nil {
			return err
		}
		record := make([]string, 3)
		for row := range numRows {
			for ii, list := range lists {
				record[ii] = ""
				if row < len(list) {
					record[ii] = list[row]
				}
			}
			if err := writer.Write(record); err != nil {
				return err
			}
		}
		writer.Flush()
		if err := writer.Error(); err != nil {
			return err
		}
		return gz.Close()
	})
	if err != nil {
		return "", err
	}
	klog.Infof("saved splits to %q", splitsPath)
	return splitsPath, nil
}

// readIndices reads a gzipped file with one integer per line.
func readIndices(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening %q", path)
	}
	defer func() { _ = f.Close() }()
	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %q", path)
	}
	defer func() { _ = gz.Close() }()
	reader := csv.NewReader(gz)
	reader.FieldsPerRecord = 1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrapf(err, "parsing %q", path)
	}
	indices := make([]string, 0, len(records))
	for row, record := range records {
		value := strings.TrimSpace(record[0])
		if _, err := strconv.Atoi(value); err != nil {
			return nil, errors.Wrapf(data.ErrSchemaMismatch, "%q row %d: %q is not an index", path, row, value)
		}
		indices = append(indices, value)
	}
	return indices, nil
}

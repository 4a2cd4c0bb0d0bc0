// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datasets

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nan = float32(math.NaN())

func testFeatures(t *testing.T, molecules ...string) []*featurize.MoleculeFeature {
	t.Helper()
	fn := must.M1(featurize.GraphFeaturizer(featurize.DefaultConfig()))
	features, _ := featurize.Featurize(molecules, fn, featurize.Options{})
	return features
}

func TestSingleTask(t *testing.T) {
	features := testFeatures(t, "C", "CC", "C1CC", "CCO")
	require.Nil(t, features[2])

	featureIdx := []int{0, 1, 2, 3, 1}
	kept, mapping := FilterFailed(features, featureIdx)
	assert.Equal(t, []int{0, 1, 3, 4}, kept)
	assert.Equal(t, []int{0, 1, -1, 2, 3}, mapping)
	assert.Equal(t, []int{3, 0, 2}, Translate([]int{4, 0, 2, 3}, mapping))

	_, err := NewSingleTask(features, featureIdx, make([][]float32, 5), make([]string, 5), make([]string, 5), nil)
	require.Error(t, err, "row pointing to a failed feature")
	_, err = NewSingleTask(features, []int{0}, make([][]float32, 2), make([]string, 1), make([]string, 1), nil)
	require.Error(t, err)

	ds := must.M1(NewSingleTask(features, []int{0, 1, 3, 1},
		[][]float32{{1}, {2}, {3}, {4}}, []string{"C", "CC", "CCO", "CC"}, []string{"C", "CC", "OCC", "C-C"},
		[][]float32{{0.5}, {1}, {1}, {1}}))
	assert.Equal(t, 4, ds.Len())
	assert.Equal(t, 1, ds.LabelWidth())
	feature, label, id, weight := ds.At(2)
	assert.Same(t, features[3], feature)
	assert.Equal(t, []float32{3}, label)
	assert.Equal(t, "CCO", id)
	assert.Equal(t, []float32{1}, weight)

	sub := ds.Subset([]int{3, 0})
	assert.Equal(t, 2, sub.Len())
	assert.Equal(t, []string{"CC", "C"}, sub.IDs)
	assert.Equal(t, []string{"C-C", "C"}, sub.SMILES)
	feature, _, _, weight = sub.At(0)
	assert.Same(t, features[1], feature, "features must be shared")
	assert.Equal(t, []float32{1}, weight)
}

func testTasks(t *testing.T) (map[string]*SingleTask, []*featurize.MoleculeFeature) {
	features := testFeatures(t, "C", "CC", "CCO", "c1ccccc1")
	a := must.M1(NewSingleTask(features, []int{0, 1, 2},
		[][]float32{{1, 2}, {3, 4}, {5, 6}}, []string{"C", "CC", "CCO"}, []string{"C", "CC", "CCO"}, nil))
	b := must.M1(NewSingleTask(features, []int{2, 3, 2},
		[][]float32{{10}, {20}, {30}}, []string{"CCO", "c1ccccc1", "CCO"}, []string{"OCC", "c1ccccc1", "CCO"},
		[][]float32{{0.5}, {1}, {1}}))
	return map[string]*SingleTask{"b": b, "a": a}, features
}

func TestMultitask(t *testing.T) {
	tasks, features := testTasks(t)
	mt := NewMultitask("train", tasks)
	require.Equal(t, 4, mt.Len())
	assert.Equal(t, map[string]int{"a": 2, "b": 1}, mt.LabelsSize)
	assert.Equal(t, []string{"a", "b"}, mt.TaskNames())

	ids := make([]string, mt.Len())
	for ii := range mt.Len() {
		ids[ii] = mt.At(ii).MolID
	}
	assert.Equal(t, []string{"C", "CC", "CCO", "c1ccccc1"}, ids)

	ethanol := mt.At(2)
	assert.Equal(t, "CCO", ethanol.SMILES)
	assert.Same(t, features[2], ethanol.Feature)
	assert.Equal(t, map[string][]float32{"a": {5, 6}, "b": {10}}, ethanol.Labels)
	assert.Equal(t, map[string][]float32{"b": {0.5}}, ethanol.Weights)
	assert.Nil(t, mt.At(0).Weights)
	assert.NotContains(t, mt.At(3).Labels, "a")

	assert.Equal(t, 6, mt.MaxNumNodes())
	assert.Equal(t, 12, mt.MaxNumEdges())

	empty := NewMultitask("test", map[string]*SingleTask{})
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, 0, empty.MaxNumNodes())
}

func TestSaveLoad(t *testing.T) {
	tasks, _ := testTasks(t)
	mt := NewMultitask("val", tasks)
	dir := filepath.Join(t.TempDir(), "val_hash")

	_, found, err := Load(dir, 2)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, found, err = Load(dir, 2)
	require.NoError(t, err)
	assert.False(t, found, "empty directory")

	require.NoError(t, mt.Save(dir, 2))
	assert.FileExists(t, filepath.Join(dir, "0000", "0000003.gob"))
	assert.Equal(t, filepath.Join(dir, "0002", "0002001.gob"), ItemPath(dir, 2001))

	loaded, found, err := Load(dir, 0)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, mt.Name, loaded.Name)
	assert.Equal(t, mt.LabelsSize, loaded.LabelsSize)
	require.Equal(t, mt.Len(), loaded.Len())
	for ii := range mt.Len() {
		want, got := mt.At(ii), loaded.At(ii)
		assert.Equal(t, want.MolID, got.MolID)
		assert.Equal(t, want.Labels, got.Labels)
		assert.Equal(t, want.Feature.NodeFeatures, got.Feature.NodeFeatures)
		assert.Equal(t, want.Feature.EdgeSrc, got.Feature.EdgeSrc)
	}

	// Corrupt two items: both are reported.
	require.NoError(t, os.WriteFile(ItemPath(dir, 1), []byte("garbage"), 0o644))
	require.NoError(t, os.Remove(ItemPath(dir, 2)))
	_, _, err = Load(dir, 2)
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrCacheCorruption))
	assert.Contains(t, err.Error(), "0000001.gob")
	assert.Contains(t, err.Error(), "0000002.gob")
}

func TestNormalization(t *testing.T) {
	labels := [][]float32{{1, 5}, {3, 5}, {nan, 5}, {5, 5}}
	stats := ComputeStatistics(labels)
	assert.InDeltaSlice(t, []float32{3, 5}, stats.Mean, 1e-6)
	assert.InDelta(t, math.Sqrt(8.0/3.0), stats.Std[0], 1e-5)
	assert.Equal(t, float32(1), stats.Std[1], "zero std is replaced by 1")
	assert.Equal(t, []float32{1, 5}, stats.Min)
	assert.Equal(t, []float32{5, 6}, stats.Max, "zero range is replaced by 1")

	normal := Normalization{Method: NormalizeNormal}
	got := normal.Normalize(stats, []float32{3, 7})
	assert.InDeltaSlice(t, []float32{0, 2}, got, 1e-6)
	assert.InDeltaSlice(t, []float32{3, 7}, normal.Denormalize(stats, got), 1e-5)
	assert.True(t, math.IsNaN(float64(normal.Normalize(stats, []float32{nan, 5})[0])))

	one := float32(1)
	unit := Normalization{Method: NormalizeUnit, MaxClipping: &one}
	assert.InDeltaSlice(t, []float32{0.5, 1}, unit.Normalize(stats, []float32{3, 7}), 1e-6)
	assert.True(t, Normalization{Method: NormalizeNone}.IsIdentity())
	assert.False(t, unit.IsIdentity())

	assert.NoError(t, unit.Validate())
	zero := float32(0)
	err := Normalization{Method: "log"}.Validate()
	assert.True(t, errors.Is(err, data.ErrConfiguration))
	err = Normalization{MinClipping: &one, MaxClipping: &zero}.Validate()
	assert.True(t, errors.Is(err, data.ErrConfiguration))

	tasks, _ := testTasks(t)
	mt := NewMultitask("train", tasks)
	allStats := map[string]Statistics{"b": ComputeStatistics(mt.TaskLabels("b"))}
	assert.Len(t, mt.TaskLabels("b"), 2)
	mt.NormalizeLabels(map[string]Normalization{"b": normal}, allStats)
	assert.InDeltaSlice(t, []float32{-1}, mt.At(2).Labels["b"], 1e-6)
	assert.InDeltaSlice(t, []float32{1}, mt.At(3).Labels["b"], 1e-6)
	assert.Equal(t, []float32{5, 6}, mt.At(2).Labels["a"])
	assert.Equal(t, []float32{10}, tasks["b"].Labels[0], "single task labels are not modified")

	path := filepath.Join(t.TempDir(), "hash", "task_norms.gob")
	_, found, err := LoadStatistics(path)
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, SaveStatistics(path, allStats))
	loaded, found, err := LoadStatistics(path)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, allStats, loaded)
}

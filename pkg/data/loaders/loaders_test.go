// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package loaders

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"testing"

	"github.com/gomlx/gomlx/pkg/core/tensors"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/collate"
	"github.com/gomlx/molpipe/pkg/data/datasets"
	"github.com/gomlx/molpipe/pkg/data/featurize"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trainDataset is the method set of GoMLX's train.Dataset.
type trainDataset interface {
	Name() string
	Reset()
	Yield() (spec any, inputs, labels []*tensors.Tensor, err error)
}

var (
	_ trainDataset = (*StandardLoader)(nil)
	_ trainDataset = (*ConstrainedShapeLoader)(nil)
	_ BatchLoader  = (*ConstrainedShapeLoader)(nil)
)

// alkanes returns a dataset with the linear alkanes of 1 to n carbons, labeled with their index.
func alkanes(t *testing.T, n int) (*datasets.Multitask, *collate.Collator) {
	t.Helper()
	molecules := make([]string, n)
	featureIdx := make([]int, n)
	labels := make([][]float32, n)
	ids := make([]string, n)
	for ii := range n {
		molecules[ii] = strings.Repeat("C", ii+1)
		featureIdx[ii] = ii
		labels[ii] = []float32{float32(ii)}
		ids[ii] = fmt.Sprintf("mol%d", ii)
	}
	fn := must.M1(featurize.GraphFeaturizer(featurize.DefaultConfig()))
	features, failed := featurize.Featurize(molecules, fn, featurize.Options{})
	require.Empty(t, failed)
	task := must.M1(datasets.NewSingleTask(features, featureIdx, labels, ids, molecules, nil))
	mt := datasets.NewMultitask("train", map[string]*datasets.SingleTask{"task": task})
	return mt, must.M1(collate.New(collate.DefaultConfig(mt.LabelsSize)))
}

// epoch yields until io.EOF and returns the labels in yield order and the size of each batch.
func epoch(t *testing.T, l BatchLoader) (labels []float32, sizes []int) {
	t.Helper()
	for {
		spec, inputs, batchLabels, err := l.Yield()
		if err == io.EOF {
			return
		}
		require.NoError(t, err)
		batch := spec.(*collate.Batch)
		require.Len(t, batchLabels, 1)
		require.NotEmpty(t, inputs)
		values := tensors.CopyFlatData[float32](batchLabels[0])
		labels = append(labels, values...)
		sizes = append(sizes, batch.Size)
	}
}

func upTo(n int) []float32 {
	values := make([]float32, n)
	for ii := range values {
		values[ii] = float32(ii)
	}
	return values
}

func TestStandardLoaderSynchronous(t *testing.T) {
	mt, collator := alkanes(t, 10)
	l := must.M1(NewStandardLoader("train", mt, collator, Config{BatchSize: 4}))
	defer l.Done()
	assert.Equal(t, "train", l.Name())
	assert.Equal(t, 3, l.Len())

	labels, sizes := epoch(t, l)
	assert.Equal(t, upTo(10), labels)
	assert.Equal(t, []int{4, 4, 2}, sizes)

	// EOF until Reset.
	_, _, _, err := l.Yield()
	assert.Equal(t, io.EOF, err)
	l.Reset()
	assert.Equal(t, 1, l.Epoch())
	labels, _ = epoch(t, l)
	assert.Equal(t, upTo(10), labels)

	dropLast := must.M1(NewStandardLoader("val", mt, collator, Config{BatchSize: 4, DropLast: true}))
	assert.Equal(t, 2, dropLast.Len())
	_, sizes = epoch(t, dropLast)
	assert.Equal(t, []int{4, 4}, sizes)
}

func TestStandardLoaderWorkers(t *testing.T) {
	mt, collator := alkanes(t, 10)
	for _, persistent := range []bool{false, true} {
		t.Run(fmt.Sprintf("persistent=%v", persistent), func(t *testing.T) {
			config := Config{BatchSize: 3, Shuffle: true, Seed: 42, NumWorkers: 3, PersistentWorkers: persistent}
			l := must.M1(NewStandardLoader("train", mt, collator, config))
			config.NumWorkers = 0
			reference := must.M1(NewStandardLoader("reference", mt, collator, config))

			for range 3 {
				labels, sizes := epoch(t, l)
				want, _ := epoch(t, reference)
				assert.Equal(t, want, labels, "workers must keep the epoch order")
				assert.Equal(t, []int{3, 3, 3, 1}, sizes)
				sorted := slices.Clone(labels)
				slices.Sort(sorted)
				assert.Equal(t, upTo(10), sorted)
				l.Reset()
				reference.Reset()
			}

			// Reset in the middle of an epoch.
			_, _, _, err := l.Yield()
			require.NoError(t, err)
			l.Reset()
			_, sizes := epoch(t, l)
			assert.Len(t, sizes, 4)

			l.Done()
			_, _, _, err = l.Yield()
			require.Error(t, err)
			l.Reset() // Only logs a warning.
		})
	}
}

func TestStandardLoaderShuffle(t *testing.T) {
	mt, collator := alkanes(t, 10)
	a := must.M1(NewStandardLoader("a", mt, collator, Config{BatchSize: 10, Shuffle: true, Seed: 1}))
	b := must.M1(NewStandardLoader("b", mt, collator, Config{BatchSize: 10, Shuffle: true, Seed: 1}))
	labelsA, _ := epoch(t, a)
	labelsB, _ := epoch(t, b)
	assert.Equal(t, labelsA, labelsB, "same seed, same order")
}

func TestConstrainedShapeLoader(t *testing.T) {
	mt, collator := alkanes(t, 10)
	l, err := New(KindConstrainedShape, "train", mt, collator,
		Config{BatchSize: 4, BatchSizePerPack: 2, NumWorkers: 2})
	require.NoError(t, err)
	defer l.Done()
	constrained := l.(*ConstrainedShapeLoader)
	assert.Equal(t, 2, constrained.NumPacks())
	assert.Equal(t, 3, l.Len())

	maxNodes, maxEdges := mt.MaxNumNodes(), mt.MaxNumEdges()
	assert.Equal(t, 10, maxNodes)
	assert.Equal(t, 18, maxEdges)
	var numBatches int
	for {
		spec, inputs, labels, err := l.Yield()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		numBatches++
		batch := spec.(*collate.Batch)
		require.Len(t, batch.Packs, 2)
		// All batches have the same input shapes, including the last one with only 2 items.
		assert.Equal(t, []int{2, 2*maxNodes + 1, 44}, inputs[0].Shape().Dimensions)
		assert.Equal(t, []int{2, 2 * maxEdges, 7}, inputs[1].Shape().Dimensions)
		assert.Equal(t, []int{2, 2, 2 * maxEdges}, inputs[2].Shape().Dimensions)
		assert.Equal(t, []int{batch.Size, 1}, labels[0].Shape().Dimensions)
	}
	assert.Equal(t, 3, numBatches)

	_, err = New(KindConstrainedShape, "train", mt, collator, Config{BatchSize: 5, BatchSizePerPack: 2})
	require.Error(t, err)
	assert.True(t, errors.Is(err, data.ErrConfiguration))
	_, err = New(KindConstrainedShape, "train", mt, collator, Config{BatchSize: 4})
	assert.True(t, errors.Is(err, data.ErrConfiguration))
}

func TestNew(t *testing.T) {
	mt, collator := alkanes(t, 3)
	l, err := New("", "test", mt, collator, Config{BatchSize: 2})
	require.NoError(t, err)
	assert.IsType(t, &StandardLoader{}, l)

	for _, config := range []Config{{}, {BatchSize: 1, NumWorkers: -2}, {BatchSize: 1, BatchSizePerPack: -1}} {
		_, err = New(KindStandard, "test", mt, collator, config)
		assert.True(t, errors.Is(err, data.ErrConfiguration), "config %+v", config)
	}
	_, err = New("bucketed", "test", mt, collator, Config{BatchSize: 2})
	assert.True(t, errors.Is(err, data.ErrConfiguration))

	empty := datasets.NewMultitask("empty", map[string]*datasets.SingleTask{})
	l, err = New(KindStandard, "empty", empty, collator, Config{BatchSize: 2, NumWorkers: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	_, _, _, err = l.Yield()
	assert.Equal(t, io.EOF, err)
	l.Done()
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package featurize

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/gomlx/molpipe/pkg/chem/smiles"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/janpfeifer/must"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	assert.Equal(t, 44, DefaultConfig().NodeDim())
	assert.Equal(t, 7, DefaultConfig().EdgeDim())

	for _, cfg := range []Config{
		{},
		{AtomProperties: []string{"color"}},
		{AtomProperties: []string{AtomicNum}, BondProperties: []string{"length"}},
		{AtomProperties: []string{AtomicNum}, PositionalEncodings: []PositionalEncoding{{Type: LaplacianEigvec}}},
		{AtomProperties: []string{AtomicNum}, PositionalEncodings: []PositionalEncoding{{Type: "rwse"}}},
		{AtomProperties: []string{AtomicNum}, PositionalEncodings: []PositionalEncoding{{Type: Electrostatic}, {Type: Electrostatic}}},
		{AtomProperties: []string{AtomicNum}, MaxNumAtoms: -1},
	} {
		err := cfg.Validate()
		require.Errorf(t, err, "config %+v should be invalid", cfg)
		assert.True(t, errors.Is(err, data.ErrConfiguration))
	}
}

func TestGraphFeaturizer(t *testing.T) {
	fn := must.M1(GraphFeaturizer(DefaultConfig()))
	f, err := fn("CCO")
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, 3, f.NumNodes)
	assert.Equal(t, 4, f.NumEdges)
	assert.Equal(t, 44, f.NodeDim)
	assert.Equal(t, 7, f.EdgeDim)
	assert.Equal(t, []int32{0, 1, 1, 2}, f.EdgeSrc)
	assert.Equal(t, []int32{1, 0, 2, 1}, f.EdgeDst)
	assert.Nil(t, f.PositionalEncodings)

	// Atomic number bins: carbon is bin 2, oxygen bin 4.
	assert.Equal(t, float32(1), f.NodeFeatures[0*44+2])
	assert.Equal(t, float32(1), f.NodeFeatures[2*44+4])
	// Degree of the middle carbon.
	assert.Equal(t, float32(1), f.NodeFeatures[1*44+13+2])
	// Both directions of a bond share the features: single, not conjugated, not in ring.
	assert.Equal(t, []float32{1, 0, 0, 0, 0, 0, 0}, f.EdgeFeatures[0:7])
	assert.Equal(t, f.EdgeFeatures[0:7], f.EdgeFeatures[7:14])

	// Aromatic ring.
	f, err = fn("c1ccccc1")
	require.NoError(t, err)
	assert.Equal(t, 6, f.NumNodes)
	assert.Equal(t, 12, f.NumEdges)
	assert.Equal(t, []float32{0, 0, 0, 0, 1, 1, 1}, f.EdgeFeatures[0:7])

	// Hydrogens.
	cfg := DefaultConfig()
	cfg.ExplicitHydrogens = true
	fnH := must.M1(GraphFeaturizer(cfg))
	f, err = fnH("CCO")
	require.NoError(t, err)
	assert.Equal(t, 9, f.NumNodes)
	assert.Equal(t, 16, f.NumEdges)
	f, err = fn("[H]OC([H])([H])C")
	require.NoError(t, err)
	assert.Equal(t, 3, f.NumNodes)

	for _, invalid := range []string{"", "C1CC", "c1cc"} {
		_, err = fn(invalid)
		assert.Errorf(t, err, "featurizing %q should fail", invalid)
	}

	cfg = DefaultConfig()
	cfg.MaxNumAtoms = 5
	fnMax := must.M1(GraphFeaturizer(cfg))
	_, err = fnMax("c1ccccc1")
	require.Error(t, err)
	_, err = fnMax("CCCCC")
	require.NoError(t, err)
}

func TestMoleculeFeatures(t *testing.T) {
	m := smiles.NewMolecule()
	c := m.AddAtom(smiles.Atom{AtomicNum: 6})
	o := m.AddAtom(smiles.Atom{AtomicNum: 8})
	require.NoError(t, m.AddBond(c, o, smiles.BondDouble))
	f, err := MoleculeFeatures(DefaultConfig(), m)
	require.NoError(t, err)
	assert.Equal(t, 2, f.NumNodes)
	assert.Equal(t, float32(1), f.EdgeFeatures[1])
}

func TestPositionalEncodings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.PositionalEncodings = []PositionalEncoding{{Type: LaplacianEigvec, K: 3}, {Type: Electrostatic}}
	fn := must.M1(GraphFeaturizer(cfg))

	f, err := fn("c1ccccc1")
	require.NoError(t, err)
	require.NoError(t, f.Validate())
	assert.Equal(t, map[string]int{LaplacianEigvec: 3, Electrostatic: 4}, f.PositionalDims)
	assert.Equal(t, []string{Electrostatic, LaplacianEigvec}, f.PositionalNames())

	// Non-trivial eigenvectors are orthogonal to the constant vector.
	eigvecs := f.PositionalEncodings[LaplacianEigvec]
	for col := range 3 {
		var sum, norm float32
		for row := range 6 {
			sum += eigvecs[row*3+col]
			norm += eigvecs[row*3+col] * eigvecs[row*3+col]
		}
		assert.InDelta(t, 0, sum, 1e-4)
		assert.InDelta(t, 1, norm, 1e-4)
	}

	// All benzene atoms are equivalent.
	electrostatic := f.PositionalEncodings[Electrostatic]
	for row := 1; row < 6; row++ {
		assert.InDeltaSlice(t, electrostatic[0:4], electrostatic[row*4:(row+1)*4], 1e-4)
	}

	// Two atoms: pinv(L) = L/4.
	f, err = fn("CC")
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{-0.5, -0.25, 0, 0.25}, f.PositionalEncodings[Electrostatic][0:4], 1e-5)
	assert.InDeltaSlice(t, []float32{-0.5, -0.25, 0, 0.25}, f.PositionalEncodings[Electrostatic][4:8], 1e-5)
	// Only one non-trivial eigenvector: the rest is padding.
	eigvecs = f.PositionalEncodings[LaplacianEigvec]
	assert.InDelta(t, 1/1.41421356, max(eigvecs[0], eigvecs[3]), 1e-5)
	assert.Equal(t, []float32{0, 0}, eigvecs[1:3])

	// Single atom.
	f, err = fn("C")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0, 0}, f.PositionalEncodings[LaplacianEigvec])
	assert.Equal(t, []float32{0, 0, 0, 0}, f.PositionalEncodings[Electrostatic])
}

func TestValidate(t *testing.T) {
	fn := must.M1(GraphFeaturizer(DefaultConfig()))
	valid := must.M1(fn("CCO"))

	var nilFeature *MoleculeFeature
	assert.Error(t, nilFeature.Validate())

	broken := *valid
	broken.EdgeDst = []int32{1, 0, 2, 7}
	assert.Error(t, broken.Validate())

	broken = *valid
	broken.NodeFeatures = broken.NodeFeatures[:10]
	assert.Error(t, broken.Validate())

	broken = *valid
	broken.PositionalDims = map[string]int{Electrostatic: 4}
	assert.Error(t, broken.Validate())
}

func TestFeaturize(t *testing.T) {
	base := must.M1(GraphFeaturizer(DefaultConfig()))
	molecules := []string{"CCO", "C1CC", "c1ccccc1", "panic", "CN", "invalid-feature", "O", "panic-string"}
	for _, parallelism := range []int{0, 1, 3, -1} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			var numCalls atomic.Int32
			fn := func(molecule string) (*MoleculeFeature, error) {
				numCalls.Add(1)
				switch molecule {
				case "panic":
					panic(errors.New("boom"))
				case "panic-string":
					panic("boom")
				case "invalid-feature":
					return &MoleculeFeature{NumNodes: 0}, nil
				}
				return base(molecule)
			}
			features, failed := Featurize(molecules, fn, Options{Parallelism: parallelism, BatchSize: 2})
			assert.Equal(t, int32(len(molecules)), numCalls.Load(), "each molecule must be featurized exactly once")
			require.Len(t, features, len(molecules))
			assert.Equal(t, []int{1, 3, 5, 7}, failed)
			for ii, f := range features {
				if ii == 1 || ii == 3 || ii == 5 || ii == 7 {
					assert.Nil(t, f)
				} else {
					assert.NotNil(t, f)
				}
			}
		})
	}

	_, failures := FeaturizeWithFailures([]string{"C1CC"}, base, Options{})
	require.Len(t, failures, 1)
	assert.True(t, errors.Is(failures[0].Err, data.ErrFeaturizationFailure))
	assert.Equal(t, "C1CC", failures[0].Molecule)

	panicking := func(string) (*MoleculeFeature, error) { panic("out of atoms") }
	_, failures = FeaturizeWithFailures([]string{"C", "CC"}, panicking, Options{Parallelism: 2, BatchSize: 1})
	require.Len(t, failures, 2)
	for _, failure := range failures {
		assert.True(t, errors.Is(failure.Err, data.ErrFeaturizationFailure))
		assert.Contains(t, failure.Err.Error(), "out of atoms")
	}

	features, failed := Featurize(nil, base, Options{Parallelism: 2, Progress: true})
	assert.Empty(t, features)
	assert.Empty(t, failed)
}

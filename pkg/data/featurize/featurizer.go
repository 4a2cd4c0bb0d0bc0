// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package featurize

import (
	"github.com/gomlx/molpipe/pkg/chem/smiles"
	"github.com/pkg/errors"
)

// Func converts one molecule string into its graph features.
type Func func(molecule string) (*MoleculeFeature, error)

// Atomic numbers with their own one-hot bin, everything else goes to the last bin.
var commonAtomicNumbers = []int{1, 5, 6, 7, 8, 9, 14, 15, 16, 17, 35, 53}

var commonAtomBin = func() map[int]int {
	bins := make(map[int]int, len(commonAtomicNumbers))
	for ii, num := range commonAtomicNumbers {
		bins[num] = ii
	}
	return bins
}()

// Ring sizes with their own bin: 0 (not in ring), 3, 4, 5, 6 and 7 or more.
var ringSizeBins = []int{0, 3, 4, 5, 6, 7}

type atomEncoder struct {
	width  int
	encode func(m *smiles.Molecule, atomIdx int, dst []float32)
}

type bondEncoder struct {
	width  int
	encode func(m *smiles.Molecule, bondIdx int, dst []float32)
}

// oneHot sets dst[bin] to 1, clipping bin to the valid range.
func oneHot(dst []float32, bin int) {
	dst[max(0, min(bin, len(dst)-1))] = 1
}

func boolFeature(v bool) float32 {
	if v {
		return 1
	}
	return 0
}

var atomEncoders = map[string]atomEncoder{
	AtomicNum: {len(commonAtomicNumbers) + 1, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		bin, found := commonAtomBin[m.Atoms[atomIdx].AtomicNum]
		if !found {
			bin = len(commonAtomicNumbers)
		}
		dst[bin] = 1
	}},
	Degree: {6, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		oneHot(dst, m.Degree(atomIdx))
	}},
	FormalCharge: {5, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		oneHot(dst, m.Atoms[atomIdx].Charge+2)
	}},
	TotalNumHs: {5, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		oneHot(dst, m.TotalHCount(atomIdx))
	}},
	HybridizationType: {5, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		oneHot(dst, int(m.Hybridization(atomIdx)))
	}},
	Aromatic: {1, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		dst[0] = boolFeature(m.Atoms[atomIdx].Aromatic)
	}},
	InRing: {1, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		dst[0] = boolFeature(m.IsInRing(atomIdx))
	}},
	RingSize: {len(ringSizeBins), func(m *smiles.Molecule, atomIdx int, dst []float32) {
		size := m.SmallestRingSize(atomIdx)
		bin := 0
		for ii, binSize := range ringSizeBins {
			if size >= binSize {
				bin = ii
			}
		}
		dst[bin] = 1
	}},
	Mass: {1, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		dst[0] = smiles.Mass(m.Atoms[atomIdx].AtomicNum) / 100
	}},
	Electronegativity: {1, func(m *smiles.Molecule, atomIdx int, dst []float32) {
		dst[0] = smiles.Electronegativity(m.Atoms[atomIdx].AtomicNum) / 4
	}},
}

var bondEncoders = map[string]bondEncoder{
	// Single, double, triple, quadruple and aromatic.
	BondType: {5, func(m *smiles.Molecule, bondIdx int, dst []float32) {
		oneHot(dst, int(m.Bonds[bondIdx].Order)-int(smiles.BondSingle))
	}},
	Conjugated: {1, func(m *smiles.Molecule, bondIdx int, dst []float32) {
		dst[0] = boolFeature(m.IsConjugated(bondIdx))
	}},
	BondInRing: {1, func(m *smiles.Molecule, bondIdx int, dst []float32) {
		dst[0] = boolFeature(m.Bonds[bondIdx].InRing)
	}},
}

// GraphFeaturizer returns the Func that parses SMILES and builds the graph features configured by cfg.
func GraphFeaturizer(cfg Config) (Func, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	nodeDim, edgeDim := cfg.NodeDim(), cfg.EdgeDim()
	return func(molecule string) (*MoleculeFeature, error) {
		m, err := smiles.Parse(molecule)
		if err != nil {
			return nil, err
		}
		if cfg.ExplicitHydrogens {
			m = m.AddHydrogens()
		} else {
			m = m.RemoveHydrogens()
		}
		return featuresFromMolecule(cfg, m, nodeDim, edgeDim)
	}, nil
}

// MoleculeFeatures builds the graph features of an already parsed (and perceived) molecule, for instance one
// read from an SDF file.
func MoleculeFeatures(cfg Config, m *smiles.Molecule) (*MoleculeFeature, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := m.Perceive(); err != nil {
		return nil, err
	}
	if cfg.ExplicitHydrogens {
		m = m.AddHydrogens()
	} else {
		m = m.RemoveHydrogens()
	}
	return featuresFromMolecule(cfg, m, cfg.NodeDim(), cfg.EdgeDim())
}

func featuresFromMolecule(cfg Config, m *smiles.Molecule, nodeDim, edgeDim int) (*MoleculeFeature, error) {
	numNodes := m.NumAtoms()
	if numNodes == 0 {
		return nil, errors.New("molecule has no atoms")
	}
	if cfg.MaxNumAtoms > 0 && numNodes > cfg.MaxNumAtoms {
		return nil, errors.Errorf("molecule has %d atoms, more than the maximum of %d", numNodes, cfg.MaxNumAtoms)
	}
	f := &MoleculeFeature{
		NumNodes:     numNodes,
		NumEdges:     2 * m.NumBonds(),
		NodeDim:      nodeDim,
		EdgeDim:      edgeDim,
		NodeFeatures: make([]float32, numNodes*nodeDim),
	}
	for atomIdx := range numNodes {
		row := f.NodeFeatures[atomIdx*nodeDim : (atomIdx+1)*nodeDim]
		for _, name := range cfg.AtomProperties {
			encoder := atomEncoders[name]
			encoder.encode(m, atomIdx, row[:encoder.width])
			row = row[encoder.width:]
		}
	}

	f.EdgeFeatures = make([]float32, f.NumEdges*edgeDim)
	f.EdgeSrc = make([]int32, f.NumEdges)
	f.EdgeDst = make([]int32, f.NumEdges)
	for bondIdx, bond := range m.Bonds {
		forward, backward := 2*bondIdx, 2*bondIdx+1
		f.EdgeSrc[forward], f.EdgeDst[forward] = int32(bond.From), int32(bond.To)
		f.EdgeSrc[backward], f.EdgeDst[backward] = int32(bond.To), int32(bond.From)
		row := f.EdgeFeatures[forward*edgeDim : (forward+1)*edgeDim]
		for _, name := range cfg.BondProperties {
			encoder := bondEncoders[name]
			encoder.encode(m, bondIdx, row[:encoder.width])
			row = row[encoder.width:]
		}
		copy(f.EdgeFeatures[backward*edgeDim:(backward+1)*edgeDim], f.EdgeFeatures[forward*edgeDim:(forward+1)*edgeDim])
	}

	if len(cfg.PositionalEncodings) > 0 {
		f.PositionalEncodings = make(map[string][]float32, len(cfg.PositionalEncodings))
		f.PositionalDims = make(map[string]int, len(cfg.PositionalEncodings))
		adjacency := adjacencyMatrix(numNodes, f.EdgeSrc, f.EdgeDst)
		for _, pe := range cfg.PositionalEncodings {
			var values []float32
			var err error
			switch pe.Type {
			case LaplacianEigvec:
				values, err = laplacianEigvecs(adjacency, pe.K)
			case Electrostatic:
				values, err = electrostaticInteractions(adjacency)
			}
			if err != nil {
				return nil, errors.WithMessagef(err, "positional encoding %q", pe.Type)
			}
			f.PositionalEncodings[pe.Type] = values
			f.PositionalDims[pe.Type] = pe.Dim()
		}
	}
	return f, nil
}

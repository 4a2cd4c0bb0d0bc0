// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package featurize

import (
	"slices"

	"github.com/gomlx/molpipe/pkg/data"
	"golang.org/x/exp/maps"
)

// Atom properties that can be listed in Config.AtomProperties.
const (
	AtomicNum         = "atomic_num"
	Degree            = "degree"
	FormalCharge      = "formal_charge"
	TotalNumHs        = "total_num_hs"
	HybridizationType = "hybridization"
	Aromatic          = "aromatic"
	InRing            = "in_ring"
	RingSize          = "ring_size"
	Mass              = "mass"
	Electronegativity = "electronegativity"
)

// Bond properties that can be listed in Config.BondProperties.
const (
	BondType   = "bond_type"
	Conjugated = "conjugated"
	BondInRing = "in_ring"
)

// Positional encoding types.
const (
	LaplacianEigvec = "laplacian_eigvec"
	Electrostatic   = "electrostatic"
)

// PositionalEncoding configures one node-level positional encoding.
type PositionalEncoding struct {
	// Type is LaplacianEigvec or Electrostatic.
	Type string `yaml:"type"`

	// K is the number of eigenvectors of LaplacianEigvec.
	K int `yaml:"k,omitempty"`
}

// Dim of the encoding of each node.
func (pe PositionalEncoding) Dim() int {
	if pe.Type == LaplacianEigvec {
		return pe.K
	}
	return len(electrostaticAggregations)
}

// Config of the graph featurizer.
type Config struct {
	// AtomProperties lists the node features, in order. See the atom property constants.
	AtomProperties []string `yaml:"atom_property_list"`

	// BondProperties lists the edge features, in order. See the bond property constants.
	BondProperties []string `yaml:"bond_property_list"`

	PositionalEncodings []PositionalEncoding `yaml:"pos_encodings,omitempty"`

	// MaxNumAtoms makes molecules with more atoms fail featurization. 0 means no limit.
	MaxNumAtoms int `yaml:"max_num_atoms,omitempty"`

	// ExplicitHydrogens adds the hydrogens as nodes of the graph.
	ExplicitHydrogens bool `yaml:"explicit_hydrogens,omitempty"`
}

// DefaultConfig uses every atom and bond property and no positional encodings.
func DefaultConfig() Config {
	return Config{
		AtomProperties: []string{AtomicNum, Degree, FormalCharge, TotalNumHs, HybridizationType, Aromatic, InRing,
			RingSize, Mass, Electronegativity},
		BondProperties: []string{BondType, Conjugated, BondInRing},
	}
}

// Validate returns a data.ErrConfiguration for unknown properties or encodings.
func (c Config) Validate() error {
	if len(c.AtomProperties) == 0 {
		return data.Configurationf("featurization requires at least one atom property")
	}
	for _, name := range c.AtomProperties {
		if _, found := atomEncoders[name]; !found {
			known := maps.Keys(atomEncoders)
			slices.Sort(known)
			return data.Configurationf("unknown atom property %q, valid values are %q", name, known)
		}
	}
	for _, name := range c.BondProperties {
		if _, found := bondEncoders[name]; !found {
			known := maps.Keys(bondEncoders)
			slices.Sort(known)
			return data.Configurationf("unknown bond property %q, valid values are %q", name, known)
		}
	}
	seen := make(map[string]bool)
	for _, pe := range c.PositionalEncodings {
		switch pe.Type {
		case LaplacianEigvec:
			if pe.K <= 0 {
				return data.Configurationf("positional encoding %q requires k > 0, got %d", pe.Type, pe.K)
			}
		case Electrostatic:
		default:
			return data.Configurationf("unknown positional encoding %q, valid values are %q", pe.Type,
				[]string{LaplacianEigvec, Electrostatic})
		}
		if seen[pe.Type] {
			return data.Configurationf("positional encoding %q configured more than once", pe.Type)
		}
		seen[pe.Type] = true
	}
	if c.MaxNumAtoms < 0 {
		return data.Configurationf("max_num_atoms must be >= 0, got %d", c.MaxNumAtoms)
	}
	return nil
}

// NodeDim is the width of the node features.
func (c Config) NodeDim() int {
	dim := 0
	for _, name := range c.AtomProperties {
		dim += atomEncoders[name].width
	}
	return dim
}

// EdgeDim is the width of the edge features.
func (c Config) EdgeDim() int {
	dim := 0
	for _, name := range c.BondProperties {
		dim += bondEncoders[name].width
	}
	return dim
}

// PositionalDims returns the width of each configured positional encoding.
func (c Config) PositionalDims() map[string]int {
	dims := make(map[string]int, len(c.PositionalEncodings))
	for _, pe := range c.PositionalEncodings {
		dims[pe.Type] = pe.Dim()
	}
	return dims
}

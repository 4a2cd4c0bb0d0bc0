// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package smiles parses SMILES strings into molecular graphs, perceives rings and aromaticity, and writes
// canonical SMILES, so that structurally identical molecules, however they are written, map to the same
// identifier.
//
// The supported syntax covers the organic subset, bracket atoms (isotopes, charges, hydrogen counts,
// atom classes), branches, bond symbols, ring closures (including the "%nn" form) and disconnected
// fragments. Stereo information (chirality and directional bonds) is accepted but not represented,
// so stereoisomers share the same canonical SMILES.
package smiles

import (
	"fmt"

	"github.com/pkg/errors"
)

// BondOrder of a bond.
type BondOrder int8

const (
	BondSingle BondOrder = iota + 1
	BondDouble
	BondTriple
	BondQuadruple
	BondAromatic
)

// String implements fmt.Stringer.
func (o BondOrder) String() string {
	switch o {
	case BondSingle:
		return "single"
	case BondDouble:
		return "double"
	case BondTriple:
		return "triple"
	case BondQuadruple:
		return "quadruple"
	case BondAromatic:
		return "aromatic"
	}
	return fmt.Sprintf("BondOrder(%d)", int(o))
}

// valence contribution of the bond, with aromatic bonds counting as 1 (the extra electron is accounted per atom).
func (o BondOrder) valence() int {
	switch o {
	case BondAromatic:
		return 1
	default:
		return int(o)
	}
}

// Hybridization of an atom, as used by the featurizer.
type Hybridization int8

const (
	HybridizationUnspecified Hybridization = iota
	HybridizationS
	HybridizationSP
	HybridizationSP2
	HybridizationSP3
)

// Atom in a Molecule.
type Atom struct {
	AtomicNum int
	Aromatic  bool
	Charge    int
	Isotope   int

	// HCount is the total number of hydrogens attached to the atom that are not represented as atoms
	// of the graph: explicit for bracket atoms, computed from default valences otherwise.
	HCount int

	// Bracket is set for atoms written in brackets: their hydrogen count is never computed.
	Bracket bool

	// hFinal is set once HCount no longer needs to be computed.
	hFinal bool

	// Class is the atom class (":n" in bracket atoms). It is not part of the canonical form.
	Class int
}

// Symbol returns the element symbol of the atom.
func (a *Atom) Symbol() string {
	return Symbol(a.AtomicNum)
}

// Bond connects two atoms in a Molecule.
type Bond struct {
	From, To int
	Order    BondOrder

	// InRing is set by ring perception.
	InRing bool
}

// Other returns the atom at the other end of the bond.
func (b *Bond) Other(atomIdx int) int {
	if b.From == atomIdx {
		return b.To
	}
	return b.From
}

// Molecule is an undirected graph of atoms and bonds.
//
// Build it with AddAtom and AddBond (or with Parse) and call Perceive once the graph is complete.
type Molecule struct {
	Atoms []Atom
	Bonds []Bond

	// atomBonds lists the indices of the bonds of each atom.
	atomBonds [][]int

	// smallestRing holds the size of the smallest ring including each atom, 0 if not in a ring.
	smallestRing []int
	perceived    bool
}

// NewMolecule returns an empty molecule.
func NewMolecule() *Molecule {
	return &Molecule{}
}

// NumAtoms returns the number of atoms (hydrogens folded into HCount are not counted).
func (m *Molecule) NumAtoms() int { return len(m.Atoms) }

// NumBonds returns the number of bonds.
func (m *Molecule) NumBonds() int { return len(m.Bonds) }

// AddAtom appends the atom to the molecule and returns its index.
func (m *Molecule) AddAtom(atom Atom) int {
	m.Atoms = append(m.Atoms, atom)
	m.atomBonds = append(m.atomBonds, nil)
	m.perceived = false
	return len(m.Atoms) - 1
}

// AddBond connects atoms a and b. It fails for self-bonds, unknown atoms or if the atoms are already bonded.
func (m *Molecule) AddBond(a, b int, order BondOrder) error {
	if a < 0 || b < 0 || a >= len(m.Atoms) || b >= len(m.Atoms) {
		return errors.Errorf("bond between invalid atoms %d and %d (molecule has %d atoms)", a, b, len(m.Atoms))
	}
	if a == b {
		return errors.Errorf("atom %d can't be bonded to itself", a)
	}
	if m.BondBetween(a, b) >= 0 {
		return errors.Errorf("atoms %d and %d are bonded more than once", a, b)
	}
	m.Bonds = append(m.Bonds, Bond{From: a, To: b, Order: order})
	bondIdx := len(m.Bonds) - 1
	m.atomBonds[a] = append(m.atomBonds[a], bondIdx)
	m.atomBonds[b] = append(m.atomBonds[b], bondIdx)
	m.perceived = false
	return nil
}

// AtomBonds returns the indices of the bonds of the atom. The returned slice must not be modified.
func (m *Molecule) AtomBonds(atomIdx int) []int {
	return m.atomBonds[atomIdx]
}

// Degree returns the number of bonds of the atom in the graph.
func (m *Molecule) Degree(atomIdx int) int {
	return len(m.atomBonds[atomIdx])
}

// BondBetween returns the index of the bond between atoms a and b, or -1 if they are not bonded.
func (m *Molecule) BondBetween(a, b int) int {
	for _, bondIdx := range m.atomBonds[a] {
		if m.Bonds[bondIdx].Other(a) == b {
			return bondIdx
		}
	}
	return -1
}

// IsInRing returns whether the atom is part of any ring. Only valid after Perceive.
func (m *Molecule) IsInRing(atomIdx int) bool {
	return m.SmallestRingSize(atomIdx) > 0
}

// SmallestRingSize returns the size of the smallest ring the atom is part of, or 0 if it is not in a ring.
// Only valid after Perceive.
func (m *Molecule) SmallestRingSize(atomIdx int) int {
	if atomIdx >= len(m.smallestRing) {
		return 0
	}
	return m.smallestRing[atomIdx]
}

// TotalHCount returns the number of hydrogens attached to the atom, including hydrogens that are atoms in
// the graph.
func (m *Molecule) TotalHCount(atomIdx int) int {
	count := m.Atoms[atomIdx].HCount
	for _, bondIdx := range m.atomBonds[atomIdx] {
		if m.Atoms[m.Bonds[bondIdx].Other(atomIdx)].AtomicNum == 1 {
			count++
		}
	}
	return count
}

// Hybridization returns a simple estimate of the hybridization of the atom, derived from its bonds.
func (m *Molecule) Hybridization(atomIdx int) Hybridization {
	atom := &m.Atoms[atomIdx]
	if atom.AtomicNum <= 2 {
		return HybridizationS
	}
	if atom.Aromatic {
		return HybridizationSP2
	}
	var numDouble, numTriple int
	for _, bondIdx := range m.atomBonds[atomIdx] {
		switch m.Bonds[bondIdx].Order {
		case BondDouble:
			numDouble++
		case BondTriple, BondQuadruple:
			numTriple++
		case BondAromatic:
			return HybridizationSP2
		}
	}
	switch {
	case numTriple > 0 || numDouble > 1:
		return HybridizationSP
	case numDouble == 1:
		return HybridizationSP2
	case m.Degree(atomIdx)+atom.HCount == 0:
		return HybridizationUnspecified
	}
	return HybridizationSP3
}

// IsConjugated returns whether the bond is aromatic, or is a single bond between two atoms with multiple
// bonds, or is a multiple bond next to another multiple or aromatic bond.
func (m *Molecule) IsConjugated(bondIdx int) bool {
	bond := &m.Bonds[bondIdx]
	if bond.Order == BondAromatic {
		return true
	}
	hasUnsaturation := func(atomIdx int) bool {
		for _, otherIdx := range m.atomBonds[atomIdx] {
			if otherIdx == bondIdx {
				continue
			}
			if o := m.Bonds[otherIdx].Order; o == BondDouble || o == BondTriple || o == BondAromatic {
				return true
			}
		}
		return false
	}
	return hasUnsaturation(bond.From) && hasUnsaturation(bond.To) ||
		(bond.Order != BondSingle && (hasUnsaturation(bond.From) || hasUnsaturation(bond.To)))
}

// Clone returns a deep copy of the molecule.
func (m *Molecule) Clone() *Molecule {
	c := &Molecule{
		Atoms:        append([]Atom(nil), m.Atoms...),
		Bonds:        append([]Bond(nil), m.Bonds...),
		atomBonds:    make([][]int, len(m.atomBonds)),
		smallestRing: append([]int(nil), m.smallestRing...),
		perceived:    m.perceived,
	}
	for ii, bonds := range m.atomBonds {
		c.atomBonds[ii] = append([]int(nil), bonds...)
	}
	return c
}

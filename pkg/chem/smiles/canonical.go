// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package smiles

import (
	"slices"
	"strconv"
	"strings"
)

// Canonical parses the SMILES string and returns its canonical form. See Molecule.CanonicalSMILES.
func Canonical(smiles string) (string, error) {
	m, err := Parse(smiles)
	if err != nil {
		return "", err
	}
	return m.RemoveHydrogens().CanonicalSMILES(), nil
}

// CanonicalSMILES returns a SMILES string that only depends on the structure of the molecule, not on the
// order its atoms were given.
//
// Atoms are ranked by iterative refinement of their invariants (degree, element, isotope, charge,
// hydrogens, aromaticity, ring size) by their neighbors' ranks, with ties between symmetric atoms broken
// deterministically; the string is then written depth-first starting from the lowest ranked atom of
// each fragment, visiting neighbors in rank order.
//
// Explicit hydrogen atoms are written as atoms; use RemoveHydrogens first to fold them. The molecule
// must have been perceived (Parse does that).
func (m *Molecule) CanonicalSMILES() string {
	if len(m.Atoms) == 0 {
		return ""
	}
	ranks := m.canonicalRanks()
	w := &canonicalWriter{
		m:         m,
		ranks:     ranks,
		visited:   make([]bool, len(m.Atoms)),
		bondUsed:  make([]bool, len(m.Bonds)),
		children:  make([][]int, len(m.Atoms)),
		ringOpen:  make([][]int, len(m.Atoms)),
		ringClose: make([][]int, len(m.Atoms)),
		digits:    make(map[int]int),
	}
	roots := make([]int, len(m.Atoms))
	for ii := range roots {
		roots[ii] = ii
	}
	slices.SortFunc(roots, func(a, b int) int { return ranks[a] - ranks[b] })
	first := true
	for _, root := range roots {
		if w.visited[root] {
			continue
		}
		w.buildTree(root, -1)
		if !first {
			w.sb.WriteByte('.')
		}
		first = false
		w.write(root, -1)
	}
	return w.sb.String()
}

// atomInvariant used to seed the canonical ranking.
func (m *Molecule) atomInvariant(atomIdx int) []int {
	atom := &m.Atoms[atomIdx]
	aromatic := 0
	if atom.Aromatic {
		aromatic = 1
	}
	numRingBonds := 0
	for _, bondIdx := range m.atomBonds[atomIdx] {
		if m.Bonds[bondIdx].InRing {
			numRingBonds++
		}
	}
	return []int{m.Degree(atomIdx), atom.AtomicNum, atom.Isotope, atom.Charge, atom.HCount, aromatic,
		m.SmallestRingSize(atomIdx), numRingBonds}
}

// denseRanks sorts the items with cmp and returns dense ranks (equal items share a rank, starting at 0).
func denseRanks(n int, cmp func(a, b int) int) []int {
	idx := make([]int, n)
	for ii := range idx {
		idx[ii] = ii
	}
	slices.SortStableFunc(idx, cmp)
	ranks := make([]int, n)
	rank := 0
	for ii, atomIdx := range idx {
		if ii > 0 && cmp(idx[ii-1], atomIdx) != 0 {
			rank++
		}
		ranks[atomIdx] = rank
	}
	return ranks
}

func numClasses(ranks []int) int {
	if len(ranks) == 0 {
		return 0
	}
	return slices.Max(ranks) + 1
}

// canonicalRanks returns a unique rank per atom.
func (m *Molecule) canonicalRanks() []int {
	n := len(m.Atoms)
	invariants := make([][]int, n)
	for ii := range invariants {
		invariants[ii] = m.atomInvariant(ii)
	}
	ranks := denseRanks(n, func(a, b int) int { return slices.Compare(invariants[a], invariants[b]) })
	ranks = m.refineRanks(ranks)
	for numClasses(ranks) < n {
		// Break the tie of the lowest tied rank by favoring one of its atoms. Atoms tied after refinement
		// are symmetric in practice, so the choice doesn't change the resulting string.
		counts := make([]int, n)
		for _, r := range ranks {
			counts[r]++
		}
		tiedRank := slices.IndexFunc(counts, func(c int) bool { return c > 1 })
		chosen := slices.Index(ranks, tiedRank)
		for ii := range ranks {
			ranks[ii] *= 2
			if ranks[ii] > 2*tiedRank || (ranks[ii] == 2*tiedRank && ii != chosen) {
				ranks[ii]++
			}
		}
		ranks = denseRanks(n, func(a, b int) int { return ranks[a] - ranks[b] })
		ranks = m.refineRanks(ranks)
	}
	return ranks
}

// refineRanks splits rank classes using the sorted ranks (and bond orders) of each atom's neighbors,
// until the number of classes stops increasing.
func (m *Molecule) refineRanks(ranks []int) []int {
	n := len(ranks)
	for {
		keys := make([][]int, n)
		for ii := range keys {
			neighbors := make([]int, 0, len(m.atomBonds[ii]))
			for _, bondIdx := range m.atomBonds[ii] {
				bond := &m.Bonds[bondIdx]
				neighbors = append(neighbors, ranks[bond.Other(ii)]*8+int(bond.Order))
			}
			slices.Sort(neighbors)
			keys[ii] = append([]int{ranks[ii]}, neighbors...)
		}
		newRanks := denseRanks(n, func(a, b int) int { return slices.Compare(keys[a], keys[b]) })
		if numClasses(newRanks) == numClasses(ranks) {
			return newRanks
		}
		ranks = newRanks
	}
}

// canonicalWriter writes the SMILES string in two passes: buildTree finds the depth-first spanning tree
// and the ring closures, and write emits the string.
type canonicalWriter struct {
	m     *Molecule
	ranks []int
	sb    strings.Builder

	visited  []bool
	bondUsed []bool

	// children[atom] are the bonds to the children in the spanning tree, in rank order.
	children [][]int

	// ringOpen[atom] and ringClose[atom] are the ring closure bonds opened/closed at each atom.
	ringOpen, ringClose [][]int

	// digits maps open ring closure bonds to their digit.
	digits     map[int]int
	usedDigits []bool
}

func (w *canonicalWriter) sortedBonds(atomIdx int) []int {
	bonds := slices.Clone(w.m.atomBonds[atomIdx])
	slices.SortFunc(bonds, func(a, b int) int {
		return w.ranks[w.m.Bonds[a].Other(atomIdx)] - w.ranks[w.m.Bonds[b].Other(atomIdx)]
	})
	return bonds
}

func (w *canonicalWriter) buildTree(atomIdx, parentBond int) {
	w.visited[atomIdx] = true
	for _, bondIdx := range w.sortedBonds(atomIdx) {
		if bondIdx == parentBond || w.bondUsed[bondIdx] {
			continue
		}
		w.bondUsed[bondIdx] = true
		other := w.m.Bonds[bondIdx].Other(atomIdx)
		if w.visited[other] {
			// Ring closure: opened at the atom written first.
			w.ringOpen[other] = append(w.ringOpen[other], bondIdx)
			w.ringClose[atomIdx] = append(w.ringClose[atomIdx], bondIdx)
			continue
		}
		w.children[atomIdx] = append(w.children[atomIdx], bondIdx)
		w.buildTree(other, bondIdx)
	}
}

func (w *canonicalWriter) write(atomIdx, parentBond int) {
	if parentBond >= 0 {
		w.sb.WriteString(w.bondSymbol(parentBond))
	}
	w.sb.WriteString(w.m.atomToken(atomIdx))
	for _, bondIdx := range w.ringClose[atomIdx] {
		digit := w.digits[bondIdx]
		delete(w.digits, bondIdx)
		w.usedDigits[digit] = false
		w.sb.WriteString(ringDigit(digit))
	}
	for _, bondIdx := range w.ringOpen[atomIdx] {
		digit := w.allocateDigit()
		w.digits[bondIdx] = digit
		w.sb.WriteString(w.bondSymbol(bondIdx))
		w.sb.WriteString(ringDigit(digit))
	}
	children := w.children[atomIdx]
	for ii, bondIdx := range children {
		child := w.m.Bonds[bondIdx].Other(atomIdx)
		if ii < len(children)-1 {
			w.sb.WriteByte('(')
			w.write(child, bondIdx)
			w.sb.WriteByte(')')
		} else {
			w.write(child, bondIdx)
		}
	}
}

func (w *canonicalWriter) allocateDigit() int {
	for digit := 1; ; digit++ {
		for digit >= len(w.usedDigits) {
			w.usedDigits = append(w.usedDigits, false)
		}
		if !w.usedDigits[digit] {
			w.usedDigits[digit] = true
			return digit
		}
	}
}

func ringDigit(digit int) string {
	if digit < 10 {
		return strconv.Itoa(digit)
	}
	return "%" + strconv.Itoa(digit)
}

func (w *canonicalWriter) bondSymbol(bondIdx int) string {
	bond := &w.m.Bonds[bondIdx]
	switch bond.Order {
	case BondSingle:
		if w.m.Atoms[bond.From].Aromatic && w.m.Atoms[bond.To].Aromatic {
			return "-"
		}
		return ""
	case BondDouble:
		return "="
	case BondTriple:
		return "#"
	case BondQuadruple:
		return "$"
	}
	return ""
}

// atomToken returns the atom as written in SMILES: in the organic subset form if the hydrogen count
// matches the default valence, otherwise in brackets.
func (m *Molecule) atomToken(atomIdx int) string {
	atom := &m.Atoms[atomIdx]
	symbol := atom.Symbol()
	if atom.Aromatic {
		symbol = strings.ToLower(symbol)
	}
	organic := organicSubset[atom.Symbol()] && atom.Charge == 0 && atom.Isotope == 0 &&
		(!atom.Aromatic || aromaticCapable[atom.Symbol()] && len(symbol) == 1)
	if organic && atom.HCount == m.implicitHCount(atomIdx) {
		return symbol
	}
	var sb strings.Builder
	sb.WriteByte('[')
	if atom.Isotope > 0 {
		sb.WriteString(strconv.Itoa(atom.Isotope))
	}
	sb.WriteString(symbol)
	if atom.HCount > 0 {
		sb.WriteByte('H')
		if atom.HCount > 1 {
			sb.WriteString(strconv.Itoa(atom.HCount))
		}
	}
	if atom.Charge != 0 {
		if atom.Charge > 0 {
			sb.WriteByte('+')
		} else {
			sb.WriteByte('-')
		}
		if abs := max(atom.Charge, -atom.Charge); abs > 1 {
			sb.WriteString(strconv.Itoa(abs))
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

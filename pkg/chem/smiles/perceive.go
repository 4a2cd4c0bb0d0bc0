// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package smiles

import (
	"slices"

	"github.com/pkg/errors"
)

// Perceive completes the molecule once all atoms and bonds are added:
//
//   - Marks ring bonds and the smallest ring size of each atom.
//   - Demotes aromatic bonds outside rings to single bonds.
//   - Computes the implicit hydrogen counts of atoms not written in brackets (from default valences).
//   - Perceives aromatic rings written in Kekulé form (alternating single and double bonds), so
//     "C1=CC=CC=C1" and "c1ccccc1" become the same molecule.
//
// It returns an error if an atom is marked aromatic but is not in a ring. Calling it more than once is safe.
func (m *Molecule) Perceive() error {
	if m.perceived {
		return nil
	}
	m.markRingBonds()
	for ii := range m.Bonds {
		bond := &m.Bonds[ii]
		if bond.Order == BondAromatic && !bond.InRing {
			bond.Order = BondSingle
		}
	}
	for ii := range m.Atoms {
		atom := &m.Atoms[ii]
		if atom.Aromatic && !m.hasRingBond(ii) {
			return errors.Errorf("atom %d (%s) is marked aromatic but it is not in a ring", ii, atom.Symbol())
		}
		if !atom.Bracket && !atom.hFinal {
			atom.HCount = m.implicitHCount(ii)
		}
		atom.hFinal = true
	}
	rings := m.smallestRings()
	m.smallestRing = make([]int, len(m.Atoms))
	for _, ring := range rings {
		for _, atomIdx := range ring {
			if m.smallestRing[atomIdx] == 0 || len(ring) < m.smallestRing[atomIdx] {
				m.smallestRing[atomIdx] = len(ring)
			}
		}
	}
	m.perceiveAromaticity(rings)
	m.perceived = true
	return nil
}

func (m *Molecule) hasRingBond(atomIdx int) bool {
	for _, bondIdx := range m.atomBonds[atomIdx] {
		if m.Bonds[bondIdx].InRing {
			return true
		}
	}
	return false
}

// targetValences returns the allowed valences of the atom adjusted by its charge, or nil if the element
// has no default valence.
func targetValences(atomicNum, charge int) []int {
	valences, found := defaultValences[atomicNum]
	if !found {
		return nil
	}
	if charge == 0 {
		return valences
	}
	adjusted := make([]int, 0, len(valences))
	for _, v := range valences {
		switch atomicNum {
		case 5:
			v -= charge
		case 6:
			v -= max(charge, -charge)
		default:
			v += charge
		}
		if v >= 0 {
			adjusted = append(adjusted, v)
		}
	}
	return adjusted
}

// implicitHCount returns the number of implicit hydrogens of an atom written without brackets.
//
// Aromatic heteroatoms (n, o, s, p...) never get implicit hydrogens: "[nH]" must be explicit. Aromatic
// carbons and borons count one extra valence for the aromatic system.
func (m *Molecule) implicitHCount(atomIdx int) int {
	atom := &m.Atoms[atomIdx]
	valences := targetValences(atom.AtomicNum, atom.Charge)
	if len(valences) == 0 {
		return 0
	}
	sum := 0
	hasAromaticBond := false
	for _, bondIdx := range m.atomBonds[atomIdx] {
		order := m.Bonds[bondIdx].Order
		sum += order.valence()
		if order == BondAromatic {
			hasAromaticBond = true
		}
	}
	if atom.Aromatic {
		if atom.AtomicNum != 6 && atom.AtomicNum != 5 {
			return 0
		}
		if hasAromaticBond {
			sum++
		}
	}
	for _, v := range valences {
		if v >= sum {
			return v - sum
		}
	}
	return 0
}

// markRingBonds sets Bond.InRing for every bond that is not a bridge of the graph (Tarjan's algorithm).
func (m *Molecule) markRingBonds() {
	numAtoms := len(m.Atoms)
	order := make([]int, numAtoms)
	low := make([]int, numAtoms)
	for ii := range order {
		order[ii] = -1
	}
	for ii := range m.Bonds {
		m.Bonds[ii].InRing = true
	}
	counter := 0
	type frame struct {
		atom, parentBond, next int
	}
	for root := range numAtoms {
		if order[root] >= 0 {
			continue
		}
		stack := []frame{{atom: root, parentBond: -1}}
		order[root], low[root] = counter, counter
		counter++
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			bonds := m.atomBonds[top.atom]
			if top.next < len(bonds) {
				bondIdx := bonds[top.next]
				top.next++
				if bondIdx == top.parentBond {
					continue
				}
				other := m.Bonds[bondIdx].Other(top.atom)
				if order[other] < 0 {
					order[other], low[other] = counter, counter
					counter++
					stack = append(stack, frame{atom: other, parentBond: bondIdx})
				} else {
					low[top.atom] = min(low[top.atom], order[other])
				}
				continue
			}
			// Finished with top: propagate low value to the parent.
			finished := *top
			stack = stack[:len(stack)-1]
			if finished.parentBond >= 0 {
				parent := stack[len(stack)-1].atom
				low[parent] = min(low[parent], low[finished.atom])
				if low[finished.atom] > order[parent] {
					m.Bonds[finished.parentBond].InRing = false
				}
			}
		}
	}
}

// smallestRings returns, for each ring bond, the smallest ring containing it, deduplicated. Rings are
// returned as lists of atoms in ring order, sorted by size (and then by atom indices for determinism).
func (m *Molecule) smallestRings() [][]int {
	seen := make(map[string]bool)
	var rings [][]int
	for bondIdx, bond := range m.Bonds {
		if !bond.InRing {
			continue
		}
		path := m.shortestPathAvoiding(bond.From, bond.To, bondIdx)
		if path == nil {
			continue
		}
		key := make([]int, len(path))
		copy(key, path)
		slices.Sort(key)
		k := string(intsKey(key))
		if seen[k] {
			continue
		}
		seen[k] = true
		rings = append(rings, path)
	}
	slices.SortStableFunc(rings, func(a, b []int) int {
		if len(a) != len(b) {
			return len(a) - len(b)
		}
		return slices.Compare(a, b)
	})
	return rings
}

func intsKey(values []int) []byte {
	key := make([]byte, 0, 4*len(values))
	for _, v := range values {
		key = append(key, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	return key
}

// shortestPathAvoiding returns the shortest path of atoms from `from` to `to` not using bond `skipBond`,
// or nil if there is none. Only ring bonds are traversed.
func (m *Molecule) shortestPathAvoiding(from, to, skipBond int) []int {
	parent := make([]int, len(m.Atoms))
	for ii := range parent {
		parent[ii] = -2
	}
	parent[from] = -1
	queue := []int{from}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if current == to {
			break
		}
		for _, bondIdx := range m.atomBonds[current] {
			if bondIdx == skipBond || !m.Bonds[bondIdx].InRing {
				continue
			}
			next := m.Bonds[bondIdx].Other(current)
			if parent[next] != -2 {
				continue
			}
			parent[next] = current
			queue = append(queue, next)
		}
	}
	if parent[to] == -2 {
		return nil
	}
	var path []int
	for atomIdx := to; atomIdx != -1; atomIdx = parent[atomIdx] {
		path = append(path, atomIdx)
	}
	slices.Reverse(path)
	return path
}

// perceiveAromaticity marks 5 to 7 membered rings satisfying Hückel's 4n+2 rule as aromatic.
//
// Rings are revisited until nothing changes, so fused systems written in Kekulé form are handled:
// once a ring is aromatic, its atoms count as contributing one electron to the neighboring rings.
func (m *Molecule) perceiveAromaticity(rings [][]int) {
	for changed := true; changed; {
		changed = false
		for _, ring := range rings {
			if len(ring) < 5 || len(ring) > 7 || m.isAromaticRing(ring) {
				continue
			}
			electrons, ok := m.piElectrons(ring)
			if !ok || electrons < 2 || (electrons-2)%4 != 0 {
				continue
			}
			for ii, atomIdx := range ring {
				m.Atoms[atomIdx].Aromatic = true
				bondIdx := m.BondBetween(atomIdx, ring[(ii+1)%len(ring)])
				m.Bonds[bondIdx].Order = BondAromatic
			}
			changed = true
		}
	}
}

// isAromaticRing returns whether all bonds of the ring are aromatic.
func (m *Molecule) isAromaticRing(ring []int) bool {
	for ii, atomIdx := range ring {
		bondIdx := m.BondBetween(atomIdx, ring[(ii+1)%len(ring)])
		if m.Bonds[bondIdx].Order != BondAromatic {
			return false
		}
	}
	return true
}

// piElectrons counts the electrons each ring atom contributes to the ring's pi system. It returns false if
// some atom can't be part of an aromatic ring (e.g. an sp3 carbon).
func (m *Molecule) piElectrons(ring []int) (int, bool) {
	inRing := make(map[int]bool, len(ring))
	for _, atomIdx := range ring {
		inRing[atomIdx] = true
	}
	total := 0
	for ii, atomIdx := range ring {
		atom := &m.Atoms[atomIdx]
		prev, next := ring[(ii+len(ring)-1)%len(ring)], ring[(ii+1)%len(ring)]
		var ringDouble, exoDouble bool
		for _, bondIdx := range m.atomBonds[atomIdx] {
			bond := &m.Bonds[bondIdx]
			other := bond.Other(atomIdx)
			isRingEdge := other == prev || other == next
			switch {
			case isRingEdge && (bond.Order == BondDouble || bond.Order == BondAromatic):
				ringDouble = true
			case !isRingEdge && bond.Order == BondDouble && !inRing[other]:
				exoDouble = true
			}
		}
		switch {
		case ringDouble:
			total++
		case exoDouble && (atom.AtomicNum == 6 || atom.AtomicNum == 16):
			// Carbonyl-like atom: contributes no electrons.
		case atom.AtomicNum == 7 || atom.AtomicNum == 15:
			if atom.Charge > 0 {
				return 0, false
			}
			total += 2
		case atom.AtomicNum == 8 || atom.AtomicNum == 16 || atom.AtomicNum == 34:
			if atom.Charge != 0 {
				return 0, false
			}
			total += 2
		case atom.AtomicNum == 6 && atom.Charge == -1:
			total += 2
		case (atom.AtomicNum == 6 && atom.Charge == 1) || atom.AtomicNum == 5:
			// Empty p orbital.
		default:
			return 0, false
		}
	}
	return total, true
}

// RemoveHydrogens returns a copy of the molecule with hydrogen atoms folded into the hydrogen count of
// their heavy neighbor. Hydrogens with isotopes, charges or not bonded to exactly one heavy atom are kept.
func (m *Molecule) RemoveHydrogens() *Molecule {
	keep := make([]bool, len(m.Atoms))
	hAdded := make([]int, len(m.Atoms))
	for ii := range m.Atoms {
		keep[ii] = true
		atom := &m.Atoms[ii]
		if atom.AtomicNum != 1 || atom.Isotope != 0 || atom.Charge != 0 || atom.HCount != 0 || m.Degree(ii) != 1 {
			continue
		}
		bond := &m.Bonds[m.atomBonds[ii][0]]
		other := bond.Other(ii)
		if m.Atoms[other].AtomicNum == 1 || bond.Order != BondSingle {
			continue
		}
		keep[ii] = false
		hAdded[other]++
	}
	result := NewMolecule()
	newIdx := make([]int, len(m.Atoms))
	for ii, atom := range m.Atoms {
		if !keep[ii] {
			newIdx[ii] = -1
			continue
		}
		atom.HCount += hAdded[ii]
		atom.hFinal = true
		newIdx[ii] = result.AddAtom(atom)
	}
	for _, bond := range m.Bonds {
		if newIdx[bond.From] < 0 || newIdx[bond.To] < 0 {
			continue
		}
		// Bonds are unique in m, so AddBond can't fail here.
		_ = result.AddBond(newIdx[bond.From], newIdx[bond.To], bond.Order)
	}
	if err := result.Perceive(); err != nil {
		// Removing terminal hydrogens doesn't change rings or aromaticity.
		panic(errors.WithMessagef(err, "RemoveHydrogens produced an invalid molecule"))
	}
	return result
}

// AddHydrogens returns a copy of the molecule where the hydrogen count of every atom is expanded into
// hydrogen atoms of the graph, appended after the original atoms.
func (m *Molecule) AddHydrogens() *Molecule {
	result := NewMolecule()
	for _, atom := range m.Atoms {
		atom.HCount = 0
		atom.hFinal = true
		result.AddAtom(atom)
	}
	for _, bond := range m.Bonds {
		_ = result.AddBond(bond.From, bond.To, bond.Order)
	}
	for ii, atom := range m.Atoms {
		for range atom.HCount {
			hIdx := result.AddAtom(Atom{AtomicNum: 1, Bracket: true, hFinal: true})
			_ = result.AddBond(ii, hIdx, BondSingle)
		}
	}
	if err := result.Perceive(); err != nil {
		panic(errors.WithMessagef(err, "AddHydrogens produced an invalid molecule"))
	}
	return result
}

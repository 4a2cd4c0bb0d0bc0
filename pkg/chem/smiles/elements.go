// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package smiles

// elementSymbols indexed by atomic number. Index 0 is the wildcard atom "*".
var elementSymbols = []string{
	"*",
	"H", "He",
	"Li", "Be", "B", "C", "N", "O", "F", "Ne",
	"Na", "Mg", "Al", "Si", "P", "S", "Cl", "Ar",
	"K", "Ca", "Sc", "Ti", "V", "Cr", "Mn", "Fe", "Co", "Ni", "Cu", "Zn", "Ga", "Ge", "As", "Se", "Br", "Kr",
	"Rb", "Sr", "Y", "Zr", "Nb", "Mo", "Tc", "Ru", "Rh", "Pd", "Ag", "Cd", "In", "Sn", "Sb", "Te", "I", "Xe",
	"Cs", "Ba", "La", "Ce", "Pr", "Nd", "Pm", "Sm", "Eu", "Gd", "Tb", "Dy", "Ho", "Er", "Tm", "Yb", "Lu",
	"Hf", "Ta", "W", "Re", "Os", "Ir", "Pt", "Au", "Hg", "Tl", "Pb", "Bi", "Po", "At", "Rn",
}

// atomicMasses (standard atomic weights, rounded) indexed by atomic number.
var atomicMasses = []float32{
	0,
	1.008, 4.003,
	6.94, 9.012, 10.81, 12.011, 14.007, 15.999, 18.998, 20.180,
	22.990, 24.305, 26.982, 28.085, 30.974, 32.06, 35.45, 39.948,
	39.098, 40.078, 44.956, 47.867, 50.942, 51.996, 54.938, 55.845, 58.933, 58.693, 63.546, 65.38, 69.723,
	72.630, 74.922, 78.971, 79.904, 83.798,
	85.468, 87.62, 88.906, 91.224, 92.906, 95.95, 98, 101.07, 102.91, 106.42, 107.87, 112.41, 114.82,
	118.71, 121.76, 127.60, 126.90, 131.29,
	132.91, 137.33, 138.91, 140.12, 140.91, 144.24, 145, 150.36, 151.96, 157.25, 158.93, 162.50, 164.93,
	167.26, 168.93, 173.05, 174.97,
	178.49, 180.95, 183.84, 186.21, 190.23, 192.22, 195.08, 196.97, 200.59, 204.38, 207.2, 208.98, 209, 210, 222,
}

// Pauling electronegativities of the common organic elements.
var electronegativities = map[int]float32{
	1: 2.20, 5: 2.04, 6: 2.55, 7: 3.04, 8: 3.44, 9: 3.98, 14: 1.90, 15: 2.19, 16: 2.58, 17: 3.16, 34: 2.55,
	35: 2.96, 53: 2.66,
}

var symbolToAtomicNumber = func() map[string]int {
	m := make(map[string]int, len(elementSymbols))
	for num, sym := range elementSymbols {
		m[sym] = num
	}
	return m
}()

// AtomicNumber returns the atomic number for the element symbol (capitalized, e.g. "Cl"), and whether it is known.
// The wildcard "*" has atomic number 0.
func AtomicNumber(symbol string) (int, bool) {
	n, ok := symbolToAtomicNumber[symbol]
	return n, ok
}

// Symbol returns the element symbol for the atomic number, or "*" if unknown.
func Symbol(atomicNum int) string {
	if atomicNum <= 0 || atomicNum >= len(elementSymbols) {
		return "*"
	}
	return elementSymbols[atomicNum]
}

// Mass returns the standard atomic weight of the element, or 0 if unknown.
func Mass(atomicNum int) float32 {
	if atomicNum <= 0 || atomicNum >= len(atomicMasses) {
		return 0
	}
	return atomicMasses[atomicNum]
}

// Electronegativity returns the Pauling electronegativity of common organic elements, or 0 if not tabulated.
func Electronegativity(atomicNum int) float32 {
	return electronegativities[atomicNum]
}

// defaultValences of the elements that can be written without brackets (the "organic subset").
var defaultValences = map[int][]int{
	5:  {3},
	6:  {4},
	7:  {3, 5},
	8:  {2},
	9:  {1},
	15: {3, 5},
	16: {2, 4, 6},
	17: {1},
	35: {1},
	53: {1},
}

// organicSubset are the elements that may be written without brackets.
var organicSubset = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true, "F": true, "Cl": true, "Br": true, "I": true,
	"*": true,
}

// aromaticCapable are the elements that may be written in lowercase (aromatic) form.
var aromaticCapable = map[string]bool{
	"B": true, "C": true, "N": true, "O": true, "P": true, "S": true, "Se": true, "As": true, "Te": true,
}

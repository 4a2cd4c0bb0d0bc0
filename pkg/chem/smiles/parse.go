// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package smiles

import (
	"slices"
	"strconv"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// ringOpening records an open ring-closure digit.
type ringOpening struct {
	atom  int
	order BondOrder // 0 if no bond symbol was given at the opening.
	pos   int
}

// parser holds the state of the SMILES parser.
type parser struct {
	input []rune
	pos   int
	mol   *Molecule

	prevAtom  int
	nextOrder BondOrder // 0 if no explicit bond symbol is pending.
	branches  []int
	rings     map[int]ringOpening
}

// Parse a SMILES string into a Molecule, with hydrogen counts, rings and aromaticity perceived.
func Parse(smiles string) (*Molecule, error) {
	smiles = strings.TrimSpace(smiles)
	if smiles == "" {
		return nil, errors.New("empty SMILES")
	}
	// Anything after the first whitespace is a name or a CXSMILES extension.
	if idx := strings.IndexFunc(smiles, unicode.IsSpace); idx >= 0 {
		smiles = smiles[:idx]
	}
	p := &parser{
		input:    []rune(smiles),
		mol:      NewMolecule(),
		prevAtom: -1,
		rings:    make(map[int]ringOpening),
	}
	if err := p.parse(); err != nil {
		return nil, errors.WithMessagef(err, "parsing SMILES %q", smiles)
	}
	if err := p.mol.Perceive(); err != nil {
		return nil, errors.WithMessagef(err, "parsing SMILES %q", smiles)
	}
	return p.mol, nil
}

// MustParse is like Parse, but panics on error. Useful for tests and constants.
func MustParse(smiles string) *Molecule {
	m, err := Parse(smiles)
	if err != nil {
		panic(err)
	}
	return m
}

func (p *parser) errorf(format string, args ...any) error {
	return errors.Errorf("position %d: "+format, append([]any{p.pos}, args...)...)
}

func (p *parser) parse() error {
	for p.pos < len(p.input) {
		ch := p.input[p.pos]
		switch {
		case ch == '(':
			if p.prevAtom < 0 {
				return p.errorf("branch opened before any atom")
			}
			p.branches = append(p.branches, p.prevAtom)
			p.pos++
		case ch == ')':
			if len(p.branches) == 0 {
				return p.errorf("unbalanced ')'")
			}
			if p.nextOrder != 0 {
				return p.errorf("bond symbol before ')'")
			}
			p.prevAtom = p.branches[len(p.branches)-1]
			p.branches = p.branches[:len(p.branches)-1]
			p.pos++
		case ch == '-' || ch == '=' || ch == '#' || ch == '$' || ch == ':' || ch == '/' || ch == '\\':
			if p.nextOrder != 0 {
				return p.errorf("two consecutive bond symbols")
			}
			p.nextOrder = bondSymbolOrder(ch)
			p.pos++
		case ch == '.':
			if p.nextOrder != 0 {
				return p.errorf("bond symbol before '.'")
			}
			p.prevAtom = -1
			p.pos++
		case ch == '%' || unicode.IsDigit(ch):
			if err := p.parseRingClosure(); err != nil {
				return err
			}
		case ch == '[':
			atom, err := p.parseBracketAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(atom); err != nil {
				return err
			}
		case ch == '*' || unicode.IsLetter(ch):
			atom, err := p.parseOrganicAtom()
			if err != nil {
				return err
			}
			if err := p.addAtom(atom); err != nil {
				return err
			}
		default:
			return p.errorf("unexpected character %q", ch)
		}
	}
	if len(p.branches) > 0 {
		return errors.New("unclosed branch '('")
	}
	if p.nextOrder != 0 {
		return errors.New("dangling bond symbol at the end")
	}
	if len(p.rings) > 0 {
		digits := make([]int, 0, len(p.rings))
		for digit := range p.rings {
			digits = append(digits, digit)
		}
		slices.Sort(digits)
		return errors.Errorf("ring closure %d opened at position %d was never closed", digits[0], p.rings[digits[0]].pos)
	}
	if len(p.mol.Atoms) == 0 {
		return errors.New("no atoms")
	}
	return nil
}

func bondSymbolOrder(ch rune) BondOrder {
	switch ch {
	case '=':
		return BondDouble
	case '#':
		return BondTriple
	case '$':
		return BondQuadruple
	case ':':
		return BondAromatic
	}
	// '-', '/' and '\'. Direction is stereo information, which is not represented.
	return BondSingle
}

// addAtom appends the atom and bonds it to the previous atom, if any.
func (p *parser) addAtom(atom Atom) error {
	idx := p.mol.AddAtom(atom)
	if p.prevAtom >= 0 {
		if err := p.bond(p.prevAtom, idx, p.nextOrder); err != nil {
			return p.errorf("%v", err)
		}
	} else if p.nextOrder != 0 {
		return p.errorf("bond symbol without a preceding atom")
	}
	p.nextOrder = 0
	p.prevAtom = idx
	return nil
}

// bond connects a and b. An order of 0 means no bond symbol was given: it is resolved later (single or
// aromatic) during perception.
func (p *parser) bond(a, b int, order BondOrder) error {
	explicit := order != 0
	if !explicit {
		order = BondSingle
	}
	if err := p.mol.AddBond(a, b, order); err != nil {
		return err
	}
	if !explicit && p.mol.Atoms[a].Aromatic && p.mol.Atoms[b].Aromatic {
		// Tentatively aromatic: demoted to single later if the bond is not in a ring.
		p.mol.Bonds[len(p.mol.Bonds)-1].Order = BondAromatic
	}
	return nil
}

func (p *parser) parseRingClosure() error {
	start := p.pos
	var digit int
	if p.input[p.pos] == '%' {
		if p.pos+2 >= len(p.input) || !unicode.IsDigit(p.input[p.pos+1]) || !unicode.IsDigit(p.input[p.pos+2]) {
			return p.errorf("'%%' must be followed by two digits")
		}
		digit = int(p.input[p.pos+1]-'0')*10 + int(p.input[p.pos+2]-'0')
		p.pos += 3
	} else {
		digit = int(p.input[p.pos] - '0')
		p.pos++
	}
	if p.prevAtom < 0 {
		return errors.Errorf("position %d: ring closure %d without a preceding atom", start, digit)
	}
	order := p.nextOrder
	p.nextOrder = 0
	opening, found := p.rings[digit]
	if !found {
		p.rings[digit] = ringOpening{atom: p.prevAtom, order: order, pos: start}
		return nil
	}
	delete(p.rings, digit)
	if opening.order != 0 && order != 0 && opening.order != order {
		return errors.Errorf("position %d: ring closure %d has conflicting bond orders", start, digit)
	}
	if order == 0 {
		order = opening.order
	}
	if err := p.bond(opening.atom, p.prevAtom, order); err != nil {
		return errors.Errorf("position %d: ring closure %d: %v", start, digit, err)
	}
	return nil
}

func (p *parser) parseOrganicAtom() (Atom, error) {
	ch := p.input[p.pos]
	if ch == '*' {
		p.pos++
		return Atom{AtomicNum: 0}, nil
	}
	// Two-letter organic elements: Cl and Br.
	if p.pos+1 < len(p.input) {
		two := string(p.input[p.pos : p.pos+2])
		if two == "Cl" || two == "Br" {
			p.pos += 2
			num, _ := AtomicNumber(two)
			return Atom{AtomicNum: num}, nil
		}
	}
	aromatic := unicode.IsLower(ch)
	symbol := string(unicode.ToUpper(ch))
	if !organicSubset[symbol] || (aromatic && !aromaticCapable[symbol]) {
		return Atom{}, p.errorf("%q is not an element of the organic subset, it must be written in brackets", ch)
	}
	p.pos++
	num, _ := AtomicNumber(symbol)
	return Atom{AtomicNum: num, Aromatic: aromatic}, nil
}

// parseBracketAtom parses "[" isotope? symbol chiral? hcount? charge? class? "]".
func (p *parser) parseBracketAtom() (Atom, error) {
	start := p.pos
	end := start + 1
	for end < len(p.input) && p.input[end] != ']' {
		if p.input[end] == '[' {
			return Atom{}, p.errorf("nested '['")
		}
		end++
	}
	if end >= len(p.input) {
		return Atom{}, p.errorf("unclosed bracket atom")
	}
	content := p.input[start+1 : end]
	p.pos = end + 1
	atom := Atom{Bracket: true}
	ii := 0

	// Isotope.
	for ii < len(content) && unicode.IsDigit(content[ii]) {
		atom.Isotope = atom.Isotope*10 + int(content[ii]-'0')
		ii++
	}

	// Element symbol.
	if ii >= len(content) {
		return Atom{}, errors.Errorf("position %d: missing element symbol in bracket atom", start)
	}
	switch {
	case content[ii] == '*':
		ii++
	case unicode.IsUpper(content[ii]):
		symbol := string(content[ii])
		if ii+1 < len(content) && unicode.IsLower(content[ii+1]) {
			if _, ok := AtomicNumber(symbol + string(content[ii+1])); ok {
				symbol += string(content[ii+1])
			}
		}
		num, ok := AtomicNumber(symbol)
		if !ok {
			return Atom{}, errors.Errorf("position %d: unknown element %q", start, symbol)
		}
		atom.AtomicNum = num
		ii += len(symbol)
	case unicode.IsLower(content[ii]):
		// Aromatic: "se", "as", "te" or a single letter.
		symbol := strings.ToUpper(string(content[ii]))
		if ii+1 < len(content) && unicode.IsLower(content[ii+1]) {
			two := symbol + string(content[ii+1])
			if aromaticCapable[two] {
				symbol = two
			}
		}
		if !aromaticCapable[symbol] {
			return Atom{}, errors.Errorf("position %d: element %q can't be aromatic", start, symbol)
		}
		atom.AtomicNum, _ = AtomicNumber(symbol)
		atom.Aromatic = true
		ii += len(symbol)
	default:
		return Atom{}, errors.Errorf("position %d: invalid element symbol in bracket atom", start)
	}

	// Chirality: "@", "@@", "@TH1", "@SP2", "@OH12"... it is skipped.
	if ii < len(content) && content[ii] == '@' {
		ii++
		if ii < len(content) && content[ii] == '@' {
			ii++
		} else {
			for ii < len(content) && unicode.IsUpper(content[ii]) && content[ii] != 'H' {
				ii++
			}
			for ii < len(content) && unicode.IsDigit(content[ii]) {
				ii++
			}
		}
	}

	// Hydrogen count.
	if ii < len(content) && content[ii] == 'H' {
		ii++
		atom.HCount = 1
		if ii < len(content) && unicode.IsDigit(content[ii]) {
			atom.HCount = int(content[ii] - '0')
			ii++
		}
	}

	// Charge: "+", "++", "+2", "-", "--", "-3".
	if ii < len(content) && (content[ii] == '+' || content[ii] == '-') {
		sign := 1
		if content[ii] == '-' {
			sign = -1
		}
		symbol := content[ii]
		ii++
		magnitude := 1
		if ii < len(content) && unicode.IsDigit(content[ii]) {
			digitsStart := ii
			for ii < len(content) && unicode.IsDigit(content[ii]) {
				ii++
			}
			magnitude, _ = strconv.Atoi(string(content[digitsStart:ii]))
		} else {
			for ii < len(content) && content[ii] == symbol {
				magnitude++
				ii++
			}
		}
		atom.Charge = sign * magnitude
	}

	// Atom class.
	if ii < len(content) && content[ii] == ':' {
		ii++
		classStart := ii
		for ii < len(content) && unicode.IsDigit(content[ii]) {
			ii++
		}
		if classStart == ii {
			return Atom{}, errors.Errorf("position %d: missing atom class after ':'", start)
		}
		atom.Class, _ = strconv.Atoi(string(content[classStart:ii]))
	}
	if ii != len(content) {
		return Atom{}, errors.Errorf("position %d: unexpected %q in bracket atom", start, string(content[ii:]))
	}
	return atom, nil
}

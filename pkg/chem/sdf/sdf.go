// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package sdf reads structure-data files (SDF): a sequence of V2000 MOL blocks, each followed by named
// data fields and terminated by "$$$$".
//
// Each record is converted to a smiles.Molecule, so it can be written as canonical SMILES and handled by
// the same pipeline as tables of SMILES strings.
package sdf

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/gomlx/molpipe/pkg/chem/smiles"
	"github.com/pkg/errors"
)

// RecordSeparator terminates each record of an SDF file.
const RecordSeparator = "$$$$"

// Record is one molecule of an SDF file with its data fields.
type Record struct {
	// Name is the first line of the MOL block header.
	Name string

	// Molecule is nil if the MOL block could not be parsed, in which case Err is set.
	Molecule *smiles.Molecule
	Err      error

	// Fields holds the data items ("> <name>" followed by value lines), and FieldNames their names in
	// file order.
	Fields     map[string]string
	FieldNames []string
}

// SMILES returns the canonical SMILES of the record's molecule, with explicit hydrogens folded.
func (r *Record) SMILES() (string, error) {
	if r.Molecule == nil {
		return "", r.Err
	}
	return r.Molecule.RemoveHydrogens().CanonicalSMILES(), nil
}

// Reader reads SDF records one at a time.
type Reader struct {
	scanner *bufio.Scanner
	lineNum int
	record  int
}

// NewReader returns a Reader of SDF records from r.
func NewReader(r io.Reader) *Reader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	return &Reader{scanner: scanner}
}

// ReadAll reads all records. Records whose MOL block is invalid are returned with Record.Err set; the
// error returned is only for I/O failures.
func ReadAll(r io.Reader) ([]*Record, error) {
	reader := NewReader(r)
	var records []*Record
	for {
		record, err := reader.Next()
		if err == io.EOF {
			return records, nil
		}
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
}

// Next returns the next record, or io.EOF when there are no more records.
//
// A record with an invalid MOL block is still returned (with Record.Err set and its data fields parsed),
// so callers can keep rows aligned with the file.
func (r *Reader) Next() (*Record, error) {
	lines, err := r.recordLines()
	if err != nil {
		return nil, err
	}
	r.record++
	record := &Record{Fields: make(map[string]string)}
	if len(lines) > 0 {
		record.Name = strings.TrimSpace(lines[0])
	}
	endIdx := len(lines)
	for ii, line := range lines {
		if strings.HasPrefix(line, "M  END") {
			endIdx = ii
			break
		}
	}
	record.Molecule, record.Err = parseMolBlock(lines[:endIdx])
	if record.Err != nil {
		record.Err = errors.WithMessagef(record.Err, "SDF record #%d (%q)", r.record, record.Name)
	}
	if endIdx < len(lines) {
		parseFields(lines[endIdx+1:], record)
	}
	return record, nil
}

// recordLines returns the lines up to the next record separator, or io.EOF if only blank lines are left.
func (r *Reader) recordLines() ([]string, error) {
	var lines []string
	for r.scanner.Scan() {
		r.lineNum++
		line := strings.TrimRight(r.scanner.Text(), "\r")
		if strings.TrimSpace(line) == RecordSeparator {
			return lines, nil
		}
		lines = append(lines, line)
	}
	if err := r.scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "reading SDF at line %d", r.lineNum)
	}
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			// Last record without a trailing separator.
			return lines, nil
		}
	}
	return nil, io.EOF
}

// field returns the trimmed fixed-width field line[from:to], clipped to the line length.
func field(line string, from, to int) string {
	if from >= len(line) {
		return ""
	}
	return strings.TrimSpace(line[from:min(to, len(line))])
}

func intField(line string, from, to int) (int, error) {
	s := field(line, from, to)
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, errors.Errorf("invalid integer %q in columns %d-%d", s, from+1, to)
	}
	return v, nil
}

// chargeCodes maps the V2000 atom block charge field to formal charges (4 is a doublet radical).
var chargeCodes = map[int]int{1: 3, 2: 2, 3: 1, 5: -1, 6: -2, 7: -3}

// parseMolBlock parses the header, counts line, atom and bond blocks, and the "M  CHG"/"M  ISO"
// properties of a V2000 MOL block.
//
// Hydrogen counts of heavy atoms are derived from default valences. Bond type 4 (aromatic) marks both
// atoms aromatic: aromatic nitrogens then carry no hydrogen, so pyrrole-like rings should be stored in
// Kekulé form.
func parseMolBlock(lines []string) (*smiles.Molecule, error) {
	if len(lines) < 4 {
		return nil, errors.New("MOL block too short: missing counts line")
	}
	counts := lines[3]
	if strings.Contains(counts, "V3000") {
		return nil, errors.New("V3000 MOL blocks are not supported")
	}
	numAtoms, err := intField(counts, 0, 3)
	if err != nil {
		return nil, errors.WithMessage(err, "counts line")
	}
	numBonds, err := intField(counts, 3, 6)
	if err != nil {
		return nil, errors.WithMessage(err, "counts line")
	}
	if numAtoms == 0 {
		return nil, errors.New("MOL block has no atoms")
	}
	if len(lines) < 4+numAtoms+numBonds {
		return nil, errors.Errorf("MOL block has %d lines, but %d atoms and %d bonds were declared",
			len(lines), numAtoms, numBonds)
	}

	mol := smiles.NewMolecule()
	for ii := range numAtoms {
		line := lines[4+ii]
		symbol := field(line, 31, 34)
		atomicNum, found := smiles.AtomicNumber(symbol)
		if !found {
			if symbol != "A" && symbol != "Q" && symbol != "*" && symbol != "R#" {
				return nil, errors.Errorf("atom %d: unknown element %q", ii+1, symbol)
			}
			atomicNum = 0
		}
		atom := smiles.Atom{AtomicNum: atomicNum}
		code, err := intField(line, 36, 39)
		if err != nil {
			return nil, errors.WithMessagef(err, "atom %d", ii+1)
		}
		atom.Charge = chargeCodes[code]
		mol.AddAtom(atom)
	}

	for ii := range numBonds {
		line := lines[4+numAtoms+ii]
		var fields [3]int
		for jj := range fields {
			fields[jj], err = intField(line, 3*jj, 3*jj+3)
			if err != nil {
				return nil, errors.WithMessagef(err, "bond %d", ii+1)
			}
		}
		from, to, bondType := fields[0], fields[1], fields[2]
		var order smiles.BondOrder
		switch bondType {
		case 1:
			order = smiles.BondSingle
		case 2:
			order = smiles.BondDouble
		case 3:
			order = smiles.BondTriple
		case 4:
			order = smiles.BondAromatic
		default:
			return nil, errors.Errorf("bond %d: unsupported bond type %d", ii+1, bondType)
		}
		if err := mol.AddBond(from-1, to-1, order); err != nil {
			return nil, errors.WithMessagef(err, "bond %d", ii+1)
		}
		if order == smiles.BondAromatic {
			mol.Atoms[from-1].Aromatic = true
			mol.Atoms[to-1].Aromatic = true
		}
	}

	// Properties block: "M  CHG" and "M  ISO" supersede the atom block values.
	resetCharges := false
	for _, line := range lines[4+numAtoms+numBonds:] {
		if !strings.HasPrefix(line, "M  CHG") && !strings.HasPrefix(line, "M  ISO") {
			continue
		}
		values := strings.Fields(line[6:])
		if len(values) == 0 {
			continue
		}
		n, err := strconv.Atoi(values[0])
		if err != nil || len(values) < 1+2*n {
			return nil, errors.Errorf("malformed property line %q", line)
		}
		isCharge := strings.HasPrefix(line, "M  CHG")
		if isCharge && !resetCharges {
			for ii := range mol.Atoms {
				mol.Atoms[ii].Charge = 0
			}
			resetCharges = true
		}
		for jj := range n {
			atomNum, err1 := strconv.Atoi(values[1+2*jj])
			value, err2 := strconv.Atoi(values[2+2*jj])
			if err1 != nil || err2 != nil || atomNum < 1 || atomNum > numAtoms {
				return nil, errors.Errorf("malformed property line %q", line)
			}
			if isCharge {
				mol.Atoms[atomNum-1].Charge = value
			} else {
				mol.Atoms[atomNum-1].Isotope = value
			}
		}
	}
	if err := mol.Perceive(); err != nil {
		return nil, err
	}
	return mol, nil
}

// parseFields parses the data items following "M  END".
func parseFields(lines []string, record *Record) {
	var name string
	var values []string
	inField := false
	flush := func() {
		if !inField {
			return
		}
		if _, found := record.Fields[name]; !found {
			record.FieldNames = append(record.FieldNames, name)
		}
		record.Fields[name] = strings.Join(values, "\n")
		inField = false
		values = nil
	}
	for _, line := range lines {
		if strings.HasPrefix(line, ">") {
			flush()
			start := strings.Index(line, "<")
			end := strings.LastIndex(line, ">")
			if start < 0 || end <= start {
				continue
			}
			name = line[start+1 : end]
			inField = true
			continue
		}
		if !inField {
			continue
		}
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		values = append(values, line)
	}
	flush()
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package sdf

import (
	"fmt"
	"strings"
	"testing"

	"github.com/gomlx/molpipe/pkg/chem/smiles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Ethanol, acetate (charge from "M  CHG") and a broken record.
const testSDF = `ethanol
  molpipe

  3  2  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.0000    1.2000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  1  0
M  END
> <solubility>
-0.77

> <name>
ethyl alcohol

$$$$
acetate
  molpipe

  4  3  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
    2.0000    1.2000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
    2.0000   -1.2000    0.0000 O   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
  2  3  2  0
  2  4  1  0
M  CHG  1   4  -1
M  END
> <solubility>
1.2

$$$$
broken
  molpipe

  2  1  0  0  0  0  0  0  0  0999 V2000
    0.0000    0.0000    0.0000 Xx  0  0  0  0  0  0  0  0  0  0  0  0
    1.5000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0
  1  2  1  0
M  END
> <solubility>
3.5

$$$$
`

func TestReadAll(t *testing.T) {
	records, err := ReadAll(strings.NewReader(testSDF))
	require.NoError(t, err)
	require.Len(t, records, 3)

	ethanol := records[0]
	assert.Equal(t, "ethanol", ethanol.Name)
	require.NoError(t, ethanol.Err)
	assert.Equal(t, []string{"solubility", "name"}, ethanol.FieldNames)
	assert.Equal(t, "-0.77", ethanol.Fields["solubility"])
	assert.Equal(t, "ethyl alcohol", ethanol.Fields["name"])
	got, err := ethanol.SMILES()
	require.NoError(t, err)
	want, err := smiles.Canonical("CCO")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	acetate := records[1]
	require.NoError(t, acetate.Err)
	assert.Equal(t, -1, acetate.Molecule.Atoms[3].Charge)
	got, err = acetate.SMILES()
	require.NoError(t, err)
	want, err = smiles.Canonical("CC(=O)[O-]")
	require.NoError(t, err)
	assert.Equal(t, want, got)

	broken := records[2]
	assert.Error(t, broken.Err)
	assert.Nil(t, broken.Molecule)
	assert.Equal(t, "3.5", broken.Fields["solubility"])
	_, err = broken.SMILES()
	assert.Error(t, err)
}

func TestAromaticBonds(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("benzene\n\n\n  6  6  0  0  0  0  0  0  0  0999 V2000\n")
	for range 6 {
		sb.WriteString("    0.0000    0.0000    0.0000 C   0  0  0  0  0  0  0  0  0  0  0  0\n")
	}
	for ii := 1; ii <= 6; ii++ {
		next := ii%6 + 1
		sb.WriteString(formatBond(ii, next, 4))
	}
	sb.WriteString("M  END\n$$$$\n")
	records, err := ReadAll(strings.NewReader(sb.String()))
	require.NoError(t, err)
	require.Len(t, records, 1)
	got, err := records[0].SMILES()
	require.NoError(t, err)
	want, err := smiles.Canonical("C1=CC=CC=C1")
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func formatBond(from, to, order int) string {
	return fmt.Sprintf("%3d%3d%3d  0\n", from, to, order)
}

func TestInvalidBlocks(t *testing.T) {
	records, err := ReadAll(strings.NewReader("v3000\n\n\n  0  0  0     0  0            999 V3000\nM  END\n$$$$\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.ErrorContains(t, records[0].Err, "V3000")

	records, err = ReadAll(strings.NewReader("short\n\n\n  5  4  0  0\nM  END\n$$$$\n"))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Error(t, records[0].Err)

	records, err = ReadAll(strings.NewReader("\n\n"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUniqueIDs(t *testing.T) {
	molecules := []string{"CCO", "OCC", "c1ccccc1", "C1=CC=CC=C1", "not a smiles(", "CCO"}
	for _, parallelism := range []int{0, 1, 3, -1} {
		t.Run(fmt.Sprintf("parallelism=%d", parallelism), func(t *testing.T) {
			ids := UniqueIDs(molecules, parallelism, 2)
			require.Len(t, ids, len(molecules))
			assert.Equal(t, ids[0], ids[1])
			assert.Equal(t, ids[0], ids[5])
			assert.Equal(t, ids[2], ids[3])
			assert.NotEqual(t, ids[0], ids[2])
			assert.Equal(t, InvalidPrefix+"not a smiles(", ids[4])
		})
	}
	ids := UniqueIDs(molecules, 2, 0)
	assert.Equal(t, UniqueIDs(molecules, 0, 0), ids)
}

func TestCanonicalIDInvalid(t *testing.T) {
	assert.Equal(t, InvalidPrefix+"C1CC", CanonicalID("C1CC"))
	assert.Equal(t, InvalidPrefix, CanonicalID(""))
}

func TestUnique(t *testing.T) {
	ids := []string{"b", "a", "c", "a", "b", "b"}
	unique, firstIndex, inverse := Unique(ids)
	assert.Equal(t, []string{"a", "b", "c"}, unique)
	assert.Equal(t, []int{1, 0, 2}, firstIndex)
	assert.Equal(t, []int{1, 0, 2, 0, 1, 1}, inverse)
	for ii, id := range ids {
		assert.Equal(t, id, unique[inverse[ii]])
	}

	unique, firstIndex, inverse = Unique(nil)
	assert.Empty(t, unique)
	assert.Empty(t, firstIndex)
	assert.Empty(t, inverse)
}

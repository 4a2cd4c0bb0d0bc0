// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package data

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStage(t *testing.T) {
	for _, s := range []Stage{StageTrain, StageVal, StageTest, StagePredict} {
		got, err := ParseStage(s.String())
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	got, err := ParseStage(" Valid ")
	require.NoError(t, err)
	assert.Equal(t, StageVal, got)

	_, err = ParseStage("training")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfiguration))

	var s Stage
	require.NoError(t, s.UnmarshalText([]byte("test")))
	assert.Equal(t, StageTest, s)
	assert.Equal(t, "Stage(7)", Stage(7).String())
	require.Error(t, s.UnmarshalText([]byte("fit")))
	assert.Equal(t, []string{"train", "val", "test", "predict"}, StageStrings())
}

// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package fsutil

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirSizeAndAtomicWrite(t *testing.T) {
	dir := t.TempDir()
	size, err := DirSize(filepath.Join(dir, "missing"))
	require.NoError(t, err)
	assert.Zero(t, size)

	target := filepath.Join(dir, "0000", "0000001.gob")
	require.NoError(t, WriteFileAtomically(target, func(w io.Writer) error {
		_, err := w.Write([]byte("hello"))
		return err
	}))
	exists, err := FileExists(target)
	require.NoError(t, err)
	assert.True(t, exists)
	size, err = DirSize(dir)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)

	// A failed write leaves nothing behind.
	failed := filepath.Join(dir, "failed.gob")
	err = WriteFileAtomically(failed, func(w io.Writer) error { return errors.New("boom") })
	require.Error(t, err)
	exists, err = FileExists(failed)
	require.NoError(t, err)
	assert.False(t, exists)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestReplaceTildeInDir(t *testing.T) {
	dir, err := ReplaceTildeInDir("/tmp/cache")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/cache", dir)
	home, err := ReplaceTildeInDir("~/cache")
	require.NoError(t, err)
	assert.NotContains(t, home, "~")
}

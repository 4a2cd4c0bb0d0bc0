// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package report

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestTable(t *testing.T) {
	table := NewTable([]string{"Task", "Rows"}, lipgloss.Left, lipgloss.Right)
	table.Row("homo_lumo", "1,024")
	table.WarnRow("toxcast", "0")
	assert.Equal(t, 2, table.Len())
	rendered := table.Render()
	for _, want := range []string{"Task", "Rows", "homo_lumo", "1,024", "toxcast"} {
		assert.Contains(t, rendered, want)
	}
}

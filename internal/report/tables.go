// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package report renders the terminal tables used by the summaries and the benchmark tool.
package report

import (
	"github.com/charmbracelet/lipgloss"
	lgtable "github.com/charmbracelet/lipgloss/table"
)

var (
	headerRowStyle = lipgloss.NewStyle().Reverse(true).
			Padding(0, 2, 0, 2).Align(lipgloss.Center)
	oddRowStyle = lipgloss.NewStyle().Faint(false).
			PaddingLeft(1).PaddingRight(1)
	evenRowStyle = lipgloss.NewStyle().Faint(true).
			PaddingLeft(1).PaddingRight(1)
	warnRowStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "9", Dark: "9"}).
			Bold(true).
			PaddingLeft(1).PaddingRight(1)
)

// Table accumulates rows, some of them highlighted as warnings.
type Table struct {
	table *lgtable.Table
	count int
	warns map[int]bool
}

// NewTable creates a table with the given headers. Columns are aligned with alignments, the last one
// repeated for the remaining columns. Without alignments, columns are left aligned.
func NewTable(headers []string, alignments ...lipgloss.Position) *Table {
	t := &Table{warns: make(map[int]bool)}
	t.table = lgtable.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
		StyleFunc(func(row, col int) (s lipgloss.Style) {
			switch {
			case row < 0:
				return headerRowStyle
			case t.warns[row]:
				s = warnRowStyle
			case row%2 == 0:
				s = oddRowStyle
			default:
				s = evenRowStyle
			}
			alignment := lipgloss.Left
			if col < len(alignments) {
				alignment = alignments[col]
			} else if len(alignments) > 0 {
				alignment = alignments[len(alignments)-1]
			}
			return s.Align(alignment)
		})
	if len(headers) > 0 {
		t.table.Headers(headers...)
	}
	return t
}

// Row appends a row.
func (t *Table) Row(cells ...string) {
	t.table.Row(cells...)
	t.count++
}

// WarnRow appends a highlighted row.
func (t *Table) WarnRow(cells ...string) {
	t.warns[t.count] = true
	t.Row(cells...)
}

// Len returns the number of rows added.
func (t *Table) Len() int { return t.count }

// Render returns the table as a string.
func (t *Table) Render() string {
	return t.table.Render()
}

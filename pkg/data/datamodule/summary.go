// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

package datamodule

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/molpipe/internal/report"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/support/xslices"
)

// String implements fmt.Stringer.
func (dm *DataModule) String() string {
	return fmt.Sprintf("DataModule(hash=%s, state=%s, tasks=%q)", dm.hash, dm.state, dm.taskNames())
}

func (dm *DataModule) taskNames() []string {
	return xslices.Map(dm.config.Tasks, func(task TaskConfig) string { return task.Name })
}

// Summary renders a table with the number of rows of each task per stage. Tasks without training rows are
// highlighted.
func (dm *DataModule) Summary() string {
	var parts strings.Builder
	fmt.Fprintf(&parts, "%s\n", dm)
	if dm.state == StateUnprepared {
		return parts.String()
	}

	headers := []string{"Task", "Rows", "Label width"}
	for _, stage := range data.Stages {
		headers = append(headers, stage.String())
	}
	table := report.NewTable(headers, lipgloss.Left, lipgloss.Right)
	for _, name := range dm.taskNames() {
		task := dm.tasks[name]
		split := dm.splits[name]
		row := []string{
			name,
			humanize.Comma(int64(task.Len())),
			humanize.Comma(int64(task.LabelWidth())),
			humanize.Comma(int64(len(split.Train))),
			humanize.Comma(int64(len(split.Val))),
			humanize.Comma(int64(len(split.Test))),
		}
		if len(split.Train) == 0 {
			table.WarnRow(row...)
		} else {
			table.Row(row...)
		}
	}
	fmt.Fprintf(&parts, "%s molecules featurized, %s rows\n",
		humanize.Comma(int64(len(dm.features))), humanize.Comma(int64(dm.Len())))
	parts.WriteString(table.Render())

	for _, stage := range xslices.SortedKeys(dm.stageDatasets) {
		mt := dm.stageDatasets[stage]
		fmt.Fprintf(&parts, "\n%s: %s items, max %s nodes and %s edges per graph",
			stage, humanize.Comma(int64(mt.Len())),
			humanize.Comma(int64(mt.MaxNumNodes())), humanize.Comma(int64(mt.MaxNumEdges())))
	}
	return parts.String()
}

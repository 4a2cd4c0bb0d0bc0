// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// molpipe_benchmark prepares the data of a DataModule and measures how fast its loaders yield batches.
//
// Usage:
//
//	molpipe_benchmark -config=config.yaml -stages=train,val -epochs=3
//	molpipe_benchmark -config=config.yaml -fake=100000
//	molpipe_benchmark -config=config.yaml -ogb=ogbg-molhiv
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/gomlx/molpipe/internal/report"
	"github.com/gomlx/molpipe/pkg/data"
	"github.com/gomlx/molpipe/pkg/data/collate"
	"github.com/gomlx/molpipe/pkg/data/datamodule"
	"github.com/gomlx/molpipe/pkg/data/loaders"
	"github.com/gomlx/molpipe/pkg/data/ogb"
	"github.com/gomlx/molpipe/pkg/support/xslices"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"
)

var (
	flagConfig = flag.String("config", "", "YAML configuration of the DataModule.")
	flagStages = xslices.Flag("stages", []data.Stage{data.StageTrain},
		"Comma-separated stages to benchmark: train, val and/or test.", data.ParseStage)
	flagEpochs   = flag.Int("epochs", 1, "Number of epochs to loop over each loader.")
	flagFake     = flag.Int("fake", 0, "If > 0, benchmark a fake DataModule with this many molecules per task.")
	flagOGB      = flag.String("ogb", "", "Name of an OGB dataset (e.g. ogbg-molhiv) added as a task.")
	flagOGBDir   = flag.String("ogb_dir", ogb.DefaultCacheDir, "Directory where OGB datasets are downloaded.")
	flagMaxProcs = flag.Int("max_procs", 0, "If > 0, limits the number of OS threads running Go code.")
)

func main() {
	klog.InitFlags(nil)
	flag.Parse()
	if err := run(); err != nil {
		klog.Errorf("molpipe_benchmark failed: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	datamodule.InitProcess(*flagMaxProcs)
	config, err := loadConfig()
	if err != nil {
		return err
	}

	var dm *datamodule.DataModule
	if *flagFake > 0 {
		dm, err = datamodule.NewFake(config, *flagFake)
	} else {
		dm, err = datamodule.New(config)
	}
	if err != nil {
		return err
	}

	start := time.Now()
	if err := dm.Prepare(); err != nil {
		return err
	}
	klog.Infof("prepared in %s", time.Since(start).Round(time.Millisecond))
	start = time.Now()
	if err := dm.Setup(datamodule.StageAll); err != nil {
		return err
	}
	klog.Infof("setup in %s", time.Since(start).Round(time.Millisecond))
	fmt.Println(dm.Summary())

	table := report.NewTable([]string{"Stage", "Epoch", "Batches", "Samples", "Graphs", "Nodes", "Edges", "Time", "Samples/s"},
		lipgloss.Left, lipgloss.Right)
	for _, stage := range *flagStages {
		if err := benchmark(dm, stage, table); err != nil {
			return errors.WithMessagef(err, "benchmarking %s loader", stage)
		}
	}
	fmt.Println(table.Render())
	return nil
}

func loadConfig() (datamodule.Config, error) {
	config := datamodule.DefaultConfig()
	if *flagConfig != "" {
		var err error
		config, err = datamodule.LoadConfig(*flagConfig)
		// Tasks may come only from -ogb or -fake.
		tasksFromFlags := *flagOGB != "" || *flagFake > 0
		if err != nil && !(tasksFromFlags && len(config.Tasks) == 0 && errors.Is(err, data.ErrConfiguration)) {
			return config, err
		}
	}
	if *flagOGB != "" {
		task, err := ogb.TaskFor(*flagOGBDir, *flagOGB, *flagOGB)
		if err != nil {
			return config, err
		}
		config.Tasks = append(config.Tasks, task)
	}
	if *flagFake > 0 && len(config.Tasks) == 0 {
		config.Tasks = []datamodule.TaskConfig{{Name: "fake"}}
	}
	return config, nil
}

// epochCounts of one benchmarked epoch.
type epochCounts struct {
	batches, samples, graphs, nodes, edges int
	elapsed                                time.Duration
}

func benchmark(dm *datamodule.DataModule, stage data.Stage, table *report.Table) error {
	loader, err := dm.Loader(stage)
	if err != nil {
		return err
	}
	defer loader.Done()
	for epoch := range *flagEpochs {
		if epoch > 0 {
			loader.Reset()
		}
		counts, err := runEpoch(loader)
		if err != nil {
			return err
		}
		row := []string{
			stage.String(),
			humanize.Comma(int64(epoch)),
			humanize.Comma(int64(counts.batches)),
			humanize.Comma(int64(counts.samples)),
			humanize.Comma(int64(counts.graphs)),
			humanize.Comma(int64(counts.nodes)),
			humanize.Comma(int64(counts.edges)),
			counts.elapsed.Round(time.Millisecond).String(),
			humanize.CommafWithDigits(float64(counts.samples)/max(counts.elapsed.Seconds(), 1e-9), 1),
		}
		if counts.batches == 0 {
			table.WarnRow(row...)
		} else {
			table.Row(row...)
		}
	}
	return nil
}

func runEpoch(loader loaders.BatchLoader) (counts epochCounts, err error) {
	start := time.Now()
	for {
		spec, _, _, err := loader.Yield()
		if err == io.EOF {
			break
		}
		if err != nil {
			return counts, err
		}
		batch := spec.(*collate.Batch)
		counts.batches++
		counts.samples += batch.Size
		if batch.Graph != nil {
			counts.graphs += batch.Graph.NumGraphs
			counts.nodes += batch.Graph.NumNodes
			counts.edges += batch.Graph.NumEdges
			continue
		}
		counts.graphs += batch.Size
		for _, pack := range batch.Packs {
			counts.nodes += countTrue(pack.NodeMask)
			counts.edges += countTrue(pack.EdgeMask)
		}
	}
	counts.elapsed = time.Since(start)
	return counts, nil
}

func countTrue(mask []bool) (n int) {
	for _, v := range mask {
		if v {
			n++
		}
	}
	return
}

// Package slowdown is a subcommand of the root command. It compares every
// application of a workload with its individual run and reports progress,
// slowdown and the workload's STP, ANTT and unfairness per policy.
package slowdown

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"perfagg/internal/app"
	"perfagg/internal/common"
	"perfagg/internal/metric"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
	"perfagg/internal/table"
	"perfagg/internal/workflow"
	"perfagg/internal/workload"
)

const cmdName = "slowdown"

var examples = []string{
	fmt.Sprintf("  Slowdown tables of all policies: $ %s %s -w workloads.yaml -i ./results -o ./tables", app.Name, cmdName),
	fmt.Sprintf("  Total data collection only:      $ %s %s -w workloads.yaml -p np,hg -d Total", app.Name, cmdName),
	fmt.Sprintf("  Individual runs from elsewhere:  $ %s %s -w workloads.yaml --indivdir indiv/outputFilesMean", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Generate per-application slowdown and per-workload STP, ANTT and unfairness tables",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	tableFlags   common.TableFlags
	flagIndivDir string
)

// Columns of the per-workload table.
const (
	colSTP        = "STP"
	colANTT       = "ANTT"
	colUnfairness = "Unfairness"
)

func init() {
	common.AddTableFlags(Cmd, &tableFlags, common.WithPolicies|common.WithDataCollection)
	Cmd.Flags().StringVar(&flagIndivDir, app.FlagIndivDirName, "", "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	flags := []app.Flag{
		{
			Name: app.FlagIndivDirName,
			Help: "directory of the individual-run tables, relative to the input (default: npIndiv<dc>/" + common.MeanDir + ")",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
		common.GetTableFlagGroup(common.WithPolicies | common.WithDataCollection),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := tableFlags.Validate(cmd); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	return nil
}

// individualDir is where the individual runs of a data collection mode are.
func individualDir(dc string) string {
	if flagIndivDir != "" {
		return flagIndivDir
	}
	return sample.Join("npIndiv"+dc, common.MeanDir)
}

func runCmd(cmd *cobra.Command, args []string) error {
	c, err := workflow.NewCommand(cmd)
	if err != nil {
		return common.FlagValidationError(cmd, err)
	}
	ds, err := c.Derivations(metric.IPC, metric.Hits, metric.Progress, metric.Slowdown)
	if err != nil {
		return c.Fail(err)
	}
	ctx, stop := workflow.SignalContext(context.Background())
	defer stop()
	workloads, src, err := tableFlags.Open(ctx, c)
	if err != nil {
		return c.Fail(err)
	}
	defer src.Close()
	individuals := make(map[string]*workflow.Individuals)
	for _, dc := range tableFlags.DataCollection {
		individuals[dc] = c.Individuals(src, individualDir(dc))
	}
	configs := tableFlags.Configurations()
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		var outcome workflow.Outcome
		for _, cfg := range configs {
			o, err := slowdownTable(ctx, c, src, individuals[cfg.DataCollection], wl, cfg, ds)
			if err != nil {
				if ctx.Err() != nil {
					return outcome, err
				}
				outcome.Skipped = append(outcome.Skipped, workflow.Skipped{Workload: wl.Name(), Item: cfg.String(), Reason: err.Error()})
				continue
			}
			outcome.Files = append(outcome.Files, o.Files...)
			outcome.Rows = append(outcome.Rows, o.Rows...)
			outcome.Skipped = append(outcome.Skipped, o.Skipped...)
		}
		if len(outcome.Rows) == 0 {
			return workflow.Outcome{}, fmt.Errorf("no configuration could be processed")
		}
		return outcome, nil
	})
	rows := summary.Rows()
	labels, groups := stats.GroupComposites(rows)
	layout := table.CompositeLayout{
		WorkloadColumn: "workload",
		Columns:        []string{ds[0].Name(), ds[1].Name(), colSTP, colANTT, colUnfairness},
	}
	for _, label := range labels {
		files, err := c.WriteTable(tableFlags.OutputDir, table.FromComposites("slowdownTable-"+label+"-fin", groups[label], layout))
		if err != nil {
			return c.Fail(err)
		}
		summary.Files = append(summary.Files, files...)
	}
	return c.Finish(ctx, summary, rows)
}

// slowdownTable writes the per-application table of one workload under one
// configuration and returns the workload's composite row.
func slowdownTable(ctx context.Context, c *workflow.Command, src sample.Source, ind *workflow.Individuals, wl workload.Workload, cfg common.Configuration, ds []stats.Derivation) (workflow.Outcome, error) {
	var outcome workflow.Outcome
	t, err := c.ReadAggregated(ctx, src, wl.Name(), cfg.String(), cfg.MeanTable(wl.Name(), sample.KindFinal))
	if err != nil {
		return outcome, err
	}
	merged, skipped := ind.Merge(ctx, wl.Name(), t)
	outcome.Skipped = append(outcome.Skipped, skipped...)
	derived, skipped := c.Derive(wl.Name(), merged, ds)
	outcome.Skipped = append(outcome.Skipped, skipped...)
	if len(derived.Complete()) == 0 {
		return outcome, fmt.Errorf("no application with complete metrics")
	}
	outcome.Skipped = append(outcome.Skipped, c.Extend(wl.Name(), merged, derived)...)
	conf := c.Confidence()
	files, err := c.WriteTable(filepath.Join(tableFlags.OutputDir, cfg.String()), table.FromDerived("slowdown-table-"+wl.Name()+"-fin", derived, conf))
	if err != nil {
		return outcome, err
	}
	outcome.Files = append(outcome.Files, files...)

	ipc, hits, progress, slowdown := ds[0].Name(), ds[1].Name(), ds[2].Name(), ds[3].Name()
	row := stats.NewCompositeRow(wl.Name(), cfg.String())
	row.Set(ipc, stats.Reduce(stats.ReduceSum, derived.Intervals(conf, ipc)))
	row.Set(hits, stats.Reduce(stats.ReduceSum, derived.Intervals(conf, hits)))
	row.Set(colSTP, stats.Reduce(stats.ReduceSum, derived.Intervals(conf, progress)))
	row.Set(colANTT, stats.Reduce(stats.ReduceMean, derived.Intervals(conf, slowdown)))
	row.Set(colUnfairness, stats.Reduce(stats.ReduceCoV, derived.Intervals(conf, slowdown)))
	outcome.Rows = append(outcome.Rows, row)
	return outcome, nil
}

// Package totals is a subcommand of the root command. It sums the IPC and
// L3 hits of all applications of each workload per policy.
package totals

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
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

const cmdName = "totals"

var examples = []string{
	fmt.Sprintf("  Totals of all policies: $ %s %s -w workloads.yaml -i ./results -o ./tables", app.Name, cmdName),
	fmt.Sprintf("  One policy:             $ %s %s -w workloads.yaml -p np -d Total", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Generate per-workload IPC and L3 hit totals",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var tableFlags common.TableFlags

func init() {
	common.AddTableFlags(Cmd, &tableFlags, common.WithPolicies|common.WithDataCollection)
	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	return []app.FlagGroup{common.GetTableFlagGroup(common.WithPolicies | common.WithDataCollection)}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := tableFlags.Validate(cmd); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	c, err := workflow.NewCommand(cmd)
	if err != nil {
		return common.FlagValidationError(cmd, err)
	}
	ds, err := c.Derivations(metric.IPC, metric.Hits)
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
	configs := tableFlags.Configurations()
	conf := c.Confidence()
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		var outcome workflow.Outcome
		for _, cfg := range configs {
			t, err := c.ReadAggregated(ctx, src, wl.Name(), cfg.String(), cfg.MeanTable(wl.Name(), sample.KindFinal))
			if err != nil {
				if ctx.Err() != nil {
					return outcome, err
				}
				outcome.Skipped = append(outcome.Skipped, workflow.SkippedFromError(wl.Name(), err))
				continue
			}
			derived, skipped := c.Derive(wl.Name(), t, ds)
			outcome.Skipped = append(outcome.Skipped, skipped...)
			row := stats.NewCompositeRow(wl.Name(), cfg.String())
			for _, d := range ds {
				row.Set(d.Name(), stats.Reduce(stats.ReduceSum, derived.Intervals(conf, d.Name())))
			}
			outcome.Rows = append(outcome.Rows, row)
		}
		if len(outcome.Rows) == 0 {
			return workflow.Outcome{}, fmt.Errorf("no configuration could be processed")
		}
		return outcome, nil
	})
	labels, groups := stats.GroupComposites(summary.Rows())
	layout := table.CompositeLayout{WorkloadColumn: "workload", Columns: []string{ds[0].Name(), ds[1].Name()}}
	for _, label := range labels {
		files, err := c.WriteTable(tableFlags.OutputDir, table.FromComposites("totalTable-"+label+"-fin", groups[label], layout))
		if err != nil {
			return c.Fail(err)
		}
		summary.Files = append(summary.Files, files...)
	}
	return c.Finish(ctx, summary, nil)
}

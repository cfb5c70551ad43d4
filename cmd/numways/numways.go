// Package numways is a subcommand of the root command. It tabulates how the
// IPC and the L3 hits per stored kilobyte of an application executed alone
// change with the number of cache ways it is given.
package numways

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
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

const cmdName = "numways"

var examples = []string{
	fmt.Sprintf("  Ways 1 to 20:  $ %s %s -w single-apps.yaml -i ./results -o ./tables", app.Name, cmdName),
	fmt.Sprintf("  Ways 1 to 11:  $ %s %s -w single-apps.yaml --maxways 11", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Generate IPC and hits per storage tables by number of cache ways",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	tableFlags  common.TableFlags
	flagMaxWays int
)

const flagMaxWaysName = "maxways"

const colNumWays = "num-ways"

func init() {
	common.AddTableFlags(Cmd, &tableFlags, 0)
	Cmd.Flags().IntVar(&flagMaxWays, flagMaxWaysName, 20, "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	flags := []app.Flag{
		{
			Name: flagMaxWaysName,
			Help: "largest number of ways, the input has one <n>ways directory per number from 1",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
		common.GetTableFlagGroup(0),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagMaxWays < 1 {
		return common.FlagValidationError(cmd, &app.ConfigurationError{Flag: flagMaxWaysName, Value: strconv.Itoa(flagMaxWays), Reason: "must be at least 1"})
	}
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
	ds, err := c.Derivations(metric.IPC, metric.HitsPerStorage, metric.OccupancyMB)
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
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		return waysTable(ctx, c, src, wl, ds)
	})
	return c.Finish(ctx, summary, nil)
}

// waysDir is the input directory of the runs with n ways.
func waysDir(n int) string {
	return fmt.Sprintf("%dways", n)
}

// waysTable writes one interval table per number of ways and the table of
// interval means by number of ways.
func waysTable(ctx context.Context, c *workflow.Command, src sample.Source, wl workload.Workload, ds []stats.Derivation) (workflow.Outcome, error) {
	var outcome workflow.Outcome
	if !wl.Single() {
		return outcome, fmt.Errorf("workload has %d applications, expected one", len(wl.Apps))
	}
	name := wl.Name()
	conf := c.Confidence()
	ipc, hitsPerStorage := ds[0].Name(), ds[1].Name()
	var rows []stats.CompositeRow
	for n := 1; n <= flagMaxWays; n++ {
		item := waysDir(n)
		t, err := c.ReadAggregated(ctx, src, name, item, sample.Join(item, common.MeanDir, sample.KindInterval.AggregatedName(name)))
		if err != nil {
			if ctx.Err() != nil {
				return outcome, err
			}
			outcome.Skipped = append(outcome.Skipped, workflow.Skipped{Workload: name, Item: item, Reason: err.Error()})
			continue
		}
		derived, skipped := c.Derive(name, t, ds)
		outcome.Skipped = append(outcome.Skipped, skipped...)
		outcome.Skipped = append(outcome.Skipped, c.Extend(name, t, derived)...)
		files, err := c.WriteTable(filepath.Join(tableFlags.OutputDir, name), table.FromDerived(fmt.Sprintf("%s-%s-intervalDataTable", name, item), derived, conf))
		outcome.Files = append(outcome.Files, files...)
		if err != nil {
			return outcome, err
		}
		row := stats.NewCompositeRow(name, strconv.Itoa(n))
		row.Set(ipc, stats.Reduce(stats.ReduceMean, derived.Intervals(conf, ipc)))
		row.Set(hitsPerStorage, stats.Reduce(stats.ReduceMean, derived.Intervals(conf, hitsPerStorage)))
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return outcome, fmt.Errorf("no number of ways could be read")
	}
	files, err := c.WriteTable(tableFlags.OutputDir, table.FromComposites(name+"-numWaysDataTable", rows, table.CompositeLayout{
		LabelColumn: colNumWays,
		Columns:     []string{ipc, hitsPerStorage},
	}))
	outcome.Files = append(outcome.Files, files...)
	return outcome, err
}

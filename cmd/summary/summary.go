// Package summary is a subcommand of the root command. It reduces the final
// repetition files of each workload to one row of workload-level figures:
// throughput, turnaround, fairness, event sums and energy.
package summary

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"slices"
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

const cmdName = "summary"

var examples = []string{
	fmt.Sprintf("  Summary with progress in the files: $ %s %s -w workloads.yaml -i ./data --name np", app.Name, cmdName),
	fmt.Sprintf("  Progress against individual runs:   $ %s %s -w workloads.yaml --name np --indivdir indiv/outputFilesMean", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Generate one row per workload with STP, ANTT, unfairness, event sums and energy",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	tableFlags   common.TableFlags
	flagName     string
	flagIndivDir string
)

const flagNameName = "name"

// column of the final files holding the progress of each application
const progressColumn = "progress"

func init() {
	common.AddTableFlags(Cmd, &tableFlags, 0)
	Cmd.Flags().StringVar(&flagName, flagNameName, "results", "")
	Cmd.Flags().StringVar(&flagIndivDir, app.FlagIndivDirName, "", "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	flags := []app.Flag{
		{
			Name: flagNameName,
			Help: "name of the run, suffixes the columns and names the output, <name>.wl.csv",
		},
		{
			Name: app.FlagIndivDirName,
			Help: "directory of the individual-run tables, relative to the input, used when the final files have no progress column",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
		common.GetTableFlagGroup(0),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if flagName == "" || strings.ContainsAny(flagName, `/\`) {
		return common.FlagValidationError(cmd, &app.ConfigurationError{Flag: flagNameName, Value: flagName, Reason: "must be a non-empty file name"})
	}
	if err := tableFlags.Validate(cmd); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	return nil
}

// figure is one column of the summary: a reduction of a per-application
// metric over the applications of the workload. A figure with a builtin is
// derived when the files have every column in needs.
type figure struct {
	column  string
	metric  string
	reducer stats.Reducer
	builtin string
	needs   []string
}

// figures lists the summary columns, without the run name suffix.
func figures(cols metric.Columns) []figure {
	return []figure{
		{column: "unfairness", metric: "progress", reducer: stats.ReducePopCoV},
		{column: "stp", metric: "progress", reducer: stats.ReduceSum},
		{column: "antt", metric: "slowdown", reducer: stats.ReduceMean},
		{column: "instructions", metric: cols.Instructions, reducer: stats.ReduceSum},
		{column: "ipc", metric: "ipc", reducer: stats.ReduceSum, builtin: metric.IPCCycles, needs: []string{cols.Instructions, cols.Cycles}},
		{column: "ev0sum", metric: "ev0", reducer: stats.ReduceSum},
		{column: "ev1sum", metric: "ev1", reducer: stats.ReduceSum},
		{column: "ev2sum", metric: "ev2", reducer: stats.ReduceSum},
		{column: "ev3sum", metric: "ev3", reducer: stats.ReduceSum},
		{column: "l3_occ_cov", metric: cols.L3Occupancy, reducer: stats.ReducePopCoV},
		{column: "proc_energy", metric: cols.ProcEnergy, reducer: stats.ReduceMax},
		{column: "dram_energy", metric: cols.DRAMEnergy, reducer: stats.ReduceMax},
	}
}

const colTotalEnergy = "total_energy"

func runCmd(cmd *cobra.Command, args []string) error {
	c, err := workflow.NewCommand(cmd)
	if err != nil {
		return common.FlagValidationError(cmd, err)
	}
	cols := c.Config.Columns()
	fromIndividuals, err := c.Derivations(metric.Progress, metric.Slowdown)
	if err != nil {
		return c.Fail(err)
	}
	slowdown, err := metric.NewExpression("slowdown", "1 / "+progressColumn)
	if err != nil {
		return c.Fail(err)
	}
	fromColumn := []stats.Derivation{metric.Column{As: "progress", Source: progressColumn}, slowdown}
	ctx, stop := workflow.SignalContext(context.Background())
	defer stop()
	workloads, src, err := tableFlags.Open(ctx, c)
	if err != nil {
		return c.Fail(err)
	}
	defer src.Close()
	loader := c.Loader(src)
	var ind *workflow.Individuals
	if flagIndivDir != "" {
		ind = c.Individuals(src, flagIndivDir)
	}
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		var outcome workflow.Outcome
		res, err := c.Load(ctx, loader, ".", wl.Name(), sample.KindFinal)
		if err != nil {
			return outcome, err
		}
		t := c.Aggregate(res)
		ds := fromColumn
		if !slices.Contains(t.Metrics, progressColumn) {
			if ind == nil {
				return outcome, fmt.Errorf("final files have no %s column and --%s is not set", progressColumn, app.FlagIndivDirName)
			}
			var skipped []workflow.Skipped
			t, skipped = ind.Merge(ctx, wl.Name(), t)
			outcome.Skipped = append(outcome.Skipped, skipped...)
			ds = fromIndividuals
		}
		row, skipped := workloadRow(c, wl.Name(), t, ds, figures(cols))
		outcome.Skipped = append(outcome.Skipped, skipped...)
		outcome.Rows = append(outcome.Rows, row)
		return outcome, nil
	})
	rows := summary.Rows()
	var columns []string
	for _, f := range figures(cols) {
		columns = append(columns, f.column+"-"+flagName)
	}
	columns = append(columns, colTotalEnergy)
	files, err := c.WriteTable(tableFlags.OutputDir, table.FromComposites(flagName+".wl", rows, table.CompositeLayout{
		WorkloadColumn: "wl_name",
		Columns:        columns,
	}))
	if err != nil {
		return c.Fail(err)
	}
	summary.Files = append(summary.Files, files...)
	return c.Finish(ctx, summary, rows)
}

// workloadRow reduces the per-application metrics of one workload. Columns
// absent from the files are left out of the row.
func workloadRow(c *workflow.Command, wl string, t *stats.AggregatedTable, progress []stats.Derivation, figs []figure) (stats.CompositeRow, []workflow.Skipped) {
	ds := slices.Clone(progress)
	var skipped []workflow.Skipped
	for _, f := range figs {
		if slices.ContainsFunc(ds, func(d stats.Derivation) bool { return d.Name() == f.metric }) {
			continue
		}
		switch {
		case f.builtin != "":
			if !containsAll(t.Metrics, f.needs) {
				continue
			}
			d, err := c.Derivations(f.builtin)
			if err != nil {
				skipped = append(skipped, workflow.Skipped{Workload: wl, Item: f.column, Reason: err.Error()})
				continue
			}
			ds = append(ds, d...)
		case slices.Contains(t.Metrics, f.metric):
			ds = append(ds, metric.Column{As: f.metric, Source: f.metric})
		}
	}
	derived, failed := c.Derive(wl, t, ds)
	skipped = append(skipped, failed...)
	conf := c.Confidence()
	row := stats.NewCompositeRow(wl, "")
	for _, f := range figs {
		values := derived.Intervals(conf, f.metric)
		if len(values) == 0 {
			continue
		}
		row.Set(f.column+"-"+flagName, stats.Reduce(f.reducer, values))
	}
	proc, okProc := row.Get("proc_energy-" + flagName)
	dram, okDRAM := row.Get("dram_energy-" + flagName)
	if okProc && okDRAM {
		row.Set(colTotalEnergy, stats.Reduce(stats.ReduceSum, []stats.Interval{proc, dram}))
	}
	return row, skipped
}

func containsAll(columns, needs []string) bool {
	for _, n := range needs {
		if !slices.Contains(columns, n) {
			return false
		}
	}
	return true
}

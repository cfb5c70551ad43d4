// Package intervals is a subcommand of the root command. It splits the first
// repetition of each workload into per-application interval tables of the
// selected metrics.
package intervals

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
	"perfagg/internal/table"
	"perfagg/internal/workflow"
	"perfagg/internal/workload"
)

const cmdName = "intervals"

var examples = []string{
	fmt.Sprintf("  IPC per interval and application: $ %s %s -w workloads.yaml -i ./results -f ipc", app.Name, cmdName),
	fmt.Sprintf("  Several metrics, one policy:      $ %s %s -w workloads.yaml -f ipc,hits,hitsOccup -p np -d Interval", app.Name, cmdName),
	fmt.Sprintf("  Policies side by side:            $ %s %s -w workloads.yaml -f ipc,hits,occup --merged", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Generate per-application interval tables of selected metrics",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	tableFlags    common.TableFlags
	flagFunctions []string
	flagMerged    bool
	selectors     []metric.Selector
)

const flagMergedName = "merged"

// rawDir holds the repetition files of a configuration.
const rawDir = "data"

func init() {
	common.AddTableFlags(Cmd, &tableFlags, common.WithPolicies|common.WithDataCollection)
	Cmd.Flags().StringSliceVarP(&flagFunctions, app.FlagFunctionsName, "f", []string{metric.SelectIPC.String()}, "")
	Cmd.Flags().BoolVar(&flagMerged, flagMergedName, false, "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	flags := []app.Flag{
		{
			Name: app.FlagFunctionsName,
			Help: fmt.Sprintf("metrics to tabulate, choose from: %s", strings.Join(metric.SelectorNames(), ", ")),
		},
		{
			Name: flagMergedName,
			Help: "also write the total values of every policy side by side, one table per workload and data collection mode",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
		common.GetTableFlagGroup(common.WithPolicies | common.WithDataCollection),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	var err error
	if selectors, err = metric.ParseSelectors(app.FlagFunctionsName, flagFunctions); err != nil {
		return common.FlagValidationError(cmd, err)
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
	ctx, stop := workflow.SignalContext(context.Background())
	defer stop()
	workloads, src, err := tableFlags.Open(ctx, c)
	if err != nil {
		return c.Fail(err)
	}
	defer src.Close()
	cols := c.Config.Columns()
	configs := tableFlags.Configurations()
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		var outcome workflow.Outcome
		for _, cfg := range configs {
			files, err := appTables(ctx, c, src, wl, cfg, cols)
			outcome.Files = append(outcome.Files, files...)
			if err != nil {
				if ctx.Err() != nil {
					return outcome, err
				}
				outcome.Skipped = append(outcome.Skipped, workflow.Skipped{Workload: wl.Name(), Item: cfg.String(), Reason: err.Error()})
			}
		}
		if flagMerged {
			for _, dc := range tableFlags.DataCollection {
				files, skipped, err := mergedTable(ctx, c, src, wl, dc, cols)
				outcome.Files = append(outcome.Files, files...)
				outcome.Skipped = append(outcome.Skipped, skipped...)
				if err != nil {
					return outcome, err
				}
			}
		}
		if len(outcome.Files) == 0 {
			return workflow.Outcome{}, fmt.Errorf("no table could be written")
		}
		return outcome, nil
	})
	return c.Finish(ctx, summary, nil)
}

// readRaw reads one repetition file of a configuration as raw rows.
func readRaw(ctx context.Context, c *workflow.Command, src sample.Source, wl string, cfg common.Configuration, name string, kind sample.Kind) ([]sample.RawRow, error) {
	t, err := c.ReadTable(ctx, src, wl, cfg.String(), name)
	if err != nil {
		return nil, err
	}
	required := kind.RequiredColumns()
	if len(required) == 0 {
		required = []string{string(sample.KeyApp)}
	}
	rows, _, err := sample.ParseRaw(t, 0, required)
	return rows, err
}

// completed keeps the intervals of the first execution of every application.
func completed(rows []sample.RawRow, cols metric.Columns) []sample.RawRow {
	var out []sample.RawRow
	for _, r := range rows {
		if v, ok := r.Values[cols.Completed]; ok && v > 1 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// groupByApp splits rows by application and core in first-seen order.
// Tables are named after the application, or <app>.<core> when the
// application ran on several cores.
func groupByApp(rows []sample.RawRow) ([]string, map[string][]sample.RawRow) {
	type group struct{ app, core string }
	var order []group
	groups := make(map[group][]sample.RawRow)
	cores := make(map[string]int)
	for _, r := range rows {
		g := group{app: r.App, core: r.Core}
		if _, ok := groups[g]; !ok {
			order = append(order, g)
			cores[r.App]++
		}
		groups[g] = append(groups[g], r)
	}
	var names []string
	byName := make(map[string][]sample.RawRow, len(order))
	for _, g := range order {
		name := g.app
		if cores[g.app] > 1 {
			name = g.app + "." + g.core
		}
		names = append(names, name)
		byName[name] = groups[g]
	}
	return names, byName
}

// appTables writes <out>/<dc>/<wl>/<app>_<tag><policy>.csv for every
// application and selector from repetition 0 of the workload.
func appTables(ctx context.Context, c *workflow.Command, src sample.Source, wl workload.Workload, cfg common.Configuration, cols metric.Columns) ([]string, error) {
	name := sample.Join(cfg.String(), rawDir, wl.Name()+"_0.csv")
	rows, err := readRaw(ctx, c, src, wl.Name(), cfg, name, sample.KindInterval)
	if err != nil {
		return nil, err
	}
	apps, byApp := groupByApp(completed(rows, cols))
	dir := filepath.Join(tableFlags.OutputDir, cfg.DataCollection, wl.Name())
	var files []string
	for _, a := range apps {
		for _, s := range selectors {
			tv := table.New(a+"_"+s.Tag()+cfg.Policy, string(sample.KeyInterval), s.Column())
			for _, r := range byApp[a] {
				tv.AddRow(r.Interval, table.FormatFloat(s.Value(r, cols)))
			}
			written, err := c.WriteTable(dir, tv)
			files = append(files, written...)
			if err != nil {
				return files, err
			}
		}
	}
	return files, nil
}

// mergedTable joins the total values of every policy on the application,
// one <tag>-<policy> column per selector and policy. Applications missing
// from a policy get empty cells.
func mergedTable(ctx context.Context, c *workflow.Command, src sample.Source, wl workload.Workload, dc string, cols metric.Columns) ([]string, []workflow.Skipped, error) {
	var skipped []workflow.Skipped
	var apps []string
	values := make(map[string]map[string]string)
	header := []string{string(sample.KeyApp)}
	for _, policy := range tableFlags.Policies {
		cfg := common.Configuration{Policy: policy, DataCollection: dc}
		name := sample.Join(cfg.String(), common.MeanDir, wl.Name()+"_0_"+sample.KindTotal.String()+".csv")
		rows, err := readRaw(ctx, c, src, wl.Name(), cfg, name, sample.KindTotal)
		if err != nil {
			if ctx.Err() != nil {
				return nil, skipped, err
			}
			skipped = append(skipped, workflow.SkippedFromError(wl.Name(), err))
			continue
		}
		for _, s := range selectors {
			column := s.Tag() + "-" + policy
			header = append(header, column)
			for _, r := range rows {
				if _, ok := values[r.App]; !ok {
					apps = append(apps, r.App)
					values[r.App] = make(map[string]string)
				}
				values[r.App][column] = table.FormatFloat(s.Value(r, cols))
			}
		}
	}
	if len(apps) == 0 {
		return nil, skipped, nil
	}
	tv := table.New("results-"+sample.KindTotal.String()+"_"+wl.Name()+"_"+dc, header...)
	for _, a := range apps {
		row := []string{a}
		for _, column := range header[1:] {
			row = append(row, values[a][column])
		}
		tv.AddRow(row...)
	}
	files, err := c.WriteTable(tableFlags.OutputDir, tv)
	return files, skipped, err
}

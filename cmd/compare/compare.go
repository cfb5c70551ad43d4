// Package compare is a subcommand of the root command. It collects the
// totals of one configuration from every workload's total data table into a
// single table per configuration.
package compare

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"perfagg/internal/app"
	"perfagg/internal/common"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
	"perfagg/internal/table"
	"perfagg/internal/workflow"
	"perfagg/internal/workload"
)

const cmdName = "compare"

var examples = []string{
	fmt.Sprintf("  Compare two configurations: $ %s %s -w workloads.yaml -i ./tables -p 12cr8others,16cr4others", app.Name, cmdName),
	fmt.Sprintf("  Compare policies:           $ %s %s -w workloads.yaml -i ./tables -p np -p hg", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Generate one table per policy or configuration with the totals of every workload",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	tableFlags common.TableFlags
	flagLabels []string
)

// label columns of a total data table, in lookup order
var labelColumns = []string{"configuration", "policy"}

// compared columns, written as <c>:mean and <c>:ci
var columns = []string{"IPC", "MPKIL3", "STP", "ANTT", "Unfairness", "Tt"}

func init() {
	common.AddTableFlags(Cmd, &tableFlags, 0)
	Cmd.Flags().StringSliceVarP(&flagLabels, app.FlagPoliciesName, "p", nil, "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	flags := []app.Flag{
		{
			Name: app.FlagPoliciesName,
			Help: "policies or configuration labels to compare, as written in the total data tables (required)",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
		common.GetTableFlagGroup(0),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if len(flagLabels) == 0 {
		return common.FlagValidationError(cmd, &app.ConfigurationError{Flag: app.FlagPoliciesName, Reason: "at least one policy is required"})
	}
	if err := tableFlags.Validate(cmd); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	return nil
}

// readComposites reads the rows of a total data table by its label column.
func readComposites(t sample.Table, wl string) ([]stats.CompositeRow, error) {
	for _, col := range labelColumns {
		if t.Column(col) >= 0 {
			return stats.ReadComposites(t, wl, col)
		}
	}
	return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("no %s column", strings.Join(labelColumns, " or "))}
}

func findLabel(rows []stats.CompositeRow, label string) (stats.CompositeRow, bool) {
	for _, r := range rows {
		if r.Label == label {
			return r, true
		}
	}
	return stats.CompositeRow{}, false
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
	ids := make(map[string]string)
	for i, wl := range workloads {
		if _, ok := ids[wl.Name()]; !ok {
			ids[wl.Name()] = strconv.Itoa(i + 1)
		}
	}
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		var outcome workflow.Outcome
		t, err := c.ReadTable(ctx, src, wl.Name(), "totalDataTable", wl.Name()+"-totalDataTable.csv")
		if err != nil {
			return outcome, err
		}
		rows, err := readComposites(t, wl.Name())
		if err != nil {
			return outcome, err
		}
		for _, label := range flagLabels {
			row, ok := findLabel(rows, label)
			if !ok {
				outcome.Skipped = append(outcome.Skipped, workflow.Skipped{Workload: wl.Name(), Item: label, Reason: "not in the total data table"})
				continue
			}
			outcome.Rows = append(outcome.Rows, row)
		}
		return outcome, nil
	})
	_, groups := stats.GroupComposites(summary.Rows())
	layout := table.CompositeLayout{WorkloadColumn: "Workload", LabelColumn: "Workload_ID", Columns: columns, LabelFirst: true}
	for _, label := range flagLabels {
		var rows []stats.CompositeRow
		for _, r := range groups[label] {
			r.Label = ids[r.Workload]
			rows = append(rows, r)
		}
		files, err := c.WriteTable(tableFlags.OutputDir, table.FromComposites(label+"-workloads-totals", rows, layout))
		if err != nil {
			return c.Fail(err)
		}
		summary.Files = append(summary.Files, files...)
	}
	return c.Finish(ctx, summary, nil)
}

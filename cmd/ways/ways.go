// Package ways is a subcommand of the root command. It compares cache way
// partitioning configurations, each giving one number of L3 ways to the
// critical application and another to the rest of the workload.
package ways

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"slices"
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

const cmdName = "ways"

var examples = []string{
	fmt.Sprintf("  Compare two partitionings:  $ %s %s -w workloads.yaml -l \"(12,8)\" -l \"(16,4)\"", app.Name, cmdName),
	fmt.Sprintf("  Label the configurations:   $ %s %s -w workloads.yaml -l 12,8 -l 16,4 --names base,wide", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Generate interval and total tables of cache way partitioning configurations",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	tableFlags    common.TableFlags
	flagListWays  []string
	flagNames     []string
	flagIndivDir  string
	configuration []waysConfig
)

const (
	flagListWaysName = "listways"
	flagNamesName    = "names"
)

// Columns of the generated tables.
const (
	colConfiguration = "configuration"
	colInterval      = "interval"
	colRelErr        = "rel_err_IPC"
	colMedianRelErr  = "median_rel_err_IPC"
	colSTP           = "STP"
	colANTT          = "ANTT"
	colUnfairness    = "Unfairness"
	colTt            = "Tt"
)

const defaultIndivDir = "npIndivInterval/" + common.MeanDir

func init() {
	common.AddTableFlags(Cmd, &tableFlags, 0)
	Cmd.Flags().StringArrayVarP(&flagListWays, flagListWaysName, "l", nil, "")
	Cmd.Flags().StringSliceVar(&flagNames, flagNamesName, nil, "")
	Cmd.Flags().StringVar(&flagIndivDir, app.FlagIndivDirName, defaultIndivDir, "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	flags := []app.Flag{
		{
			Name: flagListWaysName,
			Help: "ways of the critical application and of the others, e.g., \"(12,8)\", repeat for each configuration (required)",
		},
		{
			Name: flagNamesName,
			Help: "labels of the configurations, one per --" + flagListWaysName,
		},
		{
			Name: app.FlagIndivDirName,
			Help: "directory of the individual-run tables, relative to the input",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
		common.GetTableFlagGroup(0),
	}
}

// waysConfig is one partitioning: ways given to the critical application
// and ways given to the others.
type waysConfig struct {
	Critical int
	Others   int
	Label    string
}

// Dir is the input and output directory of the configuration.
func (w waysConfig) Dir() string {
	return fmt.Sprintf("%dcr%dothers", w.Critical, w.Others)
}

var listWaysPattern = regexp.MustCompile(`^\(?\s*([0-9]+)\s*,\s*([0-9]+)\s*\)?$`)

// parseListWays reads "(cr,others)" values. Without names, configurations
// are labeled by their directory.
func parseListWays(values, names []string) ([]waysConfig, error) {
	if len(values) == 0 {
		return nil, &app.ConfigurationError{Flag: flagListWaysName, Reason: "at least one configuration is required"}
	}
	if len(names) > 0 && len(names) != len(values) {
		return nil, &app.ConfigurationError{
			Flag:   flagNamesName,
			Value:  strings.Join(names, ","),
			Reason: fmt.Sprintf("%d names given for %d configurations", len(names), len(values)),
		}
	}
	var configs []waysConfig
	for i, v := range values {
		match := listWaysPattern.FindStringSubmatch(strings.TrimSpace(v))
		if match == nil {
			return nil, &app.ConfigurationError{Flag: flagListWaysName, Value: v, Reason: "expected (cr,others), e.g., (12,8)"}
		}
		cr, _ := strconv.Atoi(match[1])
		others, _ := strconv.Atoi(match[2])
		wc := waysConfig{Critical: cr, Others: others}
		wc.Label = wc.Dir()
		if len(names) > 0 {
			wc.Label = names[i]
		}
		configs = append(configs, wc)
	}
	return configs, nil
}

func validateFlags(cmd *cobra.Command, args []string) error {
	var err error
	if configuration, err = parseListWays(flagListWays, flagNames); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	if err := tableFlags.Validate(cmd); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	return nil
}

// derivations are the metrics of the final and interval tables.
type derivations struct {
	final    []stats.Derivation // IPC, MPKIL3, progress, slowdown
	interval []stats.Derivation // IPC, IPC_prediction, l3_Mbytes_occ, MPKIL3, rel_err_IPC
	cols     metric.Columns
}

func newDerivations(c *workflow.Command) (derivations, error) {
	d := derivations{cols: c.Config.Columns()}
	var err error
	if d.final, err = c.Derivations(metric.IPC, metric.MPKI, metric.Progress, metric.Slowdown); err != nil {
		return d, err
	}
	if d.interval, err = c.Derivations(metric.IPC, metric.IPCPrediction, metric.OccupancyMB, metric.MPKI); err != nil {
		return d, err
	}
	relErr, err := metric.NewExpression(colRelErr, fmt.Sprintf("abs([%s] - [%s]) / [%s]", d.cols.IPC, d.cols.IPCPrediction, d.cols.IPC))
	if err != nil {
		return d, err
	}
	d.interval = append(d.interval, relErr)
	return d, nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	c, err := workflow.NewCommand(cmd)
	if err != nil {
		return common.FlagValidationError(cmd, err)
	}
	d, err := newDerivations(c)
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
	ind := c.Individuals(src, flagIndivDir)
	layout := totalLayout(d)
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		var outcome workflow.Outcome
		for _, wc := range configuration {
			row, o, err := configurationRow(ctx, c, src, ind, wl, wc, d)
			outcome.Files = append(outcome.Files, o.Files...)
			outcome.Skipped = append(outcome.Skipped, o.Skipped...)
			if err != nil {
				if ctx.Err() != nil {
					return outcome, err
				}
				outcome.Skipped = append(outcome.Skipped, workflow.Skipped{Workload: wl.Name(), Item: wc.Label, Reason: err.Error()})
				continue
			}
			outcome.Rows = append(outcome.Rows, row)
		}
		if len(outcome.Rows) == 0 {
			return workflow.Outcome{}, fmt.Errorf("no configuration could be processed")
		}
		files, err := c.WriteTable(tableFlags.OutputDir, table.FromComposites(wl.Name()+"-totalDataTable", outcome.Rows, layout))
		if err != nil {
			return outcome, err
		}
		outcome.Files = append(outcome.Files, files...)
		return outcome, nil
	})
	return c.Finish(ctx, summary, summary.Rows())
}

func totalLayout(d derivations) table.CompositeLayout {
	ipc, mpki, pred := d.final[0].Name(), d.final[1].Name(), d.interval[1].Name()
	return table.CompositeLayout{
		LabelColumn: colConfiguration,
		Columns:     []string{ipc, pred, mpki, colSTP, colANTT, colUnfairness, colTt},
		Plain:       []string{colMedianRelErr},
		Order:       []string{ipc, pred, colMedianRelErr, mpki, colSTP, colANTT, colUnfairness, colTt},
	}
}

// configurationRow computes the total row of one workload under one
// configuration and writes the configuration's interval tables.
func configurationRow(ctx context.Context, c *workflow.Command, src sample.Source, ind *workflow.Individuals, wl workload.Workload, wc waysConfig, d derivations) (stats.CompositeRow, workflow.Outcome, error) {
	var outcome workflow.Outcome
	conf := c.Confidence()
	inDir := sample.Join(wc.Dir(), common.MeanDir)
	row := stats.NewCompositeRow(wl.Name(), wc.Label)

	fin, err := c.ReadAggregated(ctx, src, wl.Name(), wc.Label, sample.Join(inDir, sample.KindFinal.AggregatedName(wl.Name())))
	if err != nil {
		return row, outcome, err
	}
	merged, skipped := ind.Merge(ctx, wl.Name(), fin)
	outcome.Skipped = append(outcome.Skipped, skipped...)
	final, skipped := c.Derive(wl.Name(), merged, d.final)
	outcome.Skipped = append(outcome.Skipped, skipped...)
	if len(final.Complete()) == 0 {
		return row, outcome, fmt.Errorf("no application with complete metrics")
	}
	ipc, mpki, progress, slowdown := d.final[0].Name(), d.final[1].Name(), d.final[2].Name(), d.final[3].Name()
	row.Set(ipc, stats.Reduce(stats.ReduceSum, final.Intervals(conf, ipc)))
	row.Set(mpki, stats.Reduce(stats.ReduceSum, final.Intervals(conf, mpki)))
	row.Set(colSTP, stats.Reduce(stats.ReduceSum, final.Intervals(conf, progress)))
	row.Set(colANTT, stats.Reduce(stats.ReduceMean, final.Intervals(conf, slowdown)))
	row.Set(colUnfairness, stats.Reduce(stats.ReduceCoV, final.Intervals(conf, slowdown)))

	intervals, err := c.ReadAggregated(ctx, src, wl.Name(), wc.Label, sample.Join(inDir, sample.KindInterval.AggregatedName(wl.Name())))
	if err != nil {
		return row, outcome, err
	}
	if !slices.Contains(intervals.Metrics, d.cols.IPCPrediction) {
		return row, outcome, fmt.Errorf("interval table has no %s column", d.cols.IPCPrediction+stats.SuffixMean)
	}
	derived, skipped := c.Derive(wl.Name(), intervals, d.interval)
	outcome.Skipped = append(outcome.Skipped, skipped...)
	outcome.Skipped = append(outcome.Skipped, c.Extend(wl.Name(), intervals, derived)...)
	outDir := filepath.Join(tableFlags.OutputDir, wc.Dir())
	files, err := writeAppTables(c, filepath.Join(outDir, wl.Name()), derived, d, conf)
	outcome.Files = append(outcome.Files, files...)
	if err != nil {
		return row, outcome, err
	}
	totals := intervalTotals(wl.Name(), derived, d, conf)
	files, err = c.WriteTable(outDir, table.FromComposites(wl.Name()+"-total-table", totals, table.CompositeLayout{
		LabelColumn: colInterval,
		Columns:     []string{ipc, d.interval[1].Name(), mpki},
		Plain:       []string{colRelErr},
		Order:       []string{ipc, d.interval[1].Name(), colRelErr, mpki},
	}))
	outcome.Files = append(outcome.Files, files...)
	if err != nil {
		return row, outcome, err
	}
	var predictions, relErrs []stats.Interval
	for _, t := range totals {
		p, _ := t.Get(d.interval[1].Name())
		r, _ := t.Get(colRelErr)
		predictions = append(predictions, p)
		relErrs = append(relErrs, r)
	}
	row.Set(d.interval[1].Name(), stats.Reduce(stats.ReduceMean, predictions))
	row.Set(colMedianRelErr, stats.Exact(stats.Reduce(stats.ReduceMedian, relErrs).Mean))

	// workload turnaround time, the interval count of the last application to finish
	tot, err := c.ReadAggregated(ctx, src, wl.Name(), wc.Label+" "+sample.KindTotal.String(), sample.Join(inDir, sample.KindTotal.AggregatedName(wl.Name())))
	if err != nil {
		outcome.Skipped = append(outcome.Skipped, workflow.SkippedFromError(wl.Name(), err))
		return row, outcome, nil
	}
	var counts []stats.Interval
	for _, r := range tot.Rows {
		if e, ok := r.Metrics[d.cols.Interval]; ok {
			counts = append(counts, conf.Interval(e))
		}
	}
	if len(counts) > 0 {
		row.Set(colTt, stats.Reduce(stats.ReduceLast, counts))
	}
	return row, outcome, nil
}

// writeAppTables writes the interval table of every application and the
// occupancy of all applications side by side.
func writeAppTables(c *workflow.Command, dir string, derived *stats.DerivedTable, d derivations, conf stats.Confidence) ([]string, error) {
	var apps, intervals []string
	rowsByApp := make(map[string][]stats.DerivedRow)
	occupancy := make(map[string]map[string]string)
	occ := d.interval[2].Name()
	for _, r := range derived.Rows {
		if _, ok := rowsByApp[r.App]; !ok {
			apps = append(apps, r.App)
		}
		rowsByApp[r.App] = append(rowsByApp[r.App], r)
		if _, ok := occupancy[r.Interval]; !ok {
			intervals = append(intervals, r.Interval)
			occupancy[r.Interval] = make(map[string]string)
		}
		if e, ok := r.Metrics[occ]; ok {
			occupancy[r.Interval][r.App] = table.FormatFloat(e.Mean)
		}
	}
	slices.SortFunc(apps, stats.CompareKeys)
	var files []string
	for _, a := range apps {
		perApp := &stats.DerivedTable{Keys: derived.Keys, Metrics: derived.Metrics, Rows: rowsByApp[a]}
		written, err := c.WriteTable(dir, table.FromDerived(a+"-intervalDataTable", perApp, conf))
		files = append(files, written...)
		if err != nil {
			return files, err
		}
	}
	tv := table.New("LLC_occup_apps_data_table", append([]string{colInterval}, apps...)...)
	for _, iv := range intervals {
		values := []string{iv}
		for _, a := range apps {
			values = append(values, occupancy[iv][a])
		}
		tv.AddRow(values...)
	}
	written, err := c.WriteTable(dir, tv)
	return append(files, written...), err
}

// intervalTotals sums IPC, predicted IPC and MPKI over the applications of
// every interval. The relative prediction error is computed on the sums.
func intervalTotals(wl string, derived *stats.DerivedTable, d derivations, conf stats.Confidence) []stats.CompositeRow {
	ipc, pred, mpki := d.interval[0].Name(), d.interval[1].Name(), d.interval[3].Name()
	var order []string
	values := make(map[string]map[string][]stats.Interval)
	for _, r := range derived.Complete() {
		if _, ok := values[r.Interval]; !ok {
			order = append(order, r.Interval)
			values[r.Interval] = make(map[string][]stats.Interval)
		}
		for _, m := range []string{ipc, pred, mpki} {
			values[r.Interval][m] = append(values[r.Interval][m], conf.Interval(r.Metrics[m]))
		}
	}
	var rows []stats.CompositeRow
	for _, iv := range order {
		row := stats.NewCompositeRow(wl, iv)
		sumIPC := stats.Reduce(stats.ReduceSum, values[iv][ipc])
		sumPred := stats.Reduce(stats.ReduceSum, values[iv][pred])
		row.Set(ipc, sumIPC)
		row.Set(pred, sumPred)
		row.Set(colRelErr, stats.Exact(math.Abs(sumIPC.Mean-sumPred.Mean)/sumIPC.Mean))
		row.Set(mpki, stats.Reduce(stats.ReduceSum, values[iv][mpki]))
		rows = append(rows, row)
	}
	return rows
}

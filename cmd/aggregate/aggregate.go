// Package aggregate is a subcommand of the root command. It groups the
// repetition files of each workload and writes the mean, standard deviation
// and repetition count of every measured column.
package aggregate

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"perfagg/internal/app"
	"perfagg/internal/common"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
	"perfagg/internal/table"
	"perfagg/internal/util"
	"perfagg/internal/workflow"
	"perfagg/internal/workload"
)

const cmdName = "aggregate"

var examples = []string{
	fmt.Sprintf("  Aggregate all file kinds:              $ %s %s -w workloads.yaml -i ./data -o ./outputFilesMean", app.Name, cmdName),
	fmt.Sprintf("  Aggregate final files per application: $ %s %s -w workloads.yaml -k fin --keys app", app.Name, cmdName),
	fmt.Sprintf("  Add progress against a stand-alone run: $ %s %s -w workloads.yaml -k fin,tot --alone 120", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "Aggregate repetition files into mean, std and repetition count tables",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	tableFlags common.TableFlags
	flagKinds  []string
	flagKeys   []string
	flagAlone  float64
)

const (
	flagKindsName = "kinds"
	flagKeysName  = "keys"
	flagAloneName = "alone"
)

func init() {
	common.AddTableFlags(Cmd, &tableFlags, 0)
	Cmd.Flags().StringSliceVarP(&flagKinds, flagKindsName, "k", sample.KindOptions, "")
	Cmd.Flags().StringSliceVar(&flagKeys, flagKeysName, nil, "")
	Cmd.Flags().Float64Var(&flagAlone, flagAloneName, 0, "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	var keyNames []string
	for _, k := range sample.KeyColumns {
		keyNames = append(keyNames, string(k))
	}
	flags := []app.Flag{
		{
			Name: flagKindsName,
			Help: fmt.Sprintf("file kinds to aggregate, choose from: %s", strings.Join(sample.KindOptions, ", ")),
		},
		{
			Name: flagKeysName,
			Help: fmt.Sprintf("override the grouping key, choose from: %s", strings.Join(keyNames, ", ")),
		},
		{
			Name: flagAloneName,
			Help: "stand-alone execution time in intervals, adds progress, slowdown, stp, antt and unfairness to fin and tot tables",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
		common.GetTableFlagGroup(0),
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if err := app.ValidateChoices(flagKindsName, flagKinds, sample.KindOptions); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	var keyNames []string
	for _, k := range sample.KeyColumns {
		keyNames = append(keyNames, string(k))
	}
	if err := app.ValidateChoices(flagKeysName, flagKeys, keyNames); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	if flagAlone < 0 {
		return common.FlagValidationError(cmd, &app.ConfigurationError{Flag: flagAloneName, Value: fmt.Sprint(flagAlone), Reason: "must not be negative"})
	}
	if err := tableFlags.Validate(cmd); err != nil {
		return common.FlagValidationError(cmd, err)
	}
	return nil
}

// options are the resolved flags of one run.
type options struct {
	kinds     []sample.Kind
	keys      []sample.KeyColumn // empty to use the key of each kind
	alone     float64
	outputDir string
}

func parseOptions() (options, error) {
	opts := options{alone: flagAlone, outputDir: tableFlags.OutputDir}
	for _, name := range flagKinds {
		k, err := sample.ParseKind(name)
		if err != nil {
			return opts, err
		}
		if !slices.Contains(opts.kinds, k) {
			opts.kinds = append(opts.kinds, k)
		}
	}
	for _, name := range flagKeys {
		opts.keys = append(opts.keys, sample.KeyColumn(name))
	}
	return opts, nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	c, err := workflow.NewCommand(cmd)
	if err != nil {
		return common.FlagValidationError(cmd, err)
	}
	opts, err := parseOptions()
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
	loader := c.Loader(src)
	summary := c.Run(ctx, workloads, func(ctx context.Context, wl workload.Workload) (workflow.Outcome, error) {
		return aggregateWorkload(ctx, c, loader, wl, opts)
	})
	return c.Finish(ctx, summary, nil)
}

// groupKey restricts the requested key to the key columns present in the files.
func groupKey(res *sample.LoadResult, requested []sample.KeyColumn) []sample.KeyColumn {
	if len(requested) == 0 {
		return res.GroupKey
	}
	var keys []sample.KeyColumn
	for _, k := range sample.KeyColumns {
		if !slices.Contains(requested, k) {
			continue
		}
		for _, r := range res.Rows {
			if r.Key(k) != "" {
				keys = append(keys, k)
				break
			}
		}
	}
	return keys
}

// aggregateWorkload writes one aggregated table per file kind and, for
// interval files, one table per application. A missing kind skips only that
// kind; the workload is skipped when no kind could be read.
func aggregateWorkload(ctx context.Context, c *workflow.Command, loader *sample.Loader, wl workload.Workload, opts options) (workflow.Outcome, error) {
	var outcome workflow.Outcome
	var firstErr error
	for _, kind := range opts.kinds {
		res, err := c.Load(ctx, loader, ".", wl.Name(), kind)
		if err != nil {
			if ctx.Err() != nil {
				return outcome, err
			}
			var missing *sample.MissingInputError
			if !errors.As(err, &missing) {
				return outcome, err
			}
			if firstErr == nil {
				firstErr = err
			}
			outcome.Skipped = append(outcome.Skipped, workflow.SkippedFromError(wl.Name(), err))
			continue
		}
		res.GroupKey = groupKey(res, opts.keys)
		if opts.alone > 0 && kind != sample.KindInterval {
			for _, col := range stats.AddAloneMetrics(res.Rows, opts.alone) {
				res.Columns = util.UniqueAppend(res.Columns, col)
			}
		}
		t := c.Aggregate(res)
		name := strings.TrimSuffix(kind.AggregatedName(wl.Name()), ".csv")
		files, err := c.WriteTable(opts.outputDir, table.FromAggregated(name, t))
		if err != nil {
			return outcome, err
		}
		outcome.Files = append(outcome.Files, files...)
		if kind != sample.KindInterval || !slices.Contains(t.Keys, sample.KeyApp) {
			continue
		}
		appDir := filepath.Join(opts.outputDir, wl.Name())
		for _, appKey := range t.Distinct(sample.KeyApp) {
			perApp := &stats.AggregatedTable{Keys: t.Keys, Metrics: t.Metrics, Rows: t.Select(sample.KeyApp, appKey)}
			files, err := c.WriteTable(appDir, table.FromAggregated(appKey, perApp))
			if err != nil {
				return outcome, err
			}
			outcome.Files = append(outcome.Files, files...)
		}
		slog.Debug("per-application tables written", slog.String("workload", wl.Name()), slog.String("dir", appDir))
	}
	if len(outcome.Files) == 0 && firstErr != nil {
		return workflow.Outcome{}, firstErr
	}
	return outcome, nil
}

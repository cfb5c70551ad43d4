// Package workflow implements the common flow/logic of the table-generating
// commands. It handles per-workload isolation, parallel processing, output
// writing and the end-of-run summary.
package workflow

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime/debug"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/cobra"

	"perfagg/internal/app"
	"perfagg/internal/config"
	"perfagg/internal/metric"
	"perfagg/internal/progress"
	"perfagg/internal/report"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
	"perfagg/internal/table"
	"perfagg/internal/util"
	"perfagg/internal/workload"
)

// Skipped is a workload, or an item of a workload, left out of the results.
type Skipped struct {
	Workload string
	Item     string // e.g., an application, a configuration or a file kind, may be empty
	Reason   string
}

func (s Skipped) String() string {
	if s.Item == "" {
		return fmt.Sprintf("%s: %s", s.Workload, s.Reason)
	}
	return fmt.Sprintf("%s: %s: %s", s.Workload, s.Item, s.Reason)
}

// SkippedFromError describes why a workload task failed.
func SkippedFromError(wl string, err error) Skipped {
	s := Skipped{Workload: wl, Reason: err.Error()}
	var missing *sample.MissingInputError
	var malformed *sample.MalformedInputError
	var dz *stats.DivisionByZeroError
	switch {
	case errors.As(err, &missing):
		s.Item = missing.Kind
	case errors.As(err, &malformed):
		s.Item = malformed.Path
	case errors.As(err, &dz):
		s.Item = dz.Metric
	}
	return s
}

// Outcome is what a workload task produced.
type Outcome struct {
	Files   []string             // files written
	Rows    []stats.CompositeRow // rows for the command's run-wide tables
	Skipped []Skipped            // items of the workload left out
}

// Task processes one workload. A returned error skips the whole workload.
type Task func(ctx context.Context, wl workload.Workload) (Outcome, error)

// Summary collects the outcomes of a run in workload order.
type Summary struct {
	Command   string
	Outcomes  []Outcome // indexed like the workloads, empty for skipped workloads
	Files     []string
	Skipped   []Skipped
	Processed int
}

// Flagged lists the composite values resting on a single repetition, as
// <workload>/<label>: <column>.
func (s *Summary) Flagged() []string {
	var out []string
	for _, r := range s.Rows() {
		for _, c := range r.Columns {
			if r.Values[c].Flagged {
				out = append(out, fmt.Sprintf("%s/%s: %s", r.Workload, r.Label, c))
			}
		}
	}
	return out
}

// Rows returns the composite rows of all workloads in workload order.
func (s *Summary) Rows() []stats.CompositeRow {
	var rows []stats.CompositeRow
	for _, o := range s.Outcomes {
		rows = append(rows, o.Rows...)
	}
	return rows
}

// Command carries what every table-generating command needs.
type Command struct {
	Cmd        *cobra.Command
	Name       string
	AppContext app.Context
	Config     *config.Config
	Formats    []string
	Metrics    *Metrics
}

// LoadConfig returns the pipeline configuration named by --config, or the
// defaults when the flag is not set.
func LoadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// NewCommand reads the application context of a command and loads the
// pipeline configuration.
func NewCommand(cmd *cobra.Command) (*Command, error) {
	appContext := app.Context{Workers: 1}
	if cmd.Parent() != nil && cmd.Parent().Context() != nil {
		if v, ok := cmd.Parent().Context().Value(app.Context{}).(app.Context); ok {
			appContext = v
		}
	}
	cfg, err := LoadConfig(appContext.ConfigPath)
	if err != nil {
		return nil, err
	}
	return &Command{
		Cmd:        cmd,
		Name:       cmd.Name(),
		AppContext: appContext,
		Config:     cfg,
		Formats:    report.Formats(appContext.Formats),
		Metrics:    NewMetrics(cmd.Name()),
	}, nil
}

// Confidence returns the configured confidence interval settings.
func (c *Command) Confidence() stats.Confidence {
	return c.Config.Interval()
}

// Derivations resolves built-in metrics over the configured columns.
func (c *Command) Derivations(names ...string) ([]stats.Derivation, error) {
	return metric.Builtins(c.Config.Columns(), names...)
}

// Extend adds the metrics of the configuration file to a table derived
// from t. They see the aggregated columns and the derived metrics of their
// row, and earlier custom metrics. A failure is reported as skipped and
// never becomes a row failure, so composites do not depend on them.
func (c *Command) Extend(wl string, t *stats.AggregatedTable, derived *stats.DerivedTable) []Skipped {
	custom := c.Config.CustomMetrics()
	if len(custom) == 0 || len(t.Rows) != len(derived.Rows) {
		return nil
	}
	for _, d := range custom {
		derived.Metrics = util.UniqueAppend(derived.Metrics, d.Name())
	}
	var skipped []Skipped
	for i := range derived.Rows {
		row := &derived.Rows[i]
		inputs := maps.Clone(t.Rows[i].Metrics)
		if inputs == nil {
			inputs = make(map[string]stats.Estimate)
		}
		maps.Copy(inputs, row.Metrics)
		for _, d := range custom {
			e, err := d.Derive(inputs)
			if err != nil {
				key := t.Rows[i].KeyString(derived.Keys)
				slog.Warn("custom metric failed", slog.String("workload", wl), slog.String("metric", d.Name()), slog.String("row", key), slog.String("error", err.Error()))
				skipped = append(skipped, Skipped{Workload: wl, Item: key, Reason: d.Name() + ": " + err.Error()})
				continue
			}
			row.Metrics[d.Name()] = e
			inputs[d.Name()] = e
		}
	}
	return skipped
}

// Fail reports an error that ends the command before any workload is processed.
func (c *Command) Fail(err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	slog.Error(err.Error())
	c.Cmd.SilenceUsage = true
	return err
}

// OpenSource opens an input location with the key file given by --key.
func (c *Command) OpenSource(ctx context.Context, location, keyFile string) (sample.Source, error) {
	src, err := sample.OpenSource(ctx, location, sample.SourceOptions{KeyFile: keyFile})
	if err != nil {
		return nil, err
	}
	slog.Info("input source opened", slog.String("location", src.Location()))
	return src, nil
}

// Loader returns a loader reading from src with the configured parallelism.
func (c *Command) Loader(src sample.Source) *sample.Loader {
	return &sample.Loader{Source: src, Workers: max(c.AppContext.Workers, 1)}
}

// Load reads the repetition files of a workload and counts them.
func (c *Command) Load(ctx context.Context, loader *sample.Loader, dir, wl string, kind sample.Kind) (*sample.LoadResult, error) {
	res, err := loader.Load(ctx, dir, wl, kind)
	c.Metrics.ObserveLoad(res)
	if res != nil {
		for _, rejected := range res.Rejected {
			slog.Warn("repetition file skipped", slog.String("workload", wl), slog.String("file", rejected.Path), slog.String("error", rejected.Err.Error()))
		}
	}
	return res, err
}

// ReadTable reads one table from the input. A file that cannot be opened is
// a MissingInputError of the given workload and item.
func (c *Command) ReadTable(ctx context.Context, src sample.Source, wl, item, name string) (sample.Table, error) {
	t, err := sample.ReadTable(ctx, src, name)
	if err != nil {
		var malformed *sample.MalformedInputError
		if errors.As(err, &malformed) {
			c.Metrics.ObserveFile(true)
			return t, err
		}
		return t, &sample.MissingInputError{Workload: wl, Kind: item, Location: src.Location() + "/" + name, Err: err}
	}
	c.Metrics.ObserveFile(false)
	return t, nil
}

// ReadAggregated reads a table written by the aggregate command. Tables
// without repetition counts use the configured default.
func (c *Command) ReadAggregated(ctx context.Context, src sample.Source, wl, item, name string) (*stats.AggregatedTable, error) {
	t, err := c.ReadTable(ctx, src, wl, item, name)
	if err != nil {
		return nil, err
	}
	return stats.ReadAggregated(t, c.Config.DefaultRepetitions)
}

// Individuals returns a reader of individual-run tables in dir.
func (c *Command) Individuals(src sample.Source, dir string) *Individuals {
	return &Individuals{Source: src, Dir: dir, DefaultN: c.Config.DefaultRepetitions}
}

// Aggregate groups the loaded rows and counts data-quality events.
func (c *Command) Aggregate(res *sample.LoadResult) *stats.AggregatedTable {
	t, st := stats.Aggregate(res.Rows, res.GroupKey, res.Columns)
	c.Metrics.ObserveAggregate(st)
	if st.SingleRepetitionGroups > 0 {
		slog.Warn("groups with a single repetition, std reported as 0", slog.String("workload", res.Workload), slog.String("kind", res.Kind.String()), slog.Int("groups", st.SingleRepetitionGroups))
	}
	return t
}

// Derive applies derivations and turns failed rows into skipped items.
func (c *Command) Derive(wl string, t *stats.AggregatedTable, ds []stats.Derivation) (*stats.DerivedTable, []Skipped) {
	derived := stats.Derive(t, ds)
	var skipped []Skipped
	failedRows := 0
	for _, r := range derived.Rows {
		if !r.Failed() {
			continue
		}
		failedRows++
		for _, m := range derived.Metrics {
			if err, ok := r.Failures[m]; ok {
				skipped = append(skipped, Skipped{Workload: wl, Item: r.App, Reason: err.Error()})
			}
		}
	}
	c.Metrics.ObserveExcluded(failedRows)
	return derived, skipped
}

// WriteTable writes a table to dir in every requested format.
func (c *Command) WriteTable(dir string, tv *table.TableValues) ([]string, error) {
	return report.Write(dir, *tv, c.Formats)
}

// Run processes the workloads with up to --workers tasks at a time. A task
// that fails or panics skips its workload and the run continues. Outcomes
// keep the workload order regardless of completion order.
func (c *Command) Run(ctx context.Context, workloads []workload.Workload, task Task) *Summary {
	summary := &Summary{Command: c.Name, Outcomes: make([]Outcome, len(workloads))}
	failures := make([]*Skipped, len(workloads))
	bar := progress.NewBar(len(workloads), "Workloads", progress.IsTerminal() && !c.AppContext.Debug)
	p := pool.New().WithMaxGoroutines(max(c.AppContext.Workers, 1))
	for i, wl := range workloads {
		p.Go(func() {
			defer bar.Add()
			outcome, err := runTask(ctx, wl, task)
			if err != nil {
				s := SkippedFromError(wl.Name(), err)
				failures[i] = &s
				slog.Error("workload skipped", slog.String("workload", wl.Name()), slog.String("error", err.Error()))
				return
			}
			summary.Outcomes[i] = outcome
		})
	}
	p.Wait()
	bar.Finish()
	for i := range workloads {
		c.Metrics.observeWorkload(failures[i] != nil)
		if failures[i] != nil {
			summary.Skipped = append(summary.Skipped, *failures[i])
			continue
		}
		summary.Processed++
		summary.Files = append(summary.Files, summary.Outcomes[i].Files...)
		summary.Skipped = append(summary.Skipped, summary.Outcomes[i].Skipped...)
	}
	return summary
}

func runTask(ctx context.Context, wl workload.Workload, task Task) (outcome Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("workload task panicked", slog.String("workload", wl.Name()), slog.String("stack", string(debug.Stack())))
			err = fmt.Errorf("internal error: %v", r)
		}
	}()
	if err = ctx.Err(); err != nil {
		return
	}
	return task(ctx, wl)
}

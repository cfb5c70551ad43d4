// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package workflow

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfagg/internal/app"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
	"perfagg/internal/workload"
)

func newTestCommand(t *testing.T, appContext app.Context) *Command {
	root := &cobra.Command{Use: "perfagg"}
	cmd := &cobra.Command{Use: "slowdown"}
	root.AddCommand(cmd)
	root.SetContext(context.WithValue(context.Background(), app.Context{}, appContext))
	c, err := NewCommand(cmd)
	require.NoError(t, err)
	return c
}

func workloads(names ...string) []workload.Workload {
	var wls []workload.Workload
	for _, n := range names {
		wls = append(wls, workload.Workload{Apps: strings.Split(n, "-")})
	}
	return wls
}

func TestRunIsolatesWorkloads(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			c := newTestCommand(t, app.Context{Workers: workers})
			var calls atomic.Int32
			summary := c.Run(context.Background(), workloads("A-B", "C-D", "E-F", "G-H"), func(ctx context.Context, wl workload.Workload) (Outcome, error) {
				calls.Add(1)
				switch wl.Name() {
				case "C-D":
					return Outcome{}, &sample.MissingInputError{Workload: wl.Name(), Kind: "fin", Location: "/in"}
				case "E-F":
					panic("boom")
				}
				// finish out of order
				if wl.Name() == "A-B" {
					time.Sleep(10 * time.Millisecond)
				}
				row := stats.NewCompositeRow(wl.Name(), "")
				row.Set("STP", stats.Exact(1))
				return Outcome{
					Files:   []string{wl.Name() + ".csv"},
					Rows:    []stats.CompositeRow{row},
					Skipped: []Skipped{{Workload: wl.Name(), Item: "0_x", Reason: "division by zero"}},
				}, nil
			})
			assert.EqualValues(t, 4, calls.Load())
			assert.Equal(t, 2, summary.Processed)
			assert.Equal(t, []string{"A-B.csv", "G-H.csv"}, summary.Files)
			rows := summary.Rows()
			require.Len(t, rows, 2)
			assert.Equal(t, "A-B", rows[0].Workload)
			assert.Equal(t, "G-H", rows[1].Workload)
			require.Len(t, summary.Skipped, 4)
			assert.Equal(t, "A-B", summary.Skipped[0].Workload)
			assert.Equal(t, Skipped{Workload: "C-D", Item: "fin", Reason: "no 'fin' data for C-D in /in"}, summary.Skipped[1])
			assert.Equal(t, "E-F", summary.Skipped[2].Workload)
			assert.Contains(t, summary.Skipped[2].Reason, "boom")
		})
	}
}

func TestRunCanceled(t *testing.T) {
	c := newTestCommand(t, app.Context{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	summary := c.Run(ctx, workloads("A-B"), func(ctx context.Context, wl workload.Workload) (Outcome, error) {
		calls.Add(1)
		return Outcome{}, nil
	})
	assert.Zero(t, calls.Load())
	assert.Equal(t, 0, summary.Processed)
	require.Len(t, summary.Skipped, 1)
	assert.Equal(t, context.Canceled.Error(), summary.Skipped[0].Reason)
}

func TestSkippedFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		item string
	}{
		{name: "missing", err: &sample.MissingInputError{Workload: "A", Kind: "tot"}, item: "tot"},
		{name: "malformed", err: fmt.Errorf("read: %w", &sample.MalformedInputError{Path: "x.csv", Err: errors.New("bad")}), item: "x.csv"},
		{name: "division", err: &stats.DivisionByZeroError{Metric: "ANTT", Operand: "slowdown"}, item: "ANTT"},
		{name: "other", err: errors.New("other")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := SkippedFromError("A-B", tt.err)
			assert.Equal(t, tt.item, s.Item)
			assert.Equal(t, tt.err.Error(), s.Reason)
		})
	}
	assert.Equal(t, "A-B: boom", Skipped{Workload: "A-B", Reason: "boom"}.String())
}

func TestFinish(t *testing.T) {
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "perfagg.prom")
	c := newTestCommand(t, app.Context{Workers: 1, MetricsFile: metricsFile, Database: "sqlite3:" + filepath.Join(dir, "out.db")})
	summary := c.Run(context.Background(), workloads("A-B", "C-D"), func(ctx context.Context, wl workload.Workload) (Outcome, error) {
		if wl.Name() == "C-D" {
			return Outcome{}, errors.New("no data")
		}
		c.Metrics.ObserveLoad(&sample.LoadResult{Files: make([]sample.RepetitionFile, 3)})
		row := stats.NewCompositeRow(wl.Name(), "np")
		row.Set("STP", stats.Interval{Mean: 1.8, CI: 0.2, N: 6})
		return Outcome{Rows: []stats.CompositeRow{row}}, nil
	})
	require.NoError(t, c.Finish(context.Background(), summary, summary.Rows()))
	data, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `perfagg_workloads_processed_total{command="slowdown"} 1`)
	assert.Contains(t, text, `perfagg_workloads_skipped_total{command="slowdown"} 1`)
	assert.Contains(t, text, `perfagg_files_read_total{command="slowdown"} 3`)
	assert.Contains(t, text, `perfagg_files_rejected_total{command="slowdown"} 0`)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	PrintSummary(&buf, &Summary{
		Files:     []string{"out/A-B.csv"},
		Skipped:   []Skipped{{Workload: "C-D", Item: "fin", Reason: "missing"}},
		Processed: 1234,
	})
	out := buf.String()
	assert.Contains(t, out, "Files written (1):\n  out/A-B.csv\n")
	assert.Contains(t, out, "Workloads processed: 1,234, skipped items: 1\n")
	assert.Contains(t, out, "  C-D: fin: missing\n")
	assert.NotContains(t, out, "single repetition")

	row := stats.NewCompositeRow("A-B", "npTotal")
	row.Set("STP", stats.Interval{Mean: 1.5, CI: 0.1, N: 6})
	row.Set("ANTT", stats.Interval{Mean: 2, N: 1, Flagged: true})
	buf.Reset()
	PrintSummary(&buf, &Summary{Outcomes: []Outcome{{Rows: []stats.CompositeRow{row}}}, Processed: 1})
	assert.Contains(t, buf.String(), "Values from a single repetition, interval not meaningful (1):\n  A-B/npTotal: ANTT\n")
}

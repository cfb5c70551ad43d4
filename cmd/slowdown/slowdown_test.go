package slowdown

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfagg/internal/common"
	"perfagg/internal/metric"
	"perfagg/internal/sample"
	"perfagg/internal/workflow"
	"perfagg/internal/workload"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func readCell(t *testing.T, path string, row int, column string) float64 {
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	tbl, err := sample.ParseTable(path, f)
	require.NoError(t, err)
	i := tbl.Column(column)
	require.GreaterOrEqual(t, i, 0, column)
	v, err := strconv.ParseFloat(tbl.Records[row][i], 64)
	require.NoError(t, err)
	return v
}

func TestSlowdownTable(t *testing.T) {
	in := t.TempDir()
	writeFiles(t, in, map[string]string{
		"npTotal/outputFilesMean/A-B-fin.csv": "app,ipnc:mean,ipnc:std,ipnc:n,ev0:mean,ev0:std,ev0:n\n" +
			"0_A,1,0.1,3,100,10,3\n" +
			"1_B,0.5,0.05,3,50,5,3\n",
		"indiv/A-fin.csv": "app,ipnc:mean,ipnc:std,ipnc:n\n00_A,2,0.2,3\n",
		"indiv/B-fin.csv": "app,ipnc:mean,ipnc:std,ipnc:n\n00_B,1,0.1,3\n",
	})
	tableFlags.OutputDir = t.TempDir()
	src, err := sample.NewLocalSource(in)
	require.NoError(t, err)
	defer src.Close()
	c, err := workflow.NewCommand(&cobra.Command{Use: cmdName})
	require.NoError(t, err)
	ds, err := c.Derivations(metric.IPC, metric.Hits, metric.Progress, metric.Slowdown)
	require.NoError(t, err)
	cfg := common.Configuration{Policy: "np", DataCollection: "Total"}

	outcome, err := slowdownTable(context.Background(), c, src, c.Individuals(src, "indiv"), workload.Workload{Apps: []string{"A", "B"}}, cfg, ds)
	require.NoError(t, err)
	assert.Empty(t, outcome.Skipped)
	require.Len(t, outcome.Rows, 1)
	row := outcome.Rows[0]
	assert.Equal(t, "npTotal", row.Label)

	// each progress is 0.5 with a relative error of sqrt(2)*0.1 over 3+3 repetitions
	progressCI := 1.96 * 0.5 * math.Sqrt2 * 0.1 / math.Sqrt(6)
	file := filepath.Join(tableFlags.OutputDir, "npTotal", "slowdown-table-A-B-fin.csv")
	require.FileExists(t, file)
	for i := range 2 {
		assert.InDelta(t, 0.5, readCell(t, file, i, "progress:mean"), 1e-9)
		assert.InDelta(t, progressCI, readCell(t, file, i, "progress:ci"), 1e-6)
	}

	tests := []struct {
		column string
		mean   float64
		ci     float64
	}{
		{column: colSTP, mean: 1, ci: math.Sqrt2 * progressCI},
		{column: colANTT, mean: 2, ci: 1.96 * 0.2 / math.Sqrt(6)},
		{column: colUnfairness, mean: 0},
		{column: "IPC", mean: 1.5, ci: 1.96 * math.Hypot(0.1, 0.05) / math.Sqrt(3)},
		{column: "hitsL3", mean: 150},
	}
	for _, tt := range tests {
		t.Run(tt.column, func(t *testing.T) {
			v, ok := row.Get(tt.column)
			require.True(t, ok)
			assert.InDelta(t, tt.mean, v.Mean, 1e-9)
			if tt.ci != 0 {
				assert.InDelta(t, tt.ci, v.CI, 1e-6)
			}
			assert.False(t, v.Flagged)
		})
	}
}

func TestSlowdownTableWithoutIndividuals(t *testing.T) {
	in := t.TempDir()
	writeFiles(t, in, map[string]string{
		"npTotal/outputFilesMean/A-B-fin.csv": "app,ipnc:mean,ipnc:std,ipnc:n\n0_A,1,0.1,3\n1_B,0.5,0.05,3\n",
	})
	tableFlags.OutputDir = t.TempDir()
	src, err := sample.NewLocalSource(in)
	require.NoError(t, err)
	defer src.Close()
	c, err := workflow.NewCommand(&cobra.Command{Use: cmdName})
	require.NoError(t, err)
	ds, err := c.Derivations(metric.IPC, metric.Hits, metric.Progress, metric.Slowdown)
	require.NoError(t, err)

	outcome, err := slowdownTable(context.Background(), c, src, c.Individuals(src, "indiv"), workload.Workload{Apps: []string{"A", "B"}}, common.Configuration{Policy: "np", DataCollection: "Total"}, ds)
	assert.Error(t, err)
	assert.Len(t, outcome.Skipped, 2)
}

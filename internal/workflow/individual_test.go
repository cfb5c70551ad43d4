// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package workflow

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfagg/internal/app"
	"perfagg/internal/config"
	"perfagg/internal/metric"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
)

// individualSource writes individual-run tables, name to content, under
// <root>/indiv and returns a source on root.
func individualSource(t *testing.T, tables map[string]string) sample.Source {
	root := t.TempDir()
	dir := filepath.Join(root, "indiv")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range tables {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name+"-fin.csv"), []byte(content), 0o644))
	}
	src, err := sample.NewLocalSource(root)
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })
	return src
}

func TestIndividualsLookup(t *testing.T) {
	src := individualSource(t, map[string]string{
		"mcf": "app,ipnc:mean,ipnc:std,ipnc:n\n" +
			"00_mcf,2,0.1,3\n" +
			"00_mcf_ref,4,0.2,3\n",
		"lbm": "app,ipnc:mean,ipnc:std,ipnc:n\n" +
			"07_something_else,1.5,0.05,3\n",
		"gcc": "app,ipnc:mean,ipnc:std,ipnc:n\n" +
			"00_gcc_a,1,0.1,3\n" +
			"00_gcc_b,2,0.1,3\n",
	})
	ind := &Individuals{Source: src, Dir: "indiv", DefaultN: 1}
	tests := []struct {
		name    string
		app     string
		want    float64
		wantErr bool
	}{
		{name: "individual key of the core-qualified name", app: "3_mcf", want: 2},
		{name: "full name selects its row", app: "1_mcf_ref", want: 4},
		{name: "single row used regardless of key", app: "2_lbm", want: 1.5},
		{name: "no matching row among several", app: "0_gcc_c", wantErr: true},
		{name: "no individual table", app: "0_xz", wantErr: true},
		{name: "malformed application key", app: "mcf", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ind.Lookup(context.Background(), tt.app)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got["ipnc"].Mean)
			assert.Equal(t, 3, got["ipnc"].N)
		})
	}
}

func TestIndividualsMerge(t *testing.T) {
	src := individualSource(t, map[string]string{
		"mcf": "app,ipnc:mean,ipnc:std,ipnc:n\n00_mcf,2,0.1,3\n",
	})
	ind := &Individuals{Source: src, Dir: "indiv", DefaultN: 1}
	in := &stats.AggregatedTable{
		Metrics: []string{"ipnc"},
		Rows: []stats.AggregatedRow{
			{App: "0_mcf", Metrics: map[string]stats.Estimate{"ipnc": {Mean: 1, Std: 0.1, N: 3}}},
			{App: "1_xz", Metrics: map[string]stats.Estimate{"ipnc": {Mean: 1, Std: 0.1, N: 3}}},
		},
	}
	out, skipped := ind.Merge(context.Background(), "mcf-xz", in)
	require.Len(t, out.Rows, 1)
	assert.Equal(t, "0_mcf", out.Rows[0].App)
	assert.Equal(t, 2.0, out.Rows[0].Metrics[metric.IndividualPrefix+"ipnc"].Mean)
	assert.Equal(t, 1.0, out.Rows[0].Metrics["ipnc"].Mean)
	_, leaked := in.Rows[0].Metrics[metric.IndividualPrefix+"ipnc"]
	assert.False(t, leaked, "input rows are not modified")
	require.Len(t, skipped, 1)
	assert.Equal(t, "mcf-xz", skipped[0].Workload)
	assert.Equal(t, "1_xz", skipped[0].Item)
}

func TestExtendAddsCustomMetrics(t *testing.T) {
	c := newTestCommand(t, app.Context{Workers: 1})
	cfg, err := config.Parse([]byte(`metrics:
  - kind: ratio
    name: ipnc_per_ipc
    numerator: ipnc
    denominator: IPC
  - kind: expression
    name: double
    expression: ipnc_per_ipc * 2
`))
	require.NoError(t, err)
	c.Config = cfg

	t1 := &stats.AggregatedTable{
		Metrics: []string{"ipnc"},
		Rows: []stats.AggregatedRow{
			{App: "0_A", Metrics: map[string]stats.Estimate{"ipnc": {Mean: 3, Std: 0.1, N: 3}}},
			{App: "1_B", Metrics: map[string]stats.Estimate{"ipnc": {Mean: 1, Std: 0.1, N: 3}}},
		},
	}
	derived := &stats.DerivedTable{
		Metrics: []string{"IPC"},
		Rows: []stats.DerivedRow{
			{App: "0_A", Metrics: map[string]stats.Estimate{"IPC": {Mean: 1.5, Std: 0.1, N: 3}}},
			{App: "1_B", Metrics: map[string]stats.Estimate{"IPC": {Mean: 0, Std: 0, N: 3}}},
		},
	}
	skipped := c.Extend("A-B", t1, derived)
	assert.Equal(t, []string{"IPC", "ipnc_per_ipc", "double"}, derived.Metrics)
	assert.InDelta(t, 2.0, derived.Rows[0].Metrics["ipnc_per_ipc"].Mean, 1e-12)
	assert.InDelta(t, 4.0, derived.Rows[0].Metrics["double"].Mean, 1e-12)

	// failures are reported, never recorded as row failures
	assert.False(t, derived.Rows[1].Failed())
	assert.Len(t, derived.Complete(), 2)
	_, ok := derived.Rows[1].Metrics["ipnc_per_ipc"]
	assert.False(t, ok)
	require.NotEmpty(t, skipped)
	assert.Equal(t, "A-B", skipped[0].Workload)
	assert.Contains(t, skipped[0].Reason, "ipnc_per_ipc")

	// without custom metrics the table is unchanged
	c.Config = config.Default()
	plain := &stats.DerivedTable{Metrics: []string{"IPC"}, Rows: []stats.DerivedRow{{App: "0_A", Metrics: map[string]stats.Estimate{}}}}
	assert.Empty(t, c.Extend("A-B", t1, plain))
	assert.Equal(t, []string{"IPC"}, plain.Metrics)
}

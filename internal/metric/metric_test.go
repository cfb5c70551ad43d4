package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfagg/internal/app"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
)

var row = map[string]stats.Estimate{
	"instructions":                  {Mean: 1000, Std: 10, N: 3},
	"cycles":                        {Mean: 500, Std: 5, N: 3},
	"ev0":                           {Mean: 200, Std: 4, N: 3},
	"ev1":                           {Mean: 50, Std: 2, N: 3},
	"l3_kbytes_occ":                 {Mean: 2048, Std: 20, N: 3},
	"ipnc":                          {Mean: 0.8, Std: 0.02, N: 3},
	IndividualPrefix + "ipnc":       {Mean: 1.0, Std: 0.01, N: 3},
	"zero":                          {Mean: 0, Std: 0, N: 3},
	"MEM_LOAD_UOPS_RETIRED.L3_MISS": {Mean: 50, Std: 2, N: 3},
}

func TestBuiltins(t *testing.T) {
	cols := DefaultColumns()
	tests := []struct {
		name   string
		column string
		mean   float64
		relErr float64
		n      int
	}{
		{name: MPKI, column: "MPKIL3", mean: 50, relErr: math.Hypot(0.04, 0.01), n: 3},
		{name: IPC, column: "IPC", mean: 0.8, relErr: 0.025, n: 3},
		{name: IPCCycles, column: "ipc", mean: 2, relErr: math.Hypot(0.01, 0.01), n: 3},
		{name: Hits, column: "hitsL3", mean: 200, relErr: 0.02, n: 3},
		{name: HitsPerStorage, column: "hits/storage", mean: 200.0 / 2048, relErr: math.Hypot(0.02, 20.0/2048), n: 6},
		{name: OccupancyMB, column: "l3_Mbytes_occ", mean: 2, relErr: 20.0 / 2048, n: 3},
		{name: Progress, column: "progress", mean: 0.8, relErr: math.Hypot(0.025, 0.01), n: 6},
		{name: Slowdown, column: "slowdown", mean: 1.25, relErr: math.Hypot(0.025, 0.01), n: 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Builtin(tt.name, cols)
			require.NoError(t, err)
			assert.Equal(t, tt.column, d.Name())
			e, err := d.Derive(row)
			require.NoError(t, err)
			assert.InDelta(t, tt.mean, e.Mean, 1e-9)
			assert.InDelta(t, tt.relErr, e.RelErr(), 1e-9)
			assert.Equal(t, tt.n, e.N)
		})
	}
	_, err := Builtin("nope", cols)
	assert.Error(t, err)
}

func TestBuiltinErrors(t *testing.T) {
	d := Ratio{As: "r", Numerator: "ev0", Denominator: "zero"}
	_, err := d.Derive(row)
	var dz *stats.DivisionByZeroError
	require.ErrorAs(t, err, &dz)
	assert.Equal(t, "r", dz.Metric)
	assert.Equal(t, "zero", dz.Operand)

	_, err = Rate{As: "m", Events: "missing", Instructions: "instructions"}.Derive(row)
	var missing *MissingMetricError
	require.ErrorAs(t, err, &missing)
	assert.Equal(t, "missing", missing.Operand)
}

func TestColumnsOverride(t *testing.T) {
	cols := DefaultColumns()
	require.NoError(t, cols.Override(map[string]string{"l3_miss": "MEM_LOAD_UOPS_RETIRED.L3_MISS"}))
	assert.Equal(t, "MEM_LOAD_UOPS_RETIRED.L3_MISS", cols.L3Misses)
	d, err := Builtin(MPKI, cols)
	require.NoError(t, err)
	e, err := d.Derive(row)
	require.NoError(t, err)
	assert.InDelta(t, 50.0, e.Mean, 1e-9)

	assert.Error(t, cols.Override(map[string]string{"l4_miss": "x"}))
	assert.Error(t, cols.Override(map[string]string{"l3_miss": " "}))
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		def     map[string]any
		wantErr bool
		mean    float64
	}{
		{name: "rate", def: map[string]any{"kind": "rate", "name": "hpki", "events": "ev0", "instructions": "instructions"}, mean: 200},
		{name: "ratio independent", def: map[string]any{"kind": "ratio", "name": "r", "numerator": "ev0", "denominator": "ev1", "pairing": "independent"}, mean: 4},
		{name: "scale with int factor", def: map[string]any{"kind": "scale", "name": "s", "source": "ev1", "factor": 2}, mean: 100},
		{name: "column", def: map[string]any{"kind": "column", "name": "c", "source": "cycles"}, mean: 500},
		{name: "expression", def: map[string]any{"kind": "expression", "name": "e", "expression": "ev1 / (instructions / 1000)"}, mean: 50},
		{name: "product", def: map[string]any{"kind": "product", "name": "p", "left": "ipnc", "right": "cycles"}, mean: 400},
		{name: "product bad pairing", def: map[string]any{"kind": "product", "name": "p", "left": "ipnc", "right": "cycles", "pairing": "x"}, wantErr: true},
		{name: "unknown kind", def: map[string]any{"kind": "sum", "name": "x"}, wantErr: true},
		{name: "missing kind", def: map[string]any{"name": "x"}, wantErr: true},
		{name: "missing operand", def: map[string]any{"kind": "ratio", "name": "r", "numerator": "ev0"}, wantErr: true},
		{name: "bad pairing", def: map[string]any{"kind": "ratio", "name": "r", "numerator": "a", "denominator": "b", "pairing": "both"}, wantErr: true},
		{name: "zero factor", def: map[string]any{"kind": "scale", "name": "s", "source": "ev1"}, wantErr: true},
		{name: "bad expression", def: map[string]any{"kind": "expression", "name": "e", "expression": "ev1 / ("}, wantErr: true},
		{name: "wrong field type", def: map[string]any{"kind": "scale", "name": "s", "source": "ev1", "factor": "two"}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Decode(tt.def)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			e, err := d.Derive(row)
			require.NoError(t, err)
			assert.InDelta(t, tt.mean, e.Mean, 1e-9)
		})
	}
	assert.Equal(t, []string{"column", "expression", "product", "rate", "ratio", "scale"}, Kinds())
}

func TestExpressionMatchesRatioRule(t *testing.T) {
	expr, err := NewExpression("mpki", "ev1 / (instructions / 1000)")
	require.NoError(t, err)
	assert.Equal(t, []string{"ev1", "instructions"}, expr.Vars())
	got, err := expr.Derive(row)
	require.NoError(t, err)
	want, err := stats.Rate(row["ev1"], row["instructions"])
	require.NoError(t, err)
	assert.InDelta(t, want.Mean, got.Mean, 1e-9)
	assert.InDelta(t, want.Std, got.Std, 1e-6)
	assert.Equal(t, 3, got.N)
}

func TestExpressionErrors(t *testing.T) {
	expr, err := NewExpression("e", "ev0 / zero")
	require.NoError(t, err)
	_, err = expr.Derive(row)
	assert.True(t, errors.Is(err, stats.ErrDivisionByZero))

	expr, err = NewExpression("e", "max(ev0, [MEM_LOAD_UOPS_RETIRED.L3_MISS]) + ev0 - ev0")
	require.NoError(t, err)
	assert.Len(t, expr.Vars(), 2)
	e, err := expr.Derive(row)
	require.NoError(t, err)
	assert.InDelta(t, 200.0, e.Mean, 1e-9)

	expr, err = NewExpression("e", "unknown * 2")
	require.NoError(t, err)
	_, err = expr.Derive(row)
	var missing *MissingMetricError
	assert.ErrorAs(t, err, &missing)

	_, err = NewExpression("e", "1 + 2")
	assert.Error(t, err)
}

func TestExpressionAbs(t *testing.T) {
	expr, err := NewExpression("rel_err", "abs(ev1 - ev0) / ev0")
	require.NoError(t, err)
	e, err := expr.Derive(row)
	require.NoError(t, err)
	assert.InDelta(t, 0.75, e.Mean, 1e-9)
	assert.Greater(t, e.Std, 0.0)
}

func TestParseSelectors(t *testing.T) {
	selectors, err := ParseSelectors(app.FlagFunctionsName, []string{"ipc", "hitsOccup", "ipc"})
	require.NoError(t, err)
	assert.Equal(t, []Selector{SelectIPC, SelectHitsPerOccupancy}, selectors)
	assert.Equal(t, "hitsperOccupL3", selectors[1].Tag())
	assert.Equal(t, "hitsperOccupL3(KB)", selectors[1].Column())

	_, err = ParseSelectors(app.FlagFunctionsName, []string{"ipcTables"})
	var cfgErr *app.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "ipcTables", cfgErr.Value)
}

func TestSelectorValues(t *testing.T) {
	cols := DefaultColumns()
	r := sample.RawRow{Values: map[string]float64{"ipnc": 1.2, "ev0": 300, "l3_kbytes_occ": 150}}
	assert.Equal(t, 1.2, SelectIPC.Value(r, cols))
	assert.Equal(t, 300.0, SelectHits.Value(r, cols))
	assert.Equal(t, 2.0, SelectHitsPerOccupancy.Value(r, cols))
	assert.Equal(t, 150.0, SelectOccupancy.Value(r, cols))
	assert.True(t, math.IsNaN(SelectIPC.Value(sample.RawRow{}, cols)))
}

func TestHitsPerStorageInterval(t *testing.T) {
	d, err := Builtin(HitsPerStorage, DefaultColumns())
	require.NoError(t, err)
	e, err := d.Derive(map[string]stats.Estimate{
		"ev0":           {Mean: 1000, Std: 30, N: 3},
		"l3_kbytes_occ": {Mean: 2000, Std: 40, N: 3},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, e.N)
	iv := stats.DefaultConfidence().Interval(e)
	// 1.96 * 0.5 * sqrt(0.03^2 + 0.02^2) / sqrt(6)
	assert.InDelta(t, 0.5, iv.Mean, 1e-9)
	assert.InDelta(t, 0.0144252, iv.CI, 1e-6)
	assert.False(t, iv.Flagged)
}

func TestFlaggedOperandsPropagate(t *testing.T) {
	single := map[string]stats.Estimate{
		"ipnc":                    {Mean: 0.8, Std: 0, N: 1, Flagged: true},
		IndividualPrefix + "ipnc": {Mean: 1.0, Std: 0.05, N: 3},
		"ev0":                     {Mean: 200, Std: 4, N: 3},
		"instructions":            {Mean: 1000, Std: 10, N: 3},
	}
	progress, err := Builtin(Progress, DefaultColumns())
	require.NoError(t, err)
	expr, err := NewExpression("ratio", "ipnc / [indiv.ipnc]")
	require.NoError(t, err)
	rate, err := Builtin(MPKI, DefaultColumns())
	require.NoError(t, err)

	tests := []struct {
		name    string
		d       stats.Derivation
		metrics map[string]stats.Estimate
		flagged bool
	}{
		{name: "ratio of single repetition", d: progress, metrics: single, flagged: true},
		{name: "expression of single repetition", d: expr, metrics: single, flagged: true},
		{name: "scale keeps flag", d: Scale{As: "s", Source: "ipnc", Factor: 2}, metrics: single, flagged: true},
		{name: "repeated operands", d: rate, metrics: map[string]stats.Estimate{"ev1": {Mean: 50, Std: 2, N: 3}, "instructions": {Mean: 1000, Std: 10, N: 3}}, flagged: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := tt.d.Derive(tt.metrics)
			require.NoError(t, err)
			assert.Equal(t, tt.flagged, e.Flagged)
			assert.Equal(t, tt.flagged, stats.DefaultConfidence().Interval(e).Flagged)
		})
	}
}

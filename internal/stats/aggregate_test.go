package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfagg/internal/sample"
)

func raw(rep int, interval, app string, values map[string]float64) sample.RawRow {
	return sample.RawRow{Repetition: rep, Interval: interval, App: app, Values: values}
}

func TestAggregateMeanAndSampleStd(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		mean   float64
		std    float64
	}{
		{name: "two values", values: []float64{1, 3}, mean: 2, std: math.Sqrt2},
		{name: "three values", values: []float64{990, 1000, 1010}, mean: 1000, std: 10},
		{name: "constant", values: []float64{5, 5, 5, 5}, mean: 5, std: 0},
		{name: "five values", values: []float64{2, 4, 4, 4, 5}, mean: 3.8, std: math.Sqrt(1.2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows []sample.RawRow
			for rep, v := range tt.values {
				rows = append(rows, raw(rep, "", "0_A", map[string]float64{"ipnc": v}))
			}
			table, st := Aggregate(rows, []sample.KeyColumn{sample.KeyApp}, []string{"ipnc"})
			require.Len(t, table.Rows, 1)
			e := table.Rows[0].Metrics["ipnc"]
			assert.InEpsilon(t, tt.mean, e.Mean, 1e-9)
			assert.InDelta(t, tt.std, e.Std, 1e-9*math.Max(1, tt.std))
			assert.Equal(t, len(tt.values), e.N)
			assert.Equal(t, 0, st.SingleRepetitionGroups)
		})
	}
}

func TestAggregateExcludesNonFinite(t *testing.T) {
	rows := []sample.RawRow{
		raw(0, "", "0_A", map[string]float64{"ev0": 1}),
		raw(1, "", "0_A", map[string]float64{"ev0": math.NaN()}),
		raw(2, "", "0_A", map[string]float64{"ev0": 3}),
		raw(3, "", "0_A", map[string]float64{"ev0": math.Inf(1)}),
	}
	table, st := Aggregate(rows, []sample.KeyColumn{sample.KeyApp}, []string{"ev0"})
	e := table.Rows[0].Metrics["ev0"]
	assert.Equal(t, 2.0, e.Mean)
	assert.Equal(t, 2, e.N)
	assert.Equal(t, 2, st.ExcludedValues)
}

func TestAggregateSingleRepetition(t *testing.T) {
	rows := []sample.RawRow{
		raw(0, "", "0_A", map[string]float64{"ipnc": 1.5}),
		raw(0, "", "1_B", map[string]float64{"ipnc": math.NaN()}),
	}
	table, st := Aggregate(rows, []sample.KeyColumn{sample.KeyApp}, []string{"ipnc"})
	require.Len(t, table.Rows, 2)
	assert.Equal(t, Estimate{Mean: 1.5, Std: 0, N: 1, Flagged: true}, table.Rows[0].Metrics["ipnc"])
	missing := table.Rows[1].Metrics["ipnc"]
	assert.True(t, math.IsNaN(missing.Mean))
	assert.Equal(t, 0, missing.N)
	assert.Equal(t, 2, st.SingleRepetitionGroups)
}

func TestAggregateOrdering(t *testing.T) {
	var rows []sample.RawRow
	for rep := range 2 {
		for _, interval := range []string{"10", "2", "1"} {
			for _, app := range []string{"1_lbm", "0_mcf"} {
				rows = append(rows, raw(rep, interval, app, map[string]float64{"interval": 0, "ipnc": float64(rep)}))
			}
		}
	}
	keys := []sample.KeyColumn{sample.KeyInterval, sample.KeyApp}
	table, st := Aggregate(rows, keys, []string{"interval", "ipnc"})
	assert.Equal(t, 6, st.Groups)
	assert.Equal(t, []string{"ipnc"}, table.Metrics, "key columns are not metrics")
	var got []string
	for _, r := range table.Rows {
		got = append(got, r.KeyString(keys))
	}
	assert.Equal(t, []string{"1/0_mcf", "1/1_lbm", "2/0_mcf", "2/1_lbm", "10/0_mcf", "10/1_lbm"}, got)
	assert.Equal(t, []string{"1", "2", "10"}, table.Distinct(sample.KeyInterval))
	assert.Len(t, table.Select(sample.KeyApp, "0_mcf"), 3)
}

func TestCompareKeys(t *testing.T) {
	assert.Equal(t, -1, CompareKeys("2", "10"))
	assert.Equal(t, 1, CompareKeys("b", "a"))
	assert.Equal(t, -1, CompareKeys("10", "a"))
	assert.Equal(t, 0, CompareKeys("1.0", "1"))
}

func TestAggregateIdempotent(t *testing.T) {
	rows := []sample.RawRow{
		raw(0, "", "0_A", map[string]float64{"x": 0.1}),
		raw(1, "", "0_A", map[string]float64{"x": 0.2}),
		raw(2, "", "0_A", map[string]float64{"x": 0.3}),
	}
	a, _ := Aggregate(rows, []sample.KeyColumn{sample.KeyApp}, []string{"x"})
	b, _ := Aggregate(rows, []sample.KeyColumn{sample.KeyApp}, []string{"x"})
	assert.Equal(t, a, b)
}

func TestReadAggregated(t *testing.T) {
	input := "app,ipnc:mean,ipnc:std,ipnc:n,ev0:mean,ev0:std\n" +
		"0_A,1.5,0.1,3,100,\n" +
		"1_B,,,,200,20\n"
	table, err := sample.ParseTable("A-B-fin.csv", strings.NewReader(input))
	require.NoError(t, err)
	agg, err := ReadAggregated(table, 4)
	require.NoError(t, err)
	assert.Equal(t, []sample.KeyColumn{sample.KeyApp}, agg.Keys)
	assert.Equal(t, []string{"ipnc", "ev0"}, agg.Metrics)
	require.Len(t, agg.Rows, 2)
	assert.Equal(t, Estimate{Mean: 1.5, Std: 0.1, N: 3}, agg.Rows[0].Metrics["ipnc"])
	ev0 := agg.Rows[0].Metrics["ev0"]
	assert.Equal(t, 100.0, ev0.Mean)
	assert.True(t, math.IsNaN(ev0.Std))
	assert.Equal(t, 4, ev0.N, "default repetitions without a count column")
	assert.Equal(t, 0, agg.Rows[1].Metrics["ipnc"].N)
	assert.Equal(t, Estimate{Mean: 200, Std: 20, N: 4}, agg.Rows[1].Metrics["ev0"])
}

func TestReadAggregatedFlagsSingleRepetition(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		defaultN int
		flagged  bool
	}{
		{name: "count of one", input: "app,ipnc:mean,ipnc:std,ipnc:n\n0_A,0.8,0,1\n", defaultN: 3, flagged: true},
		{name: "count of three", input: "app,ipnc:mean,ipnc:std,ipnc:n\n0_A,0.8,0.1,3\n", defaultN: 3, flagged: false},
		{name: "default of one", input: "app,ipnc:mean,ipnc:std\n0_A,0.8,0\n", defaultN: 1, flagged: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := sample.ParseTable("A-fin.csv", strings.NewReader(tt.input))
			require.NoError(t, err)
			agg, err := ReadAggregated(table, tt.defaultN)
			require.NoError(t, err)
			e := agg.Rows[0].Metrics["ipnc"]
			assert.Equal(t, tt.flagged, e.Flagged)
			assert.Equal(t, tt.flagged, DefaultConfidence().Interval(e).Flagged)
		})
	}
}

func TestReadAggregatedErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "no mean columns", input: "app,ipnc\n0_A,1\n"},
		{name: "bad number", input: "app,ipnc:mean\n0_A,x\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := sample.ParseTable("t.csv", strings.NewReader(tt.input))
			require.NoError(t, err)
			_, err = ReadAggregated(table, 3)
			var malformed *sample.MalformedInputError
			assert.ErrorAs(t, err, &malformed)
		})
	}
}

func TestAddAloneMetrics(t *testing.T) {
	rows := []sample.RawRow{
		raw(0, "", "0_A", map[string]float64{"interval": 100}),
		raw(0, "", "1_B", map[string]float64{"interval": 200}),
		raw(1, "", "0_A", map[string]float64{"interval": 100}),
		raw(1, "", "1_B", map[string]float64{"interval": 100}),
	}
	cols := AddAloneMetrics(rows, 100)
	assert.Equal(t, AloneColumns, cols)
	assert.Equal(t, 1.0, rows[0].Values["progress"])
	assert.Equal(t, 0.5, rows[1].Values["progress"])
	assert.Equal(t, 2.0, rows[1].Values["slowdown"])
	assert.Equal(t, 1.5, rows[0].Values["stp"])
	assert.Equal(t, 1.5, rows[1].Values["antt"])
	// std(1, 0.5) / mean(1, 0.5)
	assert.InDelta(t, math.Sqrt(0.125)/0.75, rows[0].Values["unfairness"], 1e-12)
	assert.Equal(t, 2.0, rows[2].Values["stp"])
	assert.Equal(t, 0.0, rows[3].Values["unfairness"])
}

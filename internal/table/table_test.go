// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package table

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfagg/internal/sample"
	"perfagg/internal/stats"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{in: 50, want: "50"},
		{in: 0.1, want: "0.1"},
		{in: -2.5, want: "-2.5"},
		{in: 1e7, want: "10000000"},
		{in: math.NaN(), want: ""},
		{in: math.Inf(1), want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.in))
		})
	}
}

func TestAddRow(t *testing.T) {
	tv := New("t", "a", "b")
	tv.AddRow("1", "2")
	tv.AddRow("3", "4")
	assert.Equal(t, 2, tv.NumRows())
	assert.Equal(t, []string{"3", "4"}, tv.Row(1))
	assert.Equal(t, []string{"a", "b"}, tv.Header())
	assert.NoError(t, Validate(*tv))
	idx, err := GetFieldIndex("b", *tv)
	require.NoError(t, err)
	assert.Equal(t, 1, idx)
	_, err = GetFieldIndex("c", *tv)
	assert.Error(t, err)
	assert.Panics(t, func() { tv.AddRow("5") })

	tv.Fields[0].Values = tv.Fields[0].Values[:1]
	assert.Error(t, Validate(*tv))
	assert.Error(t, Validate(TableValues{}))
}

func TestFromAggregated(t *testing.T) {
	agg := &stats.AggregatedTable{
		Keys:    []sample.KeyColumn{sample.KeyApp, sample.KeyCore},
		Metrics: []string{"ipnc"},
		Rows: []stats.AggregatedRow{
			{App: "0_mcf", Core: "0", Metrics: map[string]stats.Estimate{"ipnc": {Mean: 1.5, Std: 0.25, N: 3}}},
			{App: "1_lbm", Core: "1", Metrics: map[string]stats.Estimate{"ipnc": stats.Missing()}},
		},
	}
	tv := FromAggregated("wl-fin", agg)
	assert.Equal(t, []string{"app", "core", "ipnc:mean", "ipnc:std", "ipnc:n"}, tv.Header())
	assert.Equal(t, []string{"0_mcf", "0", "1.5", "0.25", "3"}, tv.Row(0))
	assert.Equal(t, []string{"1_lbm", "1", "", "", "0"}, tv.Row(1))
}

func TestFromDerived(t *testing.T) {
	derived := &stats.DerivedTable{
		Keys:    []sample.KeyColumn{sample.KeyInterval},
		Metrics: []string{"MPKIL3"},
		Rows: []stats.DerivedRow{
			{Interval: "1", Metrics: map[string]stats.Estimate{"MPKIL3": {Mean: 50, Std: 2, N: 4}}},
			{Interval: "2", Metrics: map[string]stats.Estimate{}, Failures: map[string]error{"MPKIL3": stats.ErrDivisionByZero}},
			{Interval: "3", Metrics: map[string]stats.Estimate{"MPKIL3": {Mean: 40, N: 1, Flagged: true}}},
		},
	}
	tv := FromDerived("x", derived, stats.DefaultConfidence())
	assert.Equal(t, []string{"interval", "MPKIL3:mean", "MPKIL3:ci", "flagged"}, tv.Header())
	assert.Equal(t, "50", tv.Row(0)[1])
	assert.Equal(t, FormatFloat(1.96*2/2), tv.Row(0)[2])
	assert.Equal(t, "", tv.Row(0)[3])
	assert.Equal(t, []string{"2", "", "", ""}, tv.Row(1))
	assert.Equal(t, []string{"3", "40", "0", "MPKIL3"}, tv.Row(2))
}

func TestFromComposites(t *testing.T) {
	row := stats.NewCompositeRow("A-B", "np")
	row.Set("STP", stats.Interval{Mean: 1.5, CI: 0.1})
	row.Set("Tt", stats.Exact(120))
	other := stats.NewCompositeRow("C-D", "np")
	other.Set("STP", stats.Interval{Mean: 1.25, CI: 0.5})
	other.Set("ANTT", stats.Interval{Mean: 2, Flagged: true})

	tv := FromComposites("totals", []stats.CompositeRow{row, other}, CompositeLayout{
		WorkloadColumn: "Workload",
		LabelColumn:    "policy",
		Columns:        []string{"STP", "ANTT"},
		Plain:          []string{"Tt"},
	})
	assert.Equal(t, []string{"Workload", "policy", "STP:mean", "STP:ci", "ANTT:mean", "ANTT:ci", "Tt", "flagged"}, tv.Header())
	assert.Equal(t, []string{"A-B", "np", "1.5", "0.1", "", "", "120", ""}, tv.Row(0))
	assert.Equal(t, []string{"C-D", "np", "1.25", "0.5", "2", "0", "", "ANTT"}, tv.Row(1))

	tv = FromComposites("ordered", []stats.CompositeRow{row}, CompositeLayout{
		Columns: []string{"STP"},
		Plain:   []string{"Tt"},
		Order:   []string{"Tt", "STP"},
	})
	assert.Equal(t, []string{"Tt", "STP:mean", "STP:ci", "flagged"}, tv.Header())

	tv = FromComposites("indexed", []stats.CompositeRow{row}, CompositeLayout{
		WorkloadColumn: "Workload",
		LabelColumn:    "Workload_ID",
		Columns:        []string{"STP"},
		LabelFirst:     true,
	})
	assert.Equal(t, []string{"Workload_ID", "Workload", "STP:mean", "STP:ci", "flagged"}, tv.Header())
	assert.Equal(t, []string{"np", "A-B", "1.5", "0.1", ""}, tv.Row(0))
}

package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"log/slog"
	"math"
	"slices"
	"strconv"
	"strings"

	mstats "github.com/montanaflynn/stats"

	"perfagg/internal/sample"
)

// AggregatedRow holds one estimate per metric for one group key. Key fields
// not part of the table's key are empty.
type AggregatedRow struct {
	Interval string
	App      string
	Core     string
	Metrics  map[string]Estimate
}

// Key returns the value of a key column.
func (r AggregatedRow) Key(col sample.KeyColumn) string {
	switch col {
	case sample.KeyInterval:
		return r.Interval
	case sample.KeyApp:
		return r.App
	case sample.KeyCore:
		return r.Core
	}
	return ""
}

// KeyString joins the values of the given key columns, e.g., "3/0_mcf".
func (r AggregatedRow) KeyString(keys []sample.KeyColumn) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = r.Key(k)
	}
	return strings.Join(parts, "/")
}

// AggregatedTable is the result of grouping repetitions by a key.
type AggregatedTable struct {
	Keys    []sample.KeyColumn
	Metrics []string // output order
	Rows    []AggregatedRow
}

// Select returns the rows with the given value in a key column, in table order.
func (t *AggregatedTable) Select(col sample.KeyColumn, value string) []AggregatedRow {
	var rows []AggregatedRow
	for _, r := range t.Rows {
		if r.Key(col) == value {
			rows = append(rows, r)
		}
	}
	return rows
}

// Distinct returns the values of a key column in table order.
func (t *AggregatedTable) Distinct(col sample.KeyColumn) []string {
	var values []string
	for _, r := range t.Rows {
		if v := r.Key(col); !slices.Contains(values, v) {
			values = append(values, v)
		}
	}
	return values
}

// AggregateStats counts data-quality events of one aggregation.
type AggregateStats struct {
	Groups                 int
	SingleRepetitionGroups int // groups backed by one repetition, std reported as 0
	ExcludedValues         int // non-finite values left out of a statistic
}

// Aggregate groups rows by keys and reduces every metric of each group to
// its mean and sample standard deviation (ddof=1). Non-finite values are
// excluded. A metric observed once gets std 0 and N 1. Metrics that are key
// columns of this grouping are skipped. Rows are sorted by key, numerically
// when both values are numbers.
func Aggregate(rows []sample.RawRow, keys []sample.KeyColumn, metrics []string) (*AggregatedTable, AggregateStats) {
	var st AggregateStats
	table := &AggregatedTable{Keys: keys}
	for _, m := range metrics {
		if !slices.Contains(keys, sample.KeyColumn(m)) {
			table.Metrics = append(table.Metrics, m)
		}
	}
	groups := make(map[string][]sample.RawRow)
	var order []string
	for _, r := range rows {
		k := groupKey(r, keys)
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}
	values := make([]float64, 0, 8)
	for _, k := range order {
		members := groups[k]
		first := members[0]
		row := AggregatedRow{Metrics: make(map[string]Estimate, len(table.Metrics))}
		for _, key := range keys {
			switch key {
			case sample.KeyInterval:
				row.Interval = first.Interval
			case sample.KeyApp:
				row.App = first.App
			case sample.KeyCore:
				row.Core = first.Core
			}
		}
		if len(members) == 1 {
			st.SingleRepetitionGroups++
			slog.Debug("single repetition group", slog.String("key", row.KeyString(keys)))
		}
		for _, m := range table.Metrics {
			values = values[:0]
			for _, r := range members {
				v, ok := r.Values[m]
				if !ok {
					continue
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					st.ExcludedValues++
					continue
				}
				values = append(values, v)
			}
			row.Metrics[m] = estimate(values)
		}
		table.Rows = append(table.Rows, row)
	}
	st.Groups = len(table.Rows)
	SortRows(table.Rows, keys)
	return table, st
}

func estimate(values []float64) Estimate {
	switch len(values) {
	case 0:
		return Missing()
	case 1:
		return Estimate{Mean: values[0], Std: 0, N: 1, Flagged: true}
	}
	mean, err := mstats.Mean(values)
	if err != nil {
		return Missing()
	}
	std, err := mstats.StandardDeviationSample(values)
	if err != nil {
		return Missing()
	}
	return Estimate{Mean: mean, Std: std, N: len(values)}
}

func groupKey(r sample.RawRow, keys []sample.KeyColumn) string {
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = r.Key(k)
	}
	return strings.Join(parts, "\x00")
}

// SortRows orders rows by the key columns in turn.
func SortRows(rows []AggregatedRow, keys []sample.KeyColumn) {
	slices.SortStableFunc(rows, func(a, b AggregatedRow) int {
		for _, k := range keys {
			if c := CompareKeys(a.Key(k), b.Key(k)); c != 0 {
				return c
			}
		}
		return 0
	})
}

// CompareKeys compares two key values numerically when both parse as
// numbers and lexicographically otherwise.
func CompareKeys(a, b string) int {
	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(a, b)
}

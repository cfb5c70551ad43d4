package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"perfagg/internal/sample"
)

// Column suffixes of aggregated and interval tables.
const (
	SuffixMean = ":mean"
	SuffixStd  = ":std"
	SuffixN    = ":n"
	SuffixCI   = ":ci"
)

// ColumnFlagged lists, per row of derived and composite tables, the
// metrics whose interval rests on a single repetition, separated by
// FlaggedSeparator.
const (
	ColumnFlagged    = "flagged"
	FlaggedSeparator = ";"
)

// ParseCell converts a table cell to a number. Empty cells are NaN.
func ParseCell(cell string) (float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return math.NaN(), nil
	}
	return strconv.ParseFloat(cell, 64)
}

// ReadAggregated rebuilds an aggregated table from its CSV form. Key columns
// are the plain interval, app and core columns; every <m>:mean column is a
// metric with optional <m>:std and <m>:n columns. Tables written without
// repetition counts get defaultN for every metric. A metric without a std
// column gets a NaN std. Estimates of a single repetition are flagged and
// the table is reported with a warning.
func ReadAggregated(t sample.Table, defaultN int) (*AggregatedTable, error) {
	table := &AggregatedTable{}
	keyIdx := make(map[sample.KeyColumn]int)
	for _, key := range sample.KeyColumns {
		if i := t.Column(string(key)); i >= 0 {
			table.Keys = append(table.Keys, key)
			keyIdx[key] = i
		}
	}
	type metricColumns struct{ mean, std, n int }
	cols := make(map[string]metricColumns)
	var missingN []string
	for _, h := range t.Header {
		name, ok := strings.CutSuffix(h, SuffixMean)
		if !ok {
			continue
		}
		mc := metricColumns{mean: t.Column(h), std: t.Column(name + SuffixStd), n: t.Column(name + SuffixN)}
		if mc.n < 0 {
			missingN = append(missingN, name)
		}
		table.Metrics = append(table.Metrics, name)
		cols[name] = mc
	}
	if len(table.Metrics) == 0 {
		return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("no %s columns", SuffixMean)}
	}
	if len(missingN) > 0 {
		slog.Warn("aggregated table has no repetition counts, using default",
			slog.String("file", t.Name), slog.Int("repetitions", defaultN), slog.String("metrics", strings.Join(missingN, ",")))
	}
	single := 0
	for line, record := range t.Records {
		row := AggregatedRow{Metrics: make(map[string]Estimate, len(table.Metrics))}
		for key, i := range keyIdx {
			cell := strings.TrimSpace(record[i])
			switch key {
			case sample.KeyInterval:
				row.Interval = cell
			case sample.KeyApp:
				row.App = cell
			case sample.KeyCore:
				row.Core = cell
			}
		}
		for _, name := range table.Metrics {
			mc := cols[name]
			e := Estimate{Std: math.NaN(), N: defaultN}
			var err error
			if e.Mean, err = ParseCell(record[mc.mean]); err != nil {
				return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("row %d, %s: %w", line+2, name, err)}
			}
			if mc.std >= 0 {
				if e.Std, err = ParseCell(record[mc.std]); err != nil {
					return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("row %d, %s: %w", line+2, name+SuffixStd, err)}
				}
			}
			if mc.n >= 0 {
				n, err := ParseCell(record[mc.n])
				if err != nil {
					return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("row %d, %s: %w", line+2, name+SuffixN, err)}
				}
				if math.IsNaN(n) {
					e.N = 0
				} else {
					e.N = int(n)
				}
			}
			if math.IsNaN(e.Mean) {
				e.N = 0
			} else if e.N < 2 {
				e.Flagged = true
				single++
			}
			row.Metrics[name] = e
		}
		table.Rows = append(table.Rows, row)
	}
	if single > 0 {
		slog.Warn("aggregated table has values of a single repetition, their intervals are flagged",
			slog.String("file", t.Name), slog.Int("values", single))
	}
	return table, nil
}

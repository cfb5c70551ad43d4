package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"log/slog"

	"perfagg/internal/sample"
)

// Derivation computes one named metric from the estimates of a row.
type Derivation interface {
	Name() string
	Derive(metrics map[string]Estimate) (Estimate, error)
}

// DerivedRow holds the derived metrics of one aggregated row. Metrics that
// could not be computed are absent from Metrics and present in Failures.
type DerivedRow struct {
	Interval string
	App      string
	Core     string
	Metrics  map[string]Estimate
	Failures map[string]error
}

// Key returns the value of a key column.
func (r DerivedRow) Key(col sample.KeyColumn) string {
	return AggregatedRow{Interval: r.Interval, App: r.App, Core: r.Core}.Key(col)
}

// Failed reports whether any derivation failed for this row.
func (r DerivedRow) Failed() bool {
	return len(r.Failures) > 0
}

// DerivedTable holds derived rows in the order of the aggregated table.
type DerivedTable struct {
	Keys    []sample.KeyColumn
	Metrics []string
	Rows    []DerivedRow
}

// Errors returns every per-row failure in row order.
func (t *DerivedTable) Errors() []error {
	var errs []error
	for _, r := range t.Rows {
		for _, m := range t.Metrics {
			if err, ok := r.Failures[m]; ok {
				errs = append(errs, err)
			}
		}
	}
	return errs
}

// Complete returns the rows where every derivation succeeded.
func (t *DerivedTable) Complete() []DerivedRow {
	var rows []DerivedRow
	for _, r := range t.Rows {
		if !r.Failed() {
			rows = append(rows, r)
		}
	}
	return rows
}

// Derive applies the derivations to every row of an aggregated table.
// Failures are recorded per row and metric; division by zero errors get the
// row key filled in.
func Derive(t *AggregatedTable, derivations []Derivation) *DerivedTable {
	out := &DerivedTable{Keys: t.Keys}
	for _, d := range derivations {
		out.Metrics = append(out.Metrics, d.Name())
	}
	for _, r := range t.Rows {
		row := DerivedRow{
			Interval: r.Interval,
			App:      r.App,
			Core:     r.Core,
			Metrics:  make(map[string]Estimate, len(derivations)),
		}
		for _, d := range derivations {
			e, err := d.Derive(r.Metrics)
			if err != nil {
				var dz *DivisionByZeroError
				if errors.As(err, &dz) && dz.Row == "" {
					dz.Row = r.KeyString(t.Keys)
				}
				if row.Failures == nil {
					row.Failures = make(map[string]error)
				}
				row.Failures[d.Name()] = err
				slog.Warn("derived metric failed", slog.String("metric", d.Name()), slog.String("row", r.KeyString(t.Keys)), slog.String("error", err.Error()))
				continue
			}
			row.Metrics[d.Name()] = e
		}
		out.Rows = append(out.Rows, row)
	}
	return out
}

// Intervals converts one metric of the complete rows into confidence
// intervals, in row order. Rows where any derivation failed are left out so
// that they do not enter per-workload composites.
func (t *DerivedTable) Intervals(conf Confidence, metric string) []Interval {
	var out []Interval
	for _, r := range t.Complete() {
		if e, ok := r.Metrics[metric]; ok {
			out = append(out, conf.Interval(e))
		}
	}
	return out
}

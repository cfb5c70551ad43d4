package workflow

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"sync"

	"perfagg/internal/metric"
	"perfagg/internal/sample"
	"perfagg/internal/stats"
	"perfagg/internal/workload"
)

// Individuals reads the aggregated final tables of applications executed
// alone, <dir>/<name>-fin.csv, and caches them for concurrent workloads.
type Individuals struct {
	Source   sample.Source
	Dir      string
	DefaultN int // repetitions of tables without :n columns

	mu     sync.Mutex
	tables map[string]*stats.AggregatedTable
}

func (ind *Individuals) table(ctx context.Context, name string) (*stats.AggregatedTable, error) {
	file := sample.Join(ind.Dir, name+"-"+sample.KindFinal.String()+".csv")
	ind.mu.Lock()
	defer ind.mu.Unlock()
	if t, ok := ind.tables[file]; ok {
		return t, nil
	}
	raw, err := sample.ReadTable(ctx, ind.Source, file)
	if err != nil {
		return nil, &sample.MissingInputError{Workload: name, Kind: "individual " + sample.KindFinal.String(), Location: ind.Source.Location() + "/" + file, Err: err}
	}
	t, err := stats.ReadAggregated(raw, ind.DefaultN)
	if err != nil {
		return nil, err
	}
	if ind.tables == nil {
		ind.tables = make(map[string]*stats.AggregatedTable)
	}
	ind.tables[file] = t
	slog.Debug("individual table loaded", slog.String("file", file), slog.Int("rows", len(t.Rows)))
	return t, nil
}

// Lookup returns the estimates of an application executed alone. The
// individual table is found by the first word of the application name and
// its row by the individual key, 00_<name>. A table with a single row is
// used regardless of its key.
func (ind *Individuals) Lookup(ctx context.Context, app string) (map[string]stats.Estimate, error) {
	key, err := workload.ParseAppKey(app)
	if err != nil {
		return nil, err
	}
	t, err := ind.table(ctx, key.Base())
	if err != nil {
		return nil, err
	}
	for _, r := range t.Rows {
		if r.App == key.Individual() {
			return r.Metrics, nil
		}
	}
	if len(t.Rows) == 1 {
		return t.Rows[0].Metrics, nil
	}
	return nil, fmt.Errorf("no row %s in individual table of %s", key.Individual(), key.Base())
}

// Merge adds the individual-run estimates of every application of t under
// metric.IndividualPrefix. Rows without individual data are dropped from
// the returned table and reported as skipped.
func (ind *Individuals) Merge(ctx context.Context, wl string, t *stats.AggregatedTable) (*stats.AggregatedTable, []Skipped) {
	out := &stats.AggregatedTable{Keys: t.Keys, Metrics: t.Metrics}
	var skipped []Skipped
	for _, r := range t.Rows {
		alone, err := ind.Lookup(ctx, r.App)
		if err != nil {
			skipped = append(skipped, Skipped{Workload: wl, Item: r.App, Reason: err.Error()})
			slog.Warn("application without individual run", slog.String("workload", wl), slog.String("app", r.App), slog.String("error", err.Error()))
			continue
		}
		merged := r
		merged.Metrics = maps.Clone(r.Metrics)
		for m, e := range alone {
			merged.Metrics[metric.IndividualPrefix+m] = e
		}
		out.Rows = append(out.Rows, merged)
	}
	return out, skipped
}

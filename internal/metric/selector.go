package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"math"
	"strings"

	"perfagg/internal/app"
	"perfagg/internal/sample"
)

// Selector picks one per-interval table of an application.
type Selector int

const (
	SelectIPC Selector = iota
	SelectHits
	SelectHitsPerOccupancy
	SelectOccupancy
)

type selectorDef struct {
	name   string // flag value
	tag    string // output file tag, <app>_<tag><policy>.csv
	column string // output column
	value  func(r sample.RawRow, cols Columns) float64
}

func rawValue(r sample.RawRow, column string) float64 {
	v, ok := r.Values[column]
	if !ok {
		return math.NaN()
	}
	return v
}

var selectorDefs = []selectorDef{
	SelectIPC: {
		name: "ipc", tag: "IPC", column: "IPC",
		value: func(r sample.RawRow, cols Columns) float64 { return rawValue(r, cols.IPC) },
	},
	SelectHits: {
		name: "hits", tag: "hitsL3", column: "hitsL3",
		value: func(r sample.RawRow, cols Columns) float64 { return rawValue(r, cols.L3Hits) },
	},
	SelectHitsPerOccupancy: {
		name: "hitsOccup", tag: "hitsperOccupL3", column: "hitsperOccupL3(KB)",
		value: func(r sample.RawRow, cols Columns) float64 {
			return rawValue(r, cols.L3Hits) / rawValue(r, cols.L3Occupancy)
		},
	},
	SelectOccupancy: {
		name: "occup", tag: "OccupL3", column: "l3_kbytes_occ",
		value: func(r sample.RawRow, cols Columns) float64 { return rawValue(r, cols.L3Occupancy) },
	},
}

// SelectorNames are the accepted selector names.
func SelectorNames() []string {
	names := make([]string, len(selectorDefs))
	for i, d := range selectorDefs {
		names[i] = d.name
	}
	return names
}

// ParseSelectors resolves selector names. Duplicates are dropped.
func ParseSelectors(flag string, names []string) ([]Selector, error) {
	var selected []Selector
	for _, name := range names {
		found := false
		for i, d := range selectorDefs {
			if d.name != name {
				continue
			}
			found = true
			s := Selector(i)
			dup := false
			for _, prev := range selected {
				dup = dup || prev == s
			}
			if !dup {
				selected = append(selected, s)
			}
		}
		if !found {
			return nil, &app.ConfigurationError{
				Flag:   flag,
				Value:  name,
				Reason: "valid options are: " + strings.Join(SelectorNames(), ", "),
			}
		}
	}
	return selected, nil
}

func (s Selector) String() string { return selectorDefs[s].name }

// Tag names the selector in output file names.
func (s Selector) Tag() string { return selectorDefs[s].tag }

// Column is the output column of the selected values.
func (s Selector) Column() string { return selectorDefs[s].column }

// Value computes the selected value of one raw row.
func (s Selector) Value(r sample.RawRow, cols Columns) float64 {
	return selectorDefs[s].value(r, cols)
}

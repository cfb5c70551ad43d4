package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// RawRow is one observation of one repetition: its key and the numeric
// value of every measured column. Empty cells are NaN.
type RawRow struct {
	Repetition int
	Interval   string
	App        string
	Core       string
	Values     map[string]float64
}

// Key returns the value of a key column.
func (r RawRow) Key(col KeyColumn) string {
	switch col {
	case KeyInterval:
		return r.Interval
	case KeyApp:
		return r.App
	case KeyCore:
		return r.Core
	}
	return ""
}

// ParseRaw converts a table into raw rows tagged with a repetition index.
// A column is numeric when every non-empty cell parses as a number; only
// numeric columns are returned as values. Key columns keep their text form and
// are also returned as values when numeric, e.g., the interval of a final file.
func ParseRaw(t Table, repetition int, required []string) ([]RawRow, mapset.Set[string], error) {
	columns := t.Columns()
	for _, name := range required {
		if !columns.Contains(name) {
			return nil, nil, &MalformedInputError{Path: t.Name, Err: fmt.Errorf("missing column %q", name)}
		}
	}
	if len(t.Records) == 0 {
		return nil, nil, &MalformedInputError{Path: t.Name, Err: fmt.Errorf("no data rows")}
	}
	numeric := mapset.NewThreadUnsafeSet[string]()
	parsed := make([][]float64, len(t.Header))
	for col, name := range t.Header {
		values := make([]float64, len(t.Records))
		isNumeric := true
		for row, record := range t.Records {
			cell := strings.TrimSpace(record[col])
			if cell == "" {
				values[row] = math.NaN()
				continue
			}
			v, err := strconv.ParseFloat(cell, 64)
			if err != nil {
				isNumeric = false
				break
			}
			values[row] = v
		}
		if isNumeric {
			numeric.Add(name)
			parsed[col] = values
		}
	}
	keyIdx := make(map[KeyColumn]int)
	for _, key := range KeyColumns {
		keyIdx[key] = t.Column(string(key))
	}
	rows := make([]RawRow, len(t.Records))
	for i, record := range t.Records {
		r := RawRow{
			Repetition: repetition,
			Values:     make(map[string]float64, numeric.Cardinality()),
		}
		for key, idx := range keyIdx {
			if idx < 0 {
				continue
			}
			cell := strings.TrimSpace(record[idx])
			switch key {
			case KeyInterval:
				r.Interval = cell
			case KeyApp:
				r.App = cell
			case KeyCore:
				r.Core = cell
			}
		}
		for col, name := range t.Header {
			if parsed[col] != nil {
				r.Values[name] = parsed[col][i]
			}
		}
		rows[i] = r
	}
	return rows, numeric, nil
}

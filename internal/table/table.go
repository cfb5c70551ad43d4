// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Package table provides the output table model and builds it from the
// records of each pipeline stage.
package table

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"perfagg/internal/sample"
	"perfagg/internal/stats"
)

// Field represents the values for a column of a table
type Field struct {
	Name   string
	Values []string
}

// TableDefinition names a table and describes how it is rendered
type TableDefinition struct {
	Name        string // file name without extension, e.g., mcf-lbm-fin
	HasRows     bool   // table is meant to be displayed in row form, i.e., a field may have multiple values
	NoDataFound string // message to display when no data is found
}

// TableValues combines the table definition with the resulting fields and their values
type TableValues struct {
	TableDefinition
	Fields []Field
}

// New returns an empty row-form table with the given columns.
func New(name string, columns ...string) *TableValues {
	tv := &TableValues{TableDefinition: TableDefinition{Name: name, HasRows: true}}
	for _, c := range columns {
		tv.Fields = append(tv.Fields, Field{Name: c})
	}
	return tv
}

// AddRow appends one value per field.
func (tv *TableValues) AddRow(values ...string) {
	if len(values) != len(tv.Fields) {
		panic(fmt.Sprintf("table %s: expected %d values, got %d", tv.Name, len(tv.Fields), len(values)))
	}
	for i, v := range values {
		tv.Fields[i].Values = append(tv.Fields[i].Values, v)
	}
}

// NumRows returns the number of values of the first field.
func (tv *TableValues) NumRows() int {
	if len(tv.Fields) == 0 {
		return 0
	}
	return len(tv.Fields[0].Values)
}

// Row returns the values of one row in field order.
func (tv *TableValues) Row(i int) []string {
	row := make([]string, len(tv.Fields))
	for j, f := range tv.Fields {
		row[j] = f.Values[i]
	}
	return row
}

// Header returns the field names.
func (tv *TableValues) Header() []string {
	names := make([]string, len(tv.Fields))
	for i, f := range tv.Fields {
		names[i] = f.Name
	}
	return names
}

// GetFieldIndex returns the index of a field with the given name.
func GetFieldIndex(fieldName string, tableValues TableValues) (int, error) {
	for i, field := range tableValues.Fields {
		if field.Name == fieldName {
			return i, nil
		}
	}
	return -1, fmt.Errorf("field [%s] not found in table [%s]", fieldName, tableValues.Name)
}

// Validate checks that field names are set and every field has the same
// number of values.
func Validate(tableValues TableValues) error {
	if tableValues.Name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	// no field values is a valid state
	if len(tableValues.Fields) == 0 {
		return nil
	}
	for i, field := range tableValues.Fields {
		if field.Name == "" {
			return fmt.Errorf("table %s, field %d, name cannot be empty", tableValues.Name, i)
		}
	}
	numEntries := len(tableValues.Fields[0].Values)
	for i, field := range tableValues.Fields {
		if len(field.Values) != numEntries {
			return fmt.Errorf("table %s, field %d, %s, number of entries must be the same for all fields, expected %d, got %d", tableValues.Name, i, field.Name, numEntries, len(field.Values))
		}
	}
	return nil
}

// FormatFloat writes a number in its shortest exact form. NaN and infinite
// values are written as empty cells.
func FormatFloat(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func keyColumns(keys []sample.KeyColumn) []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = string(k)
	}
	return names
}

// FromAggregated lays out an aggregated table: the key columns followed by
// <m>:mean, <m>:std and <m>:n for every metric.
func FromAggregated(name string, t *stats.AggregatedTable) *TableValues {
	columns := keyColumns(t.Keys)
	for _, m := range t.Metrics {
		columns = append(columns, m+stats.SuffixMean, m+stats.SuffixStd, m+stats.SuffixN)
	}
	tv := New(name, columns...)
	for _, r := range t.Rows {
		values := make([]string, 0, len(columns))
		for _, k := range t.Keys {
			values = append(values, r.Key(k))
		}
		for _, m := range t.Metrics {
			e := r.Metrics[m]
			values = append(values, FormatFloat(e.Mean), FormatFloat(e.Std), strconv.Itoa(e.N))
		}
		tv.AddRow(values...)
	}
	return tv
}

// FromDerived lays out derived metrics as <m>:mean and <m>:ci columns after
// the key columns, followed by the flagged column. Metrics that failed for a
// row are written as empty cells.
func FromDerived(name string, t *stats.DerivedTable, conf stats.Confidence) *TableValues {
	columns := keyColumns(t.Keys)
	for _, m := range t.Metrics {
		columns = append(columns, m+stats.SuffixMean, m+stats.SuffixCI)
	}
	columns = append(columns, stats.ColumnFlagged)
	tv := New(name, columns...)
	for _, r := range t.Rows {
		values := make([]string, 0, len(columns))
		for _, k := range t.Keys {
			values = append(values, r.Key(k))
		}
		var flagged []string
		for _, m := range t.Metrics {
			e, ok := r.Metrics[m]
			if !ok {
				values = append(values, "", "")
				continue
			}
			iv := conf.Interval(e)
			if iv.Flagged {
				flagged = append(flagged, m)
			}
			values = append(values, FormatFloat(iv.Mean), FormatFloat(iv.CI))
		}
		values = append(values, strings.Join(flagged, stats.FlaggedSeparator))
		tv.AddRow(values...)
	}
	return tv
}

// CompositeLayout selects the columns of a composite table.
type CompositeLayout struct {
	WorkloadColumn string   // holds CompositeRow.Workload, omitted when empty
	LabelColumn    string   // holds CompositeRow.Label, omitted when empty
	Columns        []string // written as <c>:mean and <c>:ci
	Plain          []string // columns written as a single value, e.g., a median
	Order          []string // output order of Columns and Plain, defaults to Columns then Plain
	LabelFirst     bool     // write the label column before the workload column
}

func (l CompositeLayout) isPlain(c string) bool {
	for _, p := range l.Plain {
		if p == c {
			return true
		}
	}
	return false
}

func (l CompositeLayout) order() []string {
	if len(l.Order) > 0 {
		return l.Order
	}
	return append(append([]string{}, l.Columns...), l.Plain...)
}

// FromComposites lays out composite rows, followed by the flagged column.
// Values missing from a row are written as empty cells.
func FromComposites(name string, rows []stats.CompositeRow, layout CompositeLayout) *TableValues {
	var columns []string
	if layout.WorkloadColumn != "" {
		columns = append(columns, layout.WorkloadColumn)
	}
	if layout.LabelColumn != "" {
		columns = append(columns, layout.LabelColumn)
	}
	if layout.LabelFirst {
		slices.Reverse(columns)
	}
	for _, c := range layout.order() {
		if layout.isPlain(c) {
			columns = append(columns, c)
			continue
		}
		columns = append(columns, c+stats.SuffixMean, c+stats.SuffixCI)
	}
	columns = append(columns, stats.ColumnFlagged)
	tv := New(name, columns...)
	for _, r := range rows {
		var values []string
		var flagged []string
		if layout.WorkloadColumn != "" {
			values = append(values, r.Workload)
		}
		if layout.LabelColumn != "" {
			values = append(values, r.Label)
		}
		if layout.LabelFirst {
			slices.Reverse(values)
		}
		for _, c := range layout.order() {
			v, ok := r.Get(c)
			if !ok {
				v = stats.Interval{Mean: math.NaN(), CI: math.NaN()}
			} else if v.Flagged {
				flagged = append(flagged, c)
			}
			if layout.isPlain(c) {
				values = append(values, FormatFloat(v.Mean))
				continue
			}
			values = append(values, FormatFloat(v.Mean), FormatFloat(v.CI))
		}
		values = append(values, strings.Join(flagged, stats.FlaggedSeparator))
		tv.AddRow(values...)
	}
	return tv
}

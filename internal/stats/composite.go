package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"math"
	"strings"

	mstats "github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"

	"perfagg/internal/sample"
)

// Reducer combines the intervals of the applications of a workload.
type Reducer int

const (
	// ReduceSum adds means and adds half-widths in quadrature, e.g., STP.
	ReduceSum Reducer = iota
	// ReduceMean divides the sum by the number of applications, e.g., ANTT.
	ReduceMean
	// ReduceCoV is the coefficient of variation of the means, e.g., Unfairness.
	ReduceCoV
	// ReduceMax selects the interval with the largest mean, e.g., energy.
	ReduceMax
	// ReduceLast selects the last interval, e.g., turnaround time.
	ReduceLast
	// ReduceMedian is the median of the means, without uncertainty.
	ReduceMedian
	// ReducePopCoV is the coefficient of variation of the means with the
	// population standard deviation, e.g., the unfairness of a summary row.
	ReducePopCoV
)

var reducerNames = map[Reducer]string{
	ReduceSum:    "sum",
	ReduceMean:   "mean",
	ReduceCoV:    "cov",
	ReduceMax:    "max",
	ReduceLast:   "last",
	ReduceMedian: "median",
	ReducePopCoV: "popcov",
}

func (r Reducer) String() string {
	if name, ok := reducerNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reducer(%d)", int(r))
}

// Reduce combines intervals. Intervals with a non-finite mean are dropped
// first. The result is flagged when any input is flagged or, for the
// coefficient of variation, when fewer than two values remain.
func Reduce(r Reducer, values []Interval) Interval {
	finite := make([]Interval, 0, len(values))
	flagged := false
	for _, v := range values {
		if math.IsNaN(v.Mean) || math.IsInf(v.Mean, 0) {
			continue
		}
		flagged = flagged || v.Flagged
		finite = append(finite, v)
	}
	if len(finite) == 0 {
		return Interval{Mean: math.NaN(), CI: math.NaN(), Flagged: true}
	}
	var out Interval
	switch r {
	case ReduceSum, ReduceMean:
		var sq float64
		for _, v := range finite {
			out.Mean += v.Mean
			sq += v.CI * v.CI
			out.N += v.N
		}
		out.CI = math.Sqrt(sq)
		if r == ReduceMean {
			k := float64(len(finite))
			out.Mean /= k
			out.CI /= k
		}
	case ReduceCoV:
		out = coefficientOfVariation(finite, false)
	case ReducePopCoV:
		out = coefficientOfVariation(finite, true)
	case ReduceMax:
		out = finite[0]
		for _, v := range finite[1:] {
			if v.Mean > out.Mean {
				out = v
			}
		}
	case ReduceLast:
		out = finite[len(finite)-1]
	case ReduceMedian:
		means := make([]float64, len(finite))
		for i, v := range finite {
			means[i] = v.Mean
			out.N += v.N
		}
		median, err := mstats.Median(means)
		if err != nil {
			median = math.NaN()
		}
		out.Mean = median
	}
	out.Flagged = out.Flagged || flagged
	return out
}

// coefficientOfVariation returns s/m of the means, with s the sample or the
// population standard deviation, and a first-order half-width propagated
// from the half-widths of the inputs.
func coefficientOfVariation(values []Interval, population bool) Interval {
	k := len(values)
	if k < 2 {
		return Interval{Mean: 0, CI: 0, N: values[0].N, Flagged: true}
	}
	means := make([]float64, k)
	n := 0
	for i, v := range values {
		means[i] = v.Mean
		n += v.N
	}
	m, s := stat.MeanStdDev(means, nil)
	dof := float64(k - 1)
	if population {
		m, s = stat.PopMeanStdDev(means, nil)
		dof = float64(k)
	}
	if m == 0 {
		return Interval{Mean: math.NaN(), CI: math.NaN(), N: n, Flagged: true}
	}
	var variance float64
	for i, v := range values {
		var ds float64
		if s != 0 {
			ds = (means[i] - m) / (dof * s)
		}
		d := (ds*m - s/float64(k)) / (m * m)
		variance += d * d * v.CI * v.CI
	}
	return Interval{Mean: s / m, CI: math.Sqrt(variance), N: n}
}

// CompositeRow is one row of a per-workload or per-configuration table, e.g.,
// the STP, ANTT and Unfairness of a workload under one policy.
type CompositeRow struct {
	Workload string
	Label    string // configuration or policy, empty when the table has one per workload
	Columns  []string
	Values   map[string]Interval
}

// NewCompositeRow returns an empty row.
func NewCompositeRow(workload, label string) CompositeRow {
	return CompositeRow{Workload: workload, Label: label, Values: make(map[string]Interval)}
}

// Set stores a value and appends the column on first use.
func (r *CompositeRow) Set(column string, v Interval) {
	if _, ok := r.Values[column]; !ok {
		r.Columns = append(r.Columns, column)
	}
	r.Values[column] = v
}

// Get returns the value of a column and whether it is present.
func (r CompositeRow) Get(column string) (Interval, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// ReadComposites rebuilds composite rows from a table with a label column
// and <m>:mean columns with optional <m>:ci columns. Plain numeric columns
// are read as exact values. Metrics listed in the flagged column keep their
// flag.
func ReadComposites(t sample.Table, workload string, labelColumn string) ([]CompositeRow, error) {
	labelIdx := t.Column(labelColumn)
	if labelIdx < 0 {
		return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("missing column %q", labelColumn)}
	}
	flaggedIdx := t.Column(ColumnFlagged)
	var rows []CompositeRow
	for line, record := range t.Records {
		row := NewCompositeRow(workload, strings.TrimSpace(record[labelIdx]))
		for i, h := range t.Header {
			if i == labelIdx || i == flaggedIdx || strings.HasSuffix(h, SuffixCI) {
				continue
			}
			name, isMean := strings.CutSuffix(h, SuffixMean)
			v, err := ParseCell(record[i])
			if err != nil {
				if !isMean {
					continue
				}
				return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("row %d, %s: %w", line+2, h, err)}
			}
			iv := Exact(v)
			if isMean {
				if ci := t.Column(name + SuffixCI); ci >= 0 {
					if iv.CI, err = ParseCell(record[ci]); err != nil {
						return nil, &sample.MalformedInputError{Path: t.Name, Err: fmt.Errorf("row %d, %s: %w", line+2, name+SuffixCI, err)}
					}
				}
			}
			row.Set(name, iv)
		}
		if flaggedIdx >= 0 {
			for _, name := range strings.Split(record[flaggedIdx], FlaggedSeparator) {
				if iv, ok := row.Get(strings.TrimSpace(name)); ok {
					iv.Flagged = true
					row.Set(strings.TrimSpace(name), iv)
				}
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// GroupComposites splits rows by label, keeping the first-seen label order
// and the row order within each label.
func GroupComposites(rows []CompositeRow) ([]string, map[string][]CompositeRow) {
	var labels []string
	groups := make(map[string][]CompositeRow)
	for _, r := range rows {
		if _, ok := groups[r.Label]; !ok {
			labels = append(labels, r.Label)
		}
		groups[r.Label] = append(groups[r.Label], r)
	}
	return labels, groups
}

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package workflow

import (
	"github.com/prometheus/client_golang/prometheus"

	"perfagg/internal/sample"
	"perfagg/internal/stats"
)

// Metrics counts what a run read, produced and skipped. The counters are
// written once at the end of the run as a Prometheus text file.
type Metrics struct {
	command  string
	registry *prometheus.Registry

	workloadsProcessed     *prometheus.CounterVec
	workloadsSkipped       *prometheus.CounterVec
	filesRead              *prometheus.CounterVec
	filesRejected          *prometheus.CounterVec
	singleRepetitionGroups *prometheus.CounterVec
	rowsExcluded           *prometheus.CounterVec
}

func newCounter(name, help string) *prometheus.CounterVec {
	return prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "perfagg",
			Name:      name,
			Help:      help,
		},
		[]string{"command"},
	)
}

// NewMetrics returns zeroed counters labeled with the command name.
func NewMetrics(command string) *Metrics {
	m := &Metrics{
		command:                command,
		registry:               prometheus.NewRegistry(),
		workloadsProcessed:     newCounter("workloads_processed_total", "Workloads processed without being skipped."),
		workloadsSkipped:       newCounter("workloads_skipped_total", "Workloads skipped because of missing or malformed input."),
		filesRead:              newCounter("files_read_total", "Repetition files that contributed rows."),
		filesRejected:          newCounter("files_rejected_total", "Repetition files rejected as malformed."),
		singleRepetitionGroups: newCounter("single_repetition_groups_total", "Aggregated groups backed by a single repetition."),
		rowsExcluded:           newCounter("rows_excluded_total", "Rows or values left out of a statistic, e.g., non-finite values and failed derivations."),
	}
	m.registry.MustRegister(m.workloadsProcessed, m.workloadsSkipped, m.filesRead, m.filesRejected, m.singleRepetitionGroups, m.rowsExcluded)
	// make every counter visible in the output, even when zero
	for _, c := range []*prometheus.CounterVec{m.workloadsProcessed, m.workloadsSkipped, m.filesRead, m.filesRejected, m.singleRepetitionGroups, m.rowsExcluded} {
		c.WithLabelValues(command)
	}
	return m
}

// ObserveLoad counts the accepted and rejected files of a load.
func (m *Metrics) ObserveLoad(res *sample.LoadResult) {
	if m == nil || res == nil {
		return
	}
	m.filesRead.WithLabelValues(m.command).Add(float64(len(res.Files)))
	m.filesRejected.WithLabelValues(m.command).Add(float64(len(res.Rejected)))
}

// ObserveFile counts a single table read outside of a load, e.g., an
// aggregated table.
func (m *Metrics) ObserveFile(rejected bool) {
	if m == nil {
		return
	}
	if rejected {
		m.filesRejected.WithLabelValues(m.command).Inc()
		return
	}
	m.filesRead.WithLabelValues(m.command).Inc()
}

// ObserveAggregate counts the data-quality events of an aggregation.
func (m *Metrics) ObserveAggregate(st stats.AggregateStats) {
	if m == nil {
		return
	}
	m.singleRepetitionGroups.WithLabelValues(m.command).Add(float64(st.SingleRepetitionGroups))
	m.rowsExcluded.WithLabelValues(m.command).Add(float64(st.ExcludedValues))
}

// ObserveExcluded counts rows left out of downstream results.
func (m *Metrics) ObserveExcluded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.rowsExcluded.WithLabelValues(m.command).Add(float64(n))
}

func (m *Metrics) observeWorkload(skipped bool) {
	if m == nil {
		return
	}
	if skipped {
		m.workloadsSkipped.WithLabelValues(m.command).Inc()
		return
	}
	m.workloadsProcessed.WithLabelValues(m.command).Inc()
}

// WriteFile writes the counters in the Prometheus text format.
func (m *Metrics) WriteFile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

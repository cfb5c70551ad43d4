package compare

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"perfagg/internal/sample"
)

func TestReadComposites(t *testing.T) {
	tests := []struct {
		name   string
		table  sample.Table
		labels []string
	}{
		{
			name: "configuration column",
			table: sample.Table{
				Name:    "A-B-totalDataTable.csv",
				Header:  []string{"configuration", "IPC:mean", "IPC:ci", "Tt"},
				Records: [][]string{{"12cr8others", "1.5", "0.1", "120"}, {"16cr4others", "1.7", "0.2", "110"}},
			},
			labels: []string{"12cr8others", "16cr4others"},
		},
		{
			name: "policy column",
			table: sample.Table{
				Name:    "slowdownTable-np-fin.csv",
				Header:  []string{"policy", "STP:mean", "STP:ci"},
				Records: [][]string{{"np", "1.2", "0.05"}},
			},
			labels: []string{"np"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows, err := readComposites(tt.table, "A-B")
			require.NoError(t, err)
			var labels []string
			for _, r := range rows {
				labels = append(labels, r.Label)
			}
			assert.Equal(t, tt.labels, labels)
		})
	}
}

func TestReadCompositesNoLabel(t *testing.T) {
	_, err := readComposites(sample.Table{Name: "bad.csv", Header: []string{"IPC:mean"}}, "A-B")
	var malformed *sample.MalformedInputError
	assert.True(t, errors.As(err, &malformed))
}

func TestFindLabel(t *testing.T) {
	rows, err := readComposites(sample.Table{
		Name:    "A-B-totalDataTable.csv",
		Header:  []string{"configuration", "IPC:mean", "IPC:ci"},
		Records: [][]string{{"12cr8others", "1.5", "0.1"}, {"16cr4others", "1.7", "0.2"}},
	}, "A-B")
	require.NoError(t, err)

	row, ok := findLabel(rows, "16cr4others")
	require.True(t, ok)
	ipc, ok := row.Get("IPC")
	require.True(t, ok)
	assert.InDelta(t, 1.7, ipc.Mean, 1e-9)
	assert.InDelta(t, 0.2, ipc.CI, 1e-9)

	_, ok = findLabel(rows, "8cr12others")
	assert.False(t, ok)
}

package workload

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantNames []string
		wantErr   bool
	}{
		{
			name:      "lists of applications",
			input:     "- [mcf, lbm]\n- [xalancbmk, omnetpp, gcc]\n",
			wantNames: []string{"mcf-lbm", "xalancbmk-omnetpp-gcc"},
		},
		{
			name:      "single application entries",
			input:     "- mcf\n- [lbm]\n",
			wantNames: []string{"mcf", "lbm"},
		},
		{
			name:      "numeric application names",
			input:     "- [429, 470]\n",
			wantNames: []string{"429-470"},
		},
		{name: "empty document", input: "", wantErr: true},
		{name: "empty workload", input: "- []\n", wantErr: true},
		{name: "duplicate workload", input: "- [a, b]\n- [a, b]\n", wantErr: true},
		{name: "path separator in name", input: "- [a/b]\n", wantErr: true},
		{name: "mapping entry", input: "- {a: b}\n", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			workloads, err := Parse([]byte(tt.input))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			var names []string
			for _, wl := range workloads {
				names = append(names, wl.Name())
			}
			assert.Equal(t, tt.wantNames, names)
		})
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "workloads.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- [A, B]\n"), 0644))
	workloads, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, workloads, 1)
	assert.Equal(t, "A-B", workloads[0].Name())
	assert.False(t, workloads[0].Single())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestParseAppKey(t *testing.T) {
	tests := []struct {
		key            string
		wantCore       string
		wantName       string
		wantBase       string
		wantIndividual string
		wantErr        bool
	}{
		{key: "3_mcf", wantCore: "3", wantName: "mcf", wantBase: "mcf", wantIndividual: "00_mcf"},
		{key: "0_xalanc_r", wantCore: "0", wantName: "xalanc_r", wantBase: "xalanc", wantIndividual: "00_xalanc_r"},
		{key: "mcf", wantErr: true},
		{key: "_mcf", wantErr: true},
		{key: "3_", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			k, err := ParseAppKey(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantCore, k.Core)
			assert.Equal(t, tt.wantName, k.Name)
			assert.Equal(t, tt.wantBase, k.Base())
			assert.Equal(t, tt.wantIndividual, k.Individual())
			assert.Equal(t, tt.key, k.String())
		})
	}
}

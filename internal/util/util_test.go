package util

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasLines(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		n        int
		expected bool
	}{
		{name: "empty file", content: "", n: 1, expected: false},
		{name: "header only", content: "app,ipnc\n", n: 2, expected: false},
		{name: "header only without newline", content: "app,ipnc", n: 2, expected: false},
		{name: "header and row", content: "app,ipnc\n0_mcf,1.2\n", n: 2, expected: true},
		{name: "many rows", content: "a\nb\nc\nd\n", n: 2, expected: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "f.csv")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			got, err := HasLines(path, tt.n)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
	_, err := HasLines(filepath.Join(t.TempDir(), "missing.csv"), 2)
	assert.Error(t, err)
}

func TestCreateDirectoryIfNotExists(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	require.NoError(t, CreateDirectoryIfNotExists(dir, 0755))
	exists, err := DirectoryExists(dir)
	require.NoError(t, err)
	assert.True(t, exists)
	// idempotent
	assert.NoError(t, CreateDirectoryIfNotExists(dir, 0755))
}

func TestFileAndDirectoryExists(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "f")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0644))

	exists, err := FileExists(file)
	assert.NoError(t, err)
	assert.True(t, exists)

	_, err = FileExists(dir)
	assert.Error(t, err)

	exists, err = DirectoryExists(filepath.Join(dir, "none"))
	assert.NoError(t, err)
	assert.False(t, exists)

	_, err = DirectoryExists(file)
	assert.Error(t, err)
}

func TestUniqueAppend(t *testing.T) {
	s := UniqueAppend([]string{"a"}, "b")
	s = UniqueAppend(s, "a")
	assert.Equal(t, []string{"a", "b"}, s)
}

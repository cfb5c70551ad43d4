// Package report provides functions to render output tables in various formats such as csv, txt, json, xlsx.
package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"perfagg/internal/table"
	"perfagg/internal/util"
)

const (
	FormatCsv  = "csv"
	FormatXlsx = "xlsx"
	FormatJson = "json"
	FormatTxt  = "txt"
	FormatAll  = "all"
)

const noDataFound = "No data found."

var FormatOptions = []string{FormatCsv, FormatTxt, FormatJson, FormatXlsx}

// Create renders one table in the specified format.
// The function ensures that all fields have the same number of values before rendering.
// If the format is not supported, the function panics with an error message.
func Create(format string, tableValues table.TableValues) (out []byte, err error) {
	if err = table.Validate(tableValues); err != nil {
		return nil, err
	}
	switch format {
	case FormatCsv:
		return createCsvReport(tableValues)
	case FormatTxt:
		return createTextReport(tableValues)
	case FormatJson:
		return createJsonReport(tableValues)
	case FormatXlsx:
		return createXlsxReport(tableValues)
	}
	panic(fmt.Sprintf("expected one of %s, got %s", strings.Join(FormatOptions, ", "), format))
}

// Formats expands the --format flag values. csv is always written.
func Formats(flagValues []string) []string {
	formats := []string{FormatCsv}
	for _, f := range flagValues {
		if f == FormatAll {
			return FormatOptions
		}
		formats = util.UniqueAppend(formats, f)
	}
	return formats
}

// Write renders a table in every format and writes one file per format to
// dir, e.g., dir/mcf-lbm-fin.csv. Missing directories are created. It
// returns the paths of the written files.
func Write(dir string, tableValues table.TableValues, formats []string) ([]string, error) {
	if err := util.CreateDirectoryIfNotExists(dir, 0755); err != nil { // #nosec G301
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	var paths []string
	for _, format := range formats {
		out, err := Create(format, tableValues)
		if err != nil {
			return paths, fmt.Errorf("failed to render %s as %s: %w", tableValues.Name, format, err)
		}
		path := filepath.Join(dir, tableValues.Name+"."+format)
		if err := os.WriteFile(path, out, 0644); err != nil { // #nosec G306
			return paths, fmt.Errorf("failed to write %s: %w", path, err)
		}
		slog.Debug("table written", slog.String("file", path), slog.Int("rows", tableValues.NumRows()))
		paths = append(paths, path)
	}
	return paths, nil
}

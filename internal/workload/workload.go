// Package workload loads the list of workloads to process and parses the
// application keys found in measurement tables.
package workload

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Workload is a set of applications executed together.
type Workload struct {
	Apps []string
}

// Name is the display name used in file names, the applications joined by "-".
func (w Workload) Name() string {
	return strings.Join(w.Apps, "-")
}

// Single reports whether the workload runs only one application.
func (w Workload) Single() bool {
	return len(w.Apps) == 1
}

// LoadFile reads a YAML workloads file. Each entry is either a list of
// application names or a single application name.
func LoadFile(path string) ([]Workload, error) {
	// read the file into a byte array
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read workloads file: %w", err)
	}
	workloads, err := Parse(yamlFile)
	if err != nil {
		return nil, fmt.Errorf("failed to parse workloads file %s: %w", path, err)
	}
	return workloads, nil
}

// Parse decodes the workloads YAML document.
func Parse(data []byte) ([]Workload, error) {
	var entries []any
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("no workloads defined")
	}
	workloads := make([]Workload, 0, len(entries))
	nameUsed := make(map[string]bool)
	for i, entry := range entries {
		var apps []string
		switch v := entry.(type) {
		case string:
			apps = []string{v}
		case []any:
			for _, app := range v {
				name, ok := app.(string)
				if !ok {
					name = fmt.Sprint(app)
				}
				apps = append(apps, name)
			}
		default:
			return nil, fmt.Errorf("workload %d: expected a list of application names, got %T", i+1, entry)
		}
		if len(apps) == 0 {
			return nil, fmt.Errorf("workload %d: no applications", i+1)
		}
		for _, app := range apps {
			if app == "" || strings.ContainsAny(app, "/\\") {
				return nil, fmt.Errorf("workload %d: invalid application name %q", i+1, app)
			}
		}
		wl := Workload{Apps: apps}
		if nameUsed[wl.Name()] {
			return nil, fmt.Errorf("duplicate workload: %s", wl.Name())
		}
		nameUsed[wl.Name()] = true
		workloads = append(workloads, wl)
	}
	return workloads, nil
}

package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"

	"perfagg/internal/util"
)

// FindBadRepetitions returns the files of every failed repetition under
// <dir>/data. A repetition failed when its final file has no data row; its
// interval and total files are returned with it. Files that do not exist are
// still listed so the caller can report the full triple.
func FindBadRepetitions(dir string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "data", "*fin*.csv"))
	if err != nil {
		return nil, err
	}
	bad := mapset.NewThreadUnsafeSet[string]()
	for _, f := range matches {
		exists, err := util.FileExists(f)
		if err != nil || !exists {
			continue
		}
		ok, err := util.HasLines(f, 2)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", f, err)
		}
		if ok {
			continue
		}
		bad.Add(f)
		bad.Add(strings.Replace(f, "_fin.csv", "_tot.csv", 1))
		bad.Add(strings.Replace(f, "_fin.csv", ".csv", 1))
	}
	files := bad.ToSlice()
	slices.Sort(files)
	return files, nil
}

// Package sample reads the per-repetition measurement files written by the
// benchmarking harness and concatenates them into raw observations.
package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"

	"github.com/alitto/pond"
	mapset "github.com/deckarep/golang-set/v2"
)

// RepetitionFile is a file matching a workload's naming pattern.
type RepetitionFile struct {
	Name       string // slash separated, relative to the source root
	Repetition int
}

// LoadResult holds the concatenated rows of all usable repetition files.
type LoadResult struct {
	Workload string
	Kind     Kind
	Files    []RepetitionFile // files that contributed rows
	Rows     []RawRow
	Rejected []*MalformedInputError
	GroupKey []KeyColumn // grouping key of the kind, restricted to columns present in the files
	Columns  []string    // numeric in every accepted file, in header order
}

// Loader reads repetition files from a Source.
type Loader struct {
	Source  Source
	Workers int // files parsed concurrently, at least 1
}

// Discover lists the repetition files of a workload in dir, ordered by
// repetition index. Names not matching the pattern are ignored.
func (l *Loader) Discover(ctx context.Context, dir string, workload string, kind Kind) ([]RepetitionFile, error) {
	names, err := l.Source.List(ctx, dir)
	if err != nil {
		return nil, &MissingInputError{Workload: workload, Kind: kind.String(), Location: l.location(dir), Err: err}
	}
	re := kind.Pattern(workload)
	var files []RepetitionFile
	for _, name := range names {
		match := re.FindStringSubmatch(name)
		if match == nil {
			continue
		}
		rep, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		files = append(files, RepetitionFile{Name: Join(dir, name), Repetition: rep})
	}
	slices.SortFunc(files, func(a, b RepetitionFile) int {
		return a.Repetition - b.Repetition
	})
	return files, nil
}

type parsedFile struct {
	rows    []RawRow
	order   []string
	numeric mapset.Set[string]
	header  mapset.Set[string]
	err     error
}

// Load discovers and parses the repetition files of a workload. Malformed
// files are skipped and reported in the result; when no usable file remains a
// MissingInputError is returned.
func (l *Loader) Load(ctx context.Context, dir string, workload string, kind Kind) (*LoadResult, error) {
	files, err := l.Discover(ctx, dir, workload, kind)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, &MissingInputError{Workload: workload, Kind: kind.String(), Location: l.location(dir)}
	}
	workers := max(l.Workers, 1)
	parsed := make([]parsedFile, len(files))
	pool := pond.New(workers, 0, pond.MinWorkers(workers))
	for i, file := range files {
		pool.Submit(func() {
			if ctx.Err() != nil {
				parsed[i].err = ctx.Err()
				return
			}
			t, err := ReadTable(ctx, l.Source, file.Name)
			if err != nil {
				parsed[i].err = err
				return
			}
			rows, numeric, err := ParseRaw(t, file.Repetition, kind.RequiredColumns())
			parsed[i] = parsedFile{rows: rows, order: t.Header, numeric: numeric, header: t.Columns(), err: err}
		})
	}
	pool.StopAndWait()
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	result := &LoadResult{Workload: workload, Kind: kind}
	var reference, numeric mapset.Set[string]
	var referenceName string
	var order []string
	for i, p := range parsed {
		if p.err != nil {
			malformed, ok := p.err.(*MalformedInputError)
			if !ok {
				malformed = &MalformedInputError{Path: files[i].Name, Err: p.err}
			}
			slog.Warn("skipping repetition file", slog.String("file", files[i].Name), slog.String("error", p.err.Error()))
			result.Rejected = append(result.Rejected, malformed)
			continue
		}
		if reference == nil {
			reference = p.header
			referenceName = files[i].Name
			order = p.order
			numeric = p.numeric
		} else if !reference.Equal(p.header) {
			err := &MalformedInputError{
				Path: files[i].Name,
				Err:  fmt.Errorf("column set differs from %s", referenceName),
			}
			slog.Warn("skipping repetition file", slog.String("file", files[i].Name), slog.String("error", err.Error()))
			result.Rejected = append(result.Rejected, err)
			continue
		}
		numeric = numeric.Intersect(p.numeric)
		result.Files = append(result.Files, files[i])
		result.Rows = append(result.Rows, p.rows...)
	}
	if len(result.Files) == 0 {
		return result, &MissingInputError{
			Workload: workload,
			Kind:     kind.String(),
			Location: l.location(dir),
			Err:      fmt.Errorf("all %d matching files are malformed", len(files)),
		}
	}
	for _, key := range kind.GroupKey() {
		if reference.Contains(string(key)) {
			result.GroupKey = append(result.GroupKey, key)
		}
	}
	for _, name := range order {
		if numeric.Contains(name) {
			result.Columns = append(result.Columns, name)
		}
	}
	slog.Debug("loaded repetitions", slog.String("workload", workload), slog.String("kind", kind.String()), slog.Int("files", len(result.Files)), slog.Int("rows", len(result.Rows)))
	return result, nil
}

func (l *Loader) location(dir string) string {
	if dir == "" || dir == "." {
		return l.Source.Location()
	}
	return l.Source.Location() + "/" + dir
}

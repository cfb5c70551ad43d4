package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
)

// Table is the text content of one CSV file: a header row and data records.
type Table struct {
	Name    string
	Header  []string
	Records [][]string
}

// Column returns the index of the named column or -1.
func (t Table) Column(name string) int {
	for i, h := range t.Header {
		if h == name {
			return i
		}
	}
	return -1
}

// Columns returns the header as a set.
func (t Table) Columns() mapset.Set[string] {
	return mapset.NewSet(t.Header...)
}

// ParseTable reads comma separated records. Header names are trimmed of
// surrounding white space.
func ParseTable(name string, r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		return Table{}, &MalformedInputError{Path: name, Err: err}
	}
	if len(records) == 0 {
		return Table{}, &MalformedInputError{Path: name, Err: fmt.Errorf("empty file")}
	}
	header := make([]string, len(records[0]))
	seen := mapset.NewThreadUnsafeSet[string]()
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
		if !seen.Add(header[i]) {
			return Table{}, &MalformedInputError{Path: name, Err: fmt.Errorf("duplicate column %q", header[i])}
		}
	}
	return Table{Name: name, Header: header, Records: records[1:]}, nil
}

// ReadTable opens and parses a CSV file from a Source. The file handle is
// released before returning.
func ReadTable(ctx context.Context, src Source, name string) (Table, error) {
	f, err := src.Open(ctx, name)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return ParseTable(name, f)
}

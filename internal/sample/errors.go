package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import "fmt"

// MissingInputError reports that no usable repetition file exists for a
// workload (or application) and file kind.
type MissingInputError struct {
	Workload string
	Kind     string
	Location string
	Err      error // optional cause, e.g., every matching file was malformed
}

func (e *MissingInputError) Error() string {
	msg := fmt.Sprintf("no '%s' data for %s in %s", e.Kind, e.Workload, e.Location)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *MissingInputError) Unwrap() error {
	return e.Err
}

// MalformedInputError reports a file that exists but cannot be used.
type MalformedInputError struct {
	Path string
	Err  error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input %s: %v", e.Path, e.Err)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

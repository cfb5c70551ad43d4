package app

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"slices"
	"strings"
)

// ConfigurationError reports a broken invocation: an invalid flag value or
// inconsistent lists. It is raised before any input is read.
type ConfigurationError struct {
	Flag   string
	Value  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid --%s: %s", e.Flag, e.Reason)
	}
	return fmt.Sprintf("invalid --%s value %q: %s", e.Flag, e.Value, e.Reason)
}

// ValidateChoices returns a ConfigurationError for the first value that is not
// one of the allowed options.
func ValidateChoices(flag string, values []string, allowed []string) error {
	for _, value := range values {
		if !slices.Contains(allowed, value) {
			return &ConfigurationError{
				Flag:   flag,
				Value:  value,
				Reason: fmt.Sprintf("valid options are: %s", strings.Join(allowed, ", ")),
			}
		}
	}
	return nil
}

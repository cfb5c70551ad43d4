package workload

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strings"
)

// individualCore is the core prefix used for applications run alone.
const individualCore = "00"

// AppKey is an application key as written by the harness, "<core>_<name>".
type AppKey struct {
	Core string
	Name string // everything after the core, may itself contain '_'
}

// ParseAppKey splits an application key into its core and name parts.
func ParseAppKey(key string) (AppKey, error) {
	core, name, found := strings.Cut(key, "_")
	if !found || core == "" || name == "" {
		return AppKey{}, fmt.Errorf("application key %q is not of the form <core>_<name>", key)
	}
	return AppKey{Core: core, Name: name}, nil
}

// Base is the first word of the name. Individual-run result files are named after it.
func (k AppKey) Base() string {
	base, _, _ := strings.Cut(k.Name, "_")
	return base
}

// Individual is the key of the same application in its individual-run table.
func (k AppKey) Individual() string {
	return individualCore + "_" + k.Name
}

func (k AppKey) String() string {
	return k.Core + "_" + k.Name
}

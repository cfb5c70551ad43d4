package sample

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"regexp"
	"strings"
)

// KeyColumn names a column that identifies an observation rather than measuring it.
type KeyColumn string

const (
	KeyInterval KeyColumn = "interval"
	KeyApp      KeyColumn = "app"
	KeyCore     KeyColumn = "core"
)

// KeyColumns lists every recognized key column in grouping order.
var KeyColumns = []KeyColumn{KeyInterval, KeyApp, KeyCore}

// Kind selects one of the per-repetition files written by the harness.
type Kind int

const (
	KindInterval Kind = iota // per-interval samples, <wl>_<rep>.csv
	KindFinal                // values at the end of each application, <wl>_<rep>_fin.csv
	KindTotal                // workload-wide end state, <wl>_<rep>_tot.csv
)

var kindNames = []string{"int", "fin", "tot"}

// KindOptions are the accepted kind names.
var KindOptions = kindNames

func (k Kind) String() string {
	if int(k) < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind converts a kind name to a Kind.
func ParseKind(name string) (Kind, error) {
	for i, n := range kindNames {
		if n == name {
			return Kind(i), nil
		}
	}
	return 0, fmt.Errorf("unknown file kind %q, valid options are: %s", name, strings.Join(kindNames, ", "))
}

// Pattern matches the repetition files of the given workload. The first
// submatch is the repetition index.
func (k Kind) Pattern(workload string) *regexp.Regexp {
	suffix := ""
	if k != KindInterval {
		suffix = "_" + k.String()
	}
	return regexp.MustCompile(`^` + regexp.QuoteMeta(workload) + `_([0-9]+)` + regexp.QuoteMeta(suffix) + `\.csv$`)
}

// GroupKey is the ordered key the repetitions of this kind are grouped by.
// Columns absent from the files are dropped at load time.
func (k Kind) GroupKey() []KeyColumn {
	if k == KindInterval {
		return []KeyColumn{KeyInterval, KeyApp, KeyCore}
	}
	return []KeyColumn{KeyApp, KeyCore}
}

// RequiredColumns must be present in every file of this kind.
func (k Kind) RequiredColumns() []string {
	switch k {
	case KindInterval:
		return []string{string(KeyInterval), string(KeyApp)}
	case KindFinal:
		return []string{string(KeyApp)}
	}
	return nil
}

// AggregatedName is the file name of the aggregated table for a workload.
func (k Kind) AggregatedName(workload string) string {
	if k == KindInterval {
		return workload + ".csv"
	}
	return workload + "-" + k.String() + ".csv"
}

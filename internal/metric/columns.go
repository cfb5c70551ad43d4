package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"slices"
	"strings"
)

// IndividualPrefix marks metrics of the individual (stand-alone) run of an
// application once they are merged into the row of its shared run.
const IndividualPrefix = "indiv."

// Columns names the measured columns the built-in metrics are computed from.
type Columns struct {
	Instructions  string
	Cycles        string
	IPC           string // instructions per non-halted cycle
	IPCPrediction string
	Interval      string
	Completed     string // completed executions, >1 once an application restarted
	L3Hits        string
	L3Misses      string
	L3Occupancy   string // kilobytes
	ProcEnergy    string
	DRAMEnergy    string
}

// DefaultColumns are the column names written by the benchmarking harness.
func DefaultColumns() Columns {
	return Columns{
		Instructions:  "instructions",
		Cycles:        "cycles",
		IPC:           "ipnc",
		IPCPrediction: "ipnc_prediction",
		Interval:      "interval",
		Completed:     "compl",
		L3Hits:        "ev0",
		L3Misses:      "ev1",
		L3Occupancy:   "l3_kbytes_occ",
		ProcEnergy:    "proc_energy",
		DRAMEnergy:    "dram_energy",
	}
}

func (c *Columns) fields() map[string]*string {
	return map[string]*string{
		"instructions":   &c.Instructions,
		"cycles":         &c.Cycles,
		"ipc":            &c.IPC,
		"ipc_prediction": &c.IPCPrediction,
		"interval":       &c.Interval,
		"completed":      &c.Completed,
		"l3_hit":         &c.L3Hits,
		"l3_miss":        &c.L3Misses,
		"l3_occupancy":   &c.L3Occupancy,
		"proc_energy":    &c.ProcEnergy,
		"dram_energy":    &c.DRAMEnergy,
	}
}

// AliasNames are the accepted keys of Override.
func AliasNames() []string {
	var c Columns
	var names []string
	for name := range c.fields() {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Override replaces column names by alias, e.g., l3_miss: MEM_LOAD_UOPS_RETIRED.L3_MISS.
func (c *Columns) Override(aliases map[string]string) error {
	fields := c.fields()
	for alias, column := range aliases {
		field, ok := fields[alias]
		if !ok {
			return fmt.Errorf("unknown event alias %q, valid aliases are: %s", alias, strings.Join(AliasNames(), ", "))
		}
		if strings.TrimSpace(column) == "" {
			return fmt.Errorf("empty column name for event alias %q", alias)
		}
		*field = column
	}
	return nil
}

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// Command perfagg turns the repetition files of cache partitioning
// experiments into statistical tables. Set PERFAGG_PROFILE to a directory to
// write CPU and heap profiles of the run there.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime/pprof"

	"perfagg/cmd"
)

const profileEnv = "PERFAGG_PROFILE"

func main() {
	if dir := os.Getenv(profileEnv); dir != "" {
		stop, err := startProfiling(dir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %s: %v\n", profileEnv, err)
			os.Exit(1)
		}
		defer stop()
	}
	cmd.Execute()
}

// startProfiling starts the CPU profile in dir. The returned function stops
// it and writes the heap profile next to it.
func startProfiling(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0755); err != nil { // #nosec G301
		return nil, err
	}
	cpuPath, heapPath := filepath.Join(dir, "perfagg-cpu.prof"), filepath.Join(dir, "perfagg-heap.prof")
	cpuFile, err := os.Create(cpuPath) // #nosec G304
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(cpuFile); err != nil {
		cpuFile.Close()
		return nil, err
	}
	return func() {
		pprof.StopCPUProfile()
		cpuFile.Close()
		heapFile, err := os.Create(heapPath) // #nosec G304
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write heap profile: %v\n", err)
			return
		}
		defer heapFile.Close()
		if err := pprof.WriteHeapProfile(heapFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to write heap profile: %v\n", err)
			return
		}
		fmt.Fprintf(os.Stderr, "Profiles written, inspect with: go tool pprof -http=:8080 %s\n", cpuPath)
	}, nil
}

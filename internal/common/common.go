// Package common defines the flags, flag validation and usage output shared
// by the table-generating commands, e.g., slowdown, ways, intervals.
package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"perfagg/internal/app"
)

// FlagValidationError is used to report an error with a flag
func FlagValidationError(cmd *cobra.Command, err error) error {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	fmt.Fprintf(os.Stderr, "See '%s --help' for usage details.\n", cmd.CommandPath())
	slog.Error(err.Error())
	cmd.SilenceUsage = true
	return err
}

// PrintUsage prints the usage of a command with its flags in groups followed
// by the global flags of the root command.
func PrintUsage(cmd *cobra.Command, groups []app.FlagGroup) error {
	cmd.Printf("Usage: %s [flags]\n\n", cmd.CommandPath())
	if cmd.Example != "" {
		cmd.Printf("Examples:\n%s\n\n", cmd.Example)
	}
	cmd.Println("Flags:")
	for _, group := range groups {
		cmd.Printf("  %s:\n", group.GroupName)
		for _, flag := range group.Flags {
			f := cmd.Flags().Lookup(flag.Name)
			if f == nil {
				continue
			}
			name := "--" + f.Name
			if f.Shorthand != "" {
				name = fmt.Sprintf("-%s, --%s", f.Shorthand, f.Name)
			}
			flagDefault := ""
			if f.DefValue != "" && f.DefValue != "[]" && f.DefValue != "false" {
				flagDefault = fmt.Sprintf(" (default: %s)", f.DefValue)
			}
			cmd.Printf("    %-24s %s%s\n", name, flag.Help, flagDefault)
		}
	}
	if cmd.Parent() == nil {
		return nil
	}
	cmd.Println("\nGlobal Flags:")
	cmd.Parent().PersistentFlags().VisitAll(func(pf *pflag.Flag) {
		flagDefault := ""
		if pf.DefValue != "" && pf.DefValue != "[]" && pf.DefValue != "false" && pf.DefValue != "0" {
			flagDefault = fmt.Sprintf(" (default: %s)", pf.DefValue)
		}
		cmd.Printf("  --%-22s %s%s\n", pf.Name, pf.Usage, flagDefault)
	})
	return nil
}

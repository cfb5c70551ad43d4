// Package clean is a subcommand of the root command. It finds the
// repetitions that failed, those whose final file has no data row, and
// optionally removes all of their files.
package clean

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"perfagg/internal/app"
	"perfagg/internal/common"
	"perfagg/internal/sample"
	"perfagg/internal/util"
)

const cmdName = "clean"

var examples = []string{
	fmt.Sprintf("  List failed repetitions:   $ %s %s -i ./results/npTotal -i ./results/hgTotal", app.Name, cmdName),
	fmt.Sprintf("  Remove failed repetitions: $ %s %s -i ./results/npTotal --delete", app.Name, cmdName),
}

var Cmd = &cobra.Command{
	Use:           cmdName,
	Short:         "List or remove the files of failed repetitions",
	Example:       strings.Join(examples, "\n"),
	RunE:          runCmd,
	PreRunE:       validateFlags,
	GroupID:       "primary",
	Args:          cobra.NoArgs,
	SilenceErrors: true,
}

var (
	flagInputDirs []string
	flagDelete    bool
)

const flagDeleteName = "delete"

func init() {
	Cmd.Flags().StringSliceVarP(&flagInputDirs, app.FlagInputDirName, "i", nil, "")
	Cmd.Flags().BoolVar(&flagDelete, flagDeleteName, false, "")

	Cmd.SetUsageFunc(usageFunc)
}

func usageFunc(cmd *cobra.Command) error {
	return common.PrintUsage(cmd, getFlagGroups())
}

func getFlagGroups() []app.FlagGroup {
	flags := []app.Flag{
		{
			Name: app.FlagInputDirName,
			Help: "directories holding a data/ directory of repetition files (required)",
		},
		{
			Name: flagDeleteName,
			Help: "remove the listed files, without it the files are only listed",
		},
	}
	return []app.FlagGroup{
		{GroupName: "Options", Flags: flags},
	}
}

func validateFlags(cmd *cobra.Command, args []string) error {
	if len(flagInputDirs) == 0 {
		return common.FlagValidationError(cmd, &app.ConfigurationError{Flag: app.FlagInputDirName, Reason: "at least one directory is required"})
	}
	for i, dir := range flagInputDirs {
		dir = util.ExpandUser(dir)
		exists, err := util.DirectoryExists(dir)
		if err != nil || !exists {
			return common.FlagValidationError(cmd, &app.ConfigurationError{Flag: app.FlagInputDirName, Value: flagInputDirs[i], Reason: "directory does not exist"})
		}
		flagInputDirs[i] = dir
	}
	return nil
}

func runCmd(cmd *cobra.Command, args []string) error {
	total, err := clean(cmd.OutOrStdout(), flagInputDirs, flagDelete)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		slog.Error(err.Error())
		cmd.SilenceUsage = true
		return err
	}
	verb := "found"
	if flagDelete {
		verb = "removed"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Files of failed repetitions %s: %d\n", verb, total)
	return nil
}

// clean lists the files of failed repetitions under every directory and
// removes them when remove is set. Files of a triple that do not exist are
// listed but not counted.
func clean(w io.Writer, dirs []string, remove bool) (int, error) {
	total := 0
	for _, dir := range dirs {
		abs, err := util.AbsPath(dir)
		if err != nil {
			return total, err
		}
		files, err := sample.FindBadRepetitions(abs)
		if err != nil {
			return total, err
		}
		fmt.Fprintf(w, "%s:\n", filepath.Base(abs))
		for _, f := range files {
			fmt.Fprintf(w, "\t%s\n", f)
			if !util.FileOrDirectoryExists(f) {
				continue
			}
			total++
			if !remove {
				continue
			}
			if err := os.Remove(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return total, fmt.Errorf("failed to remove %s: %w", f, err)
			}
			slog.Info("removed file of failed repetition", slog.String("file", f))
		}
	}
	return total, nil
}

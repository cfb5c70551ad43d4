package common

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"perfagg/internal/app"
	"perfagg/internal/config"
	"perfagg/internal/sample"
	"perfagg/internal/util"
	"perfagg/internal/workflow"
	"perfagg/internal/workload"
)

// TableFlags holds the values of the flags shared by the table commands.
// Every command owns its instance so that commands do not overwrite each
// other's values.
type TableFlags struct {
	Workloads      string
	InputDir       string
	OutputDir      string
	Policies       []string
	DataCollection []string
	KeyFile        string
}

// Selectors chooses the optional shared flags a command accepts.
type Selectors int

const (
	WithPolicies Selectors = 1 << iota
	WithDataCollection
)

var tableFlags = []app.Flag{
	{Name: app.FlagWorkloadsName, Help: "YAML file with the list of workloads, each a list of application names (required)"},
	{Name: app.FlagInputDirName, Help: "input directory, s3://bucket/prefix or sftp://user@host/path"},
	{Name: app.FlagOutputDirName, Help: "directory where output tables are written"},
	{Name: app.FlagPoliciesName, Help: "policies to process, comma separated"},
	{Name: app.FlagDataCollectionName, Help: "data collection modes to process, comma separated, short form -d (-dc parses as -d c)"},
	{Name: app.FlagKeyName, Help: "private key file for sftp input (default: ~/.ssh/id_rsa)"},
}

func tableFlag(name string) app.Flag {
	for _, f := range tableFlags {
		if f.Name == name {
			return f
		}
	}
	panic("unknown table flag: " + name)
}

// normalizeFlagName accepts long flag names in any case, e.g., --dataCollection.
func normalizeFlagName(f *pflag.FlagSet, name string) pflag.NormalizedName {
	return pflag.NormalizedName(strings.ToLower(name))
}

// AddTableFlags registers the shared flags on a command.
func AddTableFlags(cmd *cobra.Command, f *TableFlags, selectors Selectors) {
	cmd.Flags().StringVarP(&f.Workloads, app.FlagWorkloadsName, "w", "", tableFlag(app.FlagWorkloadsName).Help)
	cmd.Flags().StringVarP(&f.InputDir, app.FlagInputDirName, "i", "./data", tableFlag(app.FlagInputDirName).Help)
	cmd.Flags().StringVarP(&f.OutputDir, app.FlagOutputDirName, "o", "./output", tableFlag(app.FlagOutputDirName).Help)
	if selectors&WithPolicies != 0 {
		cmd.Flags().StringSliceVarP(&f.Policies, app.FlagPoliciesName, "p", nil, tableFlag(app.FlagPoliciesName).Help)
	}
	if selectors&WithDataCollection != 0 {
		cmd.Flags().StringSliceVarP(&f.DataCollection, app.FlagDataCollectionName, "d", nil, tableFlag(app.FlagDataCollectionName).Help)
	}
	cmd.Flags().StringVar(&f.KeyFile, app.FlagKeyName, "", tableFlag(app.FlagKeyName).Help)
	cmd.Flags().SetNormalizeFunc(normalizeFlagName)
}

// GetTableFlagGroup returns the shared flags registered with the given selectors.
func GetTableFlagGroup(selectors Selectors) app.FlagGroup {
	names := []string{app.FlagWorkloadsName, app.FlagInputDirName, app.FlagOutputDirName}
	if selectors&WithPolicies != 0 {
		names = append(names, app.FlagPoliciesName)
	}
	if selectors&WithDataCollection != 0 {
		names = append(names, app.FlagDataCollectionName)
	}
	names = append(names, app.FlagKeyName)
	group := app.FlagGroup{GroupName: "Input/Output Options"}
	for _, name := range names {
		group.Flags = append(group.Flags, tableFlag(name))
	}
	return group
}

// IsRemote reports whether an input location names a remote source.
func IsRemote(location string) bool {
	return strings.Contains(location, "://")
}

// ValidateTableFlags checks the shared flags before any input is read.
// Empty policy and data collection lists default to every value allowed by
// the configuration. The output directory is made absolute.
func ValidateTableFlags(cmd *cobra.Command, f *TableFlags, cfg *config.Config) error {
	if f.Workloads == "" {
		return &app.ConfigurationError{Flag: app.FlagWorkloadsName, Reason: "a workloads file is required"}
	}
	exists, err := util.FileExists(util.ExpandUser(f.Workloads))
	if err != nil || !exists {
		return &app.ConfigurationError{Flag: app.FlagWorkloadsName, Value: f.Workloads, Reason: "file does not exist"}
	}
	if f.InputDir == "" {
		return &app.ConfigurationError{Flag: app.FlagInputDirName, Reason: "an input location is required"}
	}
	if !IsRemote(f.InputDir) {
		exists, err := util.DirectoryExists(util.ExpandUser(f.InputDir))
		if err != nil || !exists {
			return &app.ConfigurationError{Flag: app.FlagInputDirName, Value: f.InputDir, Reason: "directory does not exist"}
		}
	}
	if f.OutputDir == "" {
		return &app.ConfigurationError{Flag: app.FlagOutputDirName, Reason: "an output directory is required"}
	}
	outputDir, err := util.AbsPath(f.OutputDir)
	if err != nil {
		return &app.ConfigurationError{Flag: app.FlagOutputDirName, Value: f.OutputDir, Reason: err.Error()}
	}
	f.OutputDir = outputDir
	if cmd.Flags().Lookup(app.FlagPoliciesName) != nil {
		if len(f.Policies) == 0 {
			f.Policies = cfg.Policies
		}
		if err := app.ValidateChoices(app.FlagPoliciesName, f.Policies, cfg.Policies); err != nil {
			return err
		}
	}
	if cmd.Flags().Lookup(app.FlagDataCollectionName) != nil {
		if len(f.DataCollection) == 0 {
			f.DataCollection = cfg.DataCollection
		}
		if err := app.ValidateChoices(app.FlagDataCollectionName, f.DataCollection, cfg.DataCollection); err != nil {
			return err
		}
	}
	if f.KeyFile != "" {
		exists, err := util.FileExists(util.ExpandUser(f.KeyFile))
		if err != nil || !exists {
			return &app.ConfigurationError{Flag: app.FlagKeyName, Value: f.KeyFile, Reason: "file does not exist"}
		}
	}
	return nil
}

// Open loads the workloads file and opens the input location.
func (f *TableFlags) Open(ctx context.Context, c *workflow.Command) ([]workload.Workload, sample.Source, error) {
	workloads, err := workload.LoadFile(util.ExpandUser(f.Workloads))
	if err != nil {
		return nil, nil, err
	}
	src, err := c.OpenSource(ctx, f.InputDir, f.KeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open input: %w", err)
	}
	return workloads, src, nil
}

// MeanDir is the directory of aggregated tables under each configuration.
const MeanDir = "outputFilesMean"

// Configuration is a policy under a data collection mode, e.g., np and
// Total. Its name, npTotal, is the input directory of its runs.
type Configuration struct {
	Policy         string
	DataCollection string
}

func (c Configuration) String() string {
	return c.Policy + c.DataCollection
}

// MeanTable is the aggregated table of a workload in this configuration,
// <policy><dc>/outputFilesMean/<wl>[-<kind>].csv.
func (c Configuration) MeanTable(wl string, kind sample.Kind) string {
	return sample.Join(c.String(), MeanDir, kind.AggregatedName(wl))
}

// Configurations lists every data collection mode and policy pair, modes first.
func (f *TableFlags) Configurations() []Configuration {
	var configs []Configuration
	for _, dc := range f.DataCollection {
		for _, p := range f.Policies {
			configs = append(configs, Configuration{Policy: p, DataCollection: dc})
		}
	}
	return configs
}

func configPath(cmd *cobra.Command) string {
	if cmd.Parent() == nil || cmd.Parent().Context() == nil {
		return ""
	}
	appContext, _ := cmd.Parent().Context().Value(app.Context{}).(app.Context)
	return appContext.ConfigPath
}

// Validate checks the shared flags against the configuration named by --config.
func (f *TableFlags) Validate(cmd *cobra.Command) error {
	cfg, err := workflow.LoadConfig(configPath(cmd))
	if err != nil {
		return err
	}
	return ValidateTableFlags(cmd, f, cfg)
}

// Package cmd provides the command line interface for the application.
package cmd

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"perfagg/cmd/aggregate"
	"perfagg/cmd/clean"
	"perfagg/cmd/compare"
	"perfagg/cmd/intervals"
	"perfagg/cmd/numways"
	"perfagg/cmd/slowdown"
	"perfagg/cmd/summary"
	"perfagg/cmd/totals"
	"perfagg/cmd/ways"
	"perfagg/internal/app"
	"perfagg/internal/export"
	"perfagg/internal/report"
	"perfagg/internal/util"
)

var gLogFile *os.File
var gVersion = "9.9.9" // overwritten by ldflags in Makefile

const (
	// LongAppName is the name of the application
	LongAppName = "PerfAgg"
)

var examples = []string{
	fmt.Sprintf("  Aggregate repetitions of every workload: $ %s aggregate -w workloads.yaml -i ./data -o ./outputFilesMean", app.Name),
	fmt.Sprintf("  Slowdown tables of every policy:         $ %s slowdown -w workloads.yaml -i ./results -o ./tables", app.Name),
	fmt.Sprintf("  Compare cache way partitionings:         $ %s ways -w workloads.yaml -l \"(12,8)\" -l \"(16,4)\"", app.Name),
	fmt.Sprintf("  Also write Excel and JSON tables:        $ %s totals -w workloads.yaml --format csv,xlsx,json", app.Name),
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:                app.Name,
	Short:              app.Name,
	Long:               fmt.Sprintf(`%s (%s) turns the repeated measurements of multi-application cache partitioning experiments into statistical tables.`, LongAppName, app.Name),
	Example:            strings.Join(examples, "\n"),
	PersistentPreRunE:  initializeApplication, // will only be run if command has a 'Run' function
	PersistentPostRunE: terminateApplication,  // ...
	Version:            gVersion,
}

var (
	// logging
	flagDebug     bool
	flagSyslog    bool
	flagLogStdOut bool
	// pipeline
	flagConfig      string
	flagFormat      []string
	flagWorkers     int
	flagMetricsFile string
	flagDatabase    string
)

func init() {
	rootCmd.SetUsageTemplate(`Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command] [flags]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}

Use "{{.CommandPath}} [command] --help" for more information about a command.{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}
`)
	rootCmd.SetHelpCommand(&cobra.Command{}) // block the help command
	rootCmd.CompletionOptions.HiddenDefaultCmd = true
	rootCmd.AddGroup([]*cobra.Group{{ID: "primary", Title: "Commands:"}}...)
	rootCmd.AddCommand(aggregate.Cmd)
	rootCmd.AddCommand(slowdown.Cmd)
	rootCmd.AddCommand(totals.Cmd)
	rootCmd.AddCommand(ways.Cmd)
	rootCmd.AddCommand(compare.Cmd)
	rootCmd.AddCommand(intervals.Cmd)
	rootCmd.AddCommand(numways.Cmd)
	rootCmd.AddCommand(summary.Cmd)
	rootCmd.AddCommand(clean.Cmd)
	// Global (persistent) flags
	rootCmd.PersistentFlags().BoolVar(&flagDebug, app.FlagDebugName, false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&flagSyslog, app.FlagSyslogName, false, "write logs to syslog instead of a file")
	rootCmd.PersistentFlags().BoolVar(&flagLogStdOut, app.FlagLogStdOutName, false, "write logs to stdout")
	rootCmd.PersistentFlags().StringVar(&flagConfig, app.FlagConfigName, "", "pipeline configuration file (YAML)")
	rootCmd.PersistentFlags().StringSliceVar(&flagFormat, app.FlagFormatName, []string{report.FormatCsv}, fmt.Sprintf("output formats, choose from: %s", strings.Join(append(append([]string{}, report.FormatOptions...), report.FormatAll), ", ")))
	rootCmd.PersistentFlags().IntVar(&flagWorkers, app.FlagWorkersName, 1, "number of workloads processed concurrently")
	rootCmd.PersistentFlags().StringVar(&flagMetricsFile, app.FlagMetricsFileName, "", "write run counters in Prometheus text format to this file")
	rootCmd.PersistentFlags().StringVar(&flagDatabase, app.FlagDatabaseName, "", fmt.Sprintf("export composite rows to <driver>:<dsn>, drivers: %s", strings.Join(export.Drivers, ", ")))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	cobra.EnableCommandSorting = false
	cobra.EnableCaseInsensitive = true
	err := rootCmd.Execute()
	if err != nil {
		terminateErr := terminateApplication(rootCmd, os.Args)
		if terminateErr != nil {
			slog.Error("Error terminating application", slog.String("error", terminateErr.Error()))
			fmt.Printf("Error: %v\n", terminateErr)
		}
		os.Exit(1)
	}
}

// validateGlobalFlags checks the persistent flags shared by all commands.
func validateGlobalFlags() error {
	if flagSyslog && flagLogStdOut {
		return fmt.Errorf("both syslog handler and stdout output specified, please pick one only")
	}
	formats := append(append([]string{}, report.FormatOptions...), report.FormatAll)
	if err := app.ValidateChoices(app.FlagFormatName, flagFormat, formats); err != nil {
		return err
	}
	if flagWorkers < 1 {
		return &app.ConfigurationError{Flag: app.FlagWorkersName, Value: fmt.Sprint(flagWorkers), Reason: "must be at least 1"}
	}
	if flagConfig != "" {
		exists, err := util.FileExists(util.ExpandUser(flagConfig))
		if err != nil || !exists {
			return &app.ConfigurationError{Flag: app.FlagConfigName, Value: flagConfig, Reason: "file does not exist"}
		}
	}
	if flagDatabase != "" {
		if _, _, err := export.ParseTarget(flagDatabase); err != nil {
			return &app.ConfigurationError{Flag: app.FlagDatabaseName, Value: flagDatabase, Reason: err.Error()}
		}
	}
	return nil
}

func initializeApplication(cmd *cobra.Command, args []string) error {
	timestamp := time.Now().Local().Format("2006-01-02_15-04-05") // app startup time
	if err := validateGlobalFlags(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	// configure logging
	var logOpts slog.HandlerOptions
	if flagDebug {
		logOpts.Level = slog.LevelDebug
		logOpts.AddSource = true
	} else {
		logOpts.Level = slog.LevelInfo
		logOpts.AddSource = false
	}
	if flagSyslog { // log to syslog
		handler, err := NewSyslogHandler(&logOpts)
		if err != nil {
			fmt.Printf("Error: failed to create syslog handler: %v\n", err)
			os.Exit(1)
		}
		slog.SetDefault(slog.New(handler))
	} else if flagLogStdOut {
		handler := slog.NewJSONHandler(os.Stdout, &logOpts)
		slog.SetDefault(slog.New(handler))
	} else { // log to file
		// open log file in current directory
		var err error
		gLogFile, err = os.OpenFile(app.Name+".log", os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644) // #nosec G302
		if err != nil {
			fmt.Printf("Error: failed to open log file: %v\n", err)
			os.Exit(1)
		}
		slog.SetDefault(slog.New(slog.NewTextHandler(gLogFile, &logOpts)))
	}
	slog.Info("Starting up", slog.String("app", app.Name), slog.String("version", gVersion), slog.Int("PID", os.Getpid()), slog.String("arguments", strings.Join(os.Args, " ")))
	var logFilePath string
	if gLogFile != nil {
		logFilePath = gLogFile.Name()
	}
	var configPath string
	if flagConfig != "" {
		configPath = util.ExpandUser(flagConfig)
	}
	// set app context
	cmd.Parent().SetContext(
		context.WithValue(
			context.Background(),
			app.Context{},
			app.Context{
				Timestamp:   timestamp,
				LogFilePath: logFilePath,
				Version:     gVersion,
				Debug:       flagDebug,
				ConfigPath:  configPath,
				Formats:     flagFormat,
				Workers:     flagWorkers,
				MetricsFile: flagMetricsFile,
				Database:    flagDatabase,
			},
		),
	)
	return nil
}

// terminateApplication closes the log file
func terminateApplication(cmd *cobra.Command, args []string) error {
	var ctx context.Context
	if cmd.Parent() == nil {
		ctx = cmd.Context()
	} else {
		ctx = cmd.Parent().Context()
	}
	if ctx == nil {
		return nil
	}
	if _, ok := ctx.Value(app.Context{}).(app.Context); !ok {
		return nil
	}
	slog.Info("Shutting down", slog.String("app", app.Name), slog.String("version", gVersion), slog.Int("PID", os.Getpid()), slog.String("arguments", strings.Join(os.Args, " ")))
	if gLogFile != nil {
		err := gLogFile.Close()
		gLogFile = nil
		if err != nil {
			slog.Error("error closing log file", slog.String("error", err.Error()))
			return err
		}
	}
	return nil
}

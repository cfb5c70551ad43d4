// Package app defines application-wide types, constants, and context
// that are shared across multiple commands.
package app

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
)

// Name is the name of the application executable.
var Name = filepath.Base(os.Args[0])

// Context represents the application context that can be accessed from all commands.
type Context struct {
	Timestamp   string   // Timestamp is the timestamp when the application was started.
	LogFilePath string   // LogFilePath is the path to the log file.
	Version     string   // Version is the version of the application.
	Debug       bool     // Debug is true if the application is running in debug mode.
	ConfigPath  string   // ConfigPath is the optional pipeline configuration file.
	Formats     []string // Formats are the report formats written for every output table.
	Workers     int      // Workers is the number of workloads processed concurrently.
	MetricsFile string   // MetricsFile receives run counters in Prometheus text format, if set.
	Database    string   // Database is the optional <driver>:<dsn> export sink.
}

// Flag names for flags defined in the root command, but sometimes used in other commands.
const (
	FlagDebugName       = "debug"
	FlagSyslogName      = "syslog"
	FlagLogStdOutName   = "log-stdout"
	FlagConfigName      = "config"
	FlagFormatName      = "format"
	FlagWorkersName     = "workers"
	FlagMetricsFileName = "metrics-file"
	FlagDatabaseName    = "db"
)

// Flag names shared by the table-generating commands.
const (
	FlagWorkloadsName      = "workloads"
	FlagInputDirName       = "inputdir"
	FlagOutputDirName      = "outputdir"
	FlagPoliciesName       = "policies"
	FlagDataCollectionName = "datacollection"
	FlagFunctionsName      = "functions"
	FlagIndivDirName       = "indivdir"
	FlagKeyName            = "key"
)

// Flag represents a command-line flag with its name and help text.
type Flag struct {
	Name string
	Help string
}

// FlagGroup represents a group of related flags with a group name.
type FlagGroup struct {
	GroupName string
	Flags     []Flag
}

// Package config loads the optional pipeline configuration file.
package config

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"

	"github.com/hashicorp/go-version"
	"gopkg.in/yaml.v2"

	"perfagg/internal/app"
	"perfagg/internal/metric"
	"perfagg/internal/stats"
)

// SupportedVersions is the constraint on the schema version of configuration files.
const SupportedVersions = ">= 1.0, < 2.0"

// Config tunes the statistics and the accepted selectors of every command.
type Config struct {
	Version            string            `yaml:"version"`
	Confidence         float64           `yaml:"confidence"`
	IntervalMethod     string            `yaml:"interval_method"`
	Z                  float64           `yaml:"z"`
	DefaultRepetitions int               `yaml:"default_repetitions"`
	Policies           []string          `yaml:"policies"`
	DataCollection     []string          `yaml:"data_collection"`
	Events             map[string]string `yaml:"events"`
	Metrics            []map[string]any  `yaml:"metrics"`

	z       bool // z given in the file
	columns metric.Columns
	custom  []stats.Derivation
}

// Default returns the configuration used without a file.
func Default() *Config {
	c := &Config{
		Version:            "1.0",
		Confidence:         0.95,
		IntervalMethod:     string(stats.MethodZ),
		Z:                  1.96,
		DefaultRepetitions: 3,
		Policies:           []string{"np", "hg"},
		DataCollection:     []string{"Total", "Interval"},
		columns:            metric.DefaultColumns(),
	}
	return c
}

// Load reads a configuration file. Omitted settings keep their defaults.
// Every problem is reported as a ConfigurationError of the --config flag.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304
	if err != nil {
		return nil, &app.ConfigurationError{Flag: app.FlagConfigName, Value: path, Reason: err.Error()}
	}
	c, err := Parse(data)
	if err != nil {
		return nil, &app.ConfigurationError{Flag: app.FlagConfigName, Value: path, Reason: err.Error()}
	}
	return c, nil
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	c := Default()
	var present struct {
		Z *float64 `yaml:"z"`
	}
	if err := yaml.Unmarshal(data, &present); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	c.z = present.Z != nil
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	v, err := version.NewVersion(c.Version)
	if err != nil {
		return fmt.Errorf("invalid version %q: %w", c.Version, err)
	}
	constraint, err := version.NewConstraint(SupportedVersions)
	if err != nil {
		return err
	}
	if !constraint.Check(v) {
		return fmt.Errorf("version %s is not supported, need %s", v, SupportedVersions)
	}
	if err := c.Interval().Validate(); err != nil {
		return err
	}
	if c.DefaultRepetitions < 1 {
		return fmt.Errorf("default_repetitions must be at least 1")
	}
	if len(c.Policies) == 0 || len(c.DataCollection) == 0 {
		return fmt.Errorf("policies and data_collection must not be empty")
	}
	c.columns = metric.DefaultColumns()
	if err := c.columns.Override(c.Events); err != nil {
		return err
	}
	c.custom = nil
	for i, def := range c.Metrics {
		d, err := metric.Decode(def)
		if err != nil {
			return fmt.Errorf("metrics[%d]: %w", i, err)
		}
		c.custom = append(c.custom, d)
	}
	return nil
}

// Interval returns the confidence interval settings. A level other than 0.95
// without an explicit z derives z from the level.
func (c *Config) Interval() stats.Confidence {
	conf := stats.Confidence{Method: stats.Method(c.IntervalMethod), Level: c.Confidence, Z: c.Z}
	if !c.z && c.Confidence != 0.95 {
		conf.Z = 0
	}
	return conf
}

// Columns returns the event columns after alias overrides.
func (c *Config) Columns() metric.Columns {
	return c.columns
}

// CustomMetrics returns the metrics defined in the file.
func (c *Config) CustomMetrics() []stats.Derivation {
	return c.custom
}

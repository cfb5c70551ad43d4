// Package metric defines the derived metrics computed from aggregated
// estimates and the registry that builds them from configuration.
package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/mitchellh/mapstructure"

	"perfagg/internal/stats"
)

// MissingMetricError reports an operand absent from the aggregated row.
type MissingMetricError struct {
	Metric  string
	Operand string
}

func (e *MissingMetricError) Error() string {
	return fmt.Sprintf("cannot compute %s: no %s column", e.Metric, e.Operand)
}

func operand(metrics map[string]stats.Estimate, metric, name string) (stats.Estimate, error) {
	e, ok := metrics[name]
	if !ok {
		return stats.Missing(), &MissingMetricError{Metric: metric, Operand: name}
	}
	return e, nil
}

// nameDivisionByZero fills the metric and operand names into a division by
// zero error returned by the stats package.
func nameDivisionByZero(err error, metric string, operands map[string]string) error {
	var dz *stats.DivisionByZeroError
	if errors.As(err, &dz) {
		dz.Metric = metric
		if name, ok := operands[dz.Operand]; ok {
			dz.Operand = name
		}
	}
	return err
}

// Column copies an aggregated metric under a new name, e.g., ipnc as IPC.
type Column struct {
	As     string `mapstructure:"name"`
	Source string `mapstructure:"source"`
}

func (c Column) Name() string { return c.As }

func (c Column) Derive(metrics map[string]stats.Estimate) (stats.Estimate, error) {
	return operand(metrics, c.As, c.Source)
}

// Rate is an event count per thousand instructions, e.g., MPKI.
type Rate struct {
	As           string `mapstructure:"name"`
	Events       string `mapstructure:"events"`
	Instructions string `mapstructure:"instructions"`
}

func (r Rate) Name() string { return r.As }

func (r Rate) Derive(metrics map[string]stats.Estimate) (stats.Estimate, error) {
	events, err := operand(metrics, r.As, r.Events)
	if err != nil {
		return events, err
	}
	instructions, err := operand(metrics, r.As, r.Instructions)
	if err != nil {
		return instructions, err
	}
	e, err := stats.Rate(events, instructions)
	return e, nameDivisionByZero(err, r.As, map[string]string{"numerator": r.Events, "denominator": r.Instructions})
}

// Ratio divides two aggregated metrics.
type Ratio struct {
	As          string `mapstructure:"name"`
	Numerator   string `mapstructure:"numerator"`
	Denominator string `mapstructure:"denominator"`
	Pairing     string `mapstructure:"pairing"` // paired (default) or independent
}

func (r Ratio) Name() string { return r.As }

func parsePairing(p string) stats.Pairing {
	if p == stats.Independent.String() {
		return stats.Independent
	}
	return stats.Paired
}

func validPairing(p string) bool {
	return p == "" || p == stats.Paired.String() || p == stats.Independent.String()
}

func (r Ratio) Derive(metrics map[string]stats.Estimate) (stats.Estimate, error) {
	num, err := operand(metrics, r.As, r.Numerator)
	if err != nil {
		return num, err
	}
	den, err := operand(metrics, r.As, r.Denominator)
	if err != nil {
		return den, err
	}
	e, err := stats.Ratio(num, den, parsePairing(r.Pairing))
	return e, nameDivisionByZero(err, r.As, map[string]string{"numerator": r.Numerator, "denominator": r.Denominator})
}

// Product multiplies two aggregated metrics, e.g., a rate by a duration.
type Product struct {
	As      string `mapstructure:"name"`
	Left    string `mapstructure:"left"`
	Right   string `mapstructure:"right"`
	Pairing string `mapstructure:"pairing"` // paired (default) or independent
}

func (p Product) Name() string { return p.As }

func (p Product) Derive(metrics map[string]stats.Estimate) (stats.Estimate, error) {
	left, err := operand(metrics, p.As, p.Left)
	if err != nil {
		return left, err
	}
	right, err := operand(metrics, p.As, p.Right)
	if err != nil {
		return right, err
	}
	e, err := stats.Product(left, right, parsePairing(p.Pairing))
	return e, nameDivisionByZero(err, p.As, map[string]string{"left factor": p.Left, "right factor": p.Right})
}

// Scale multiplies an aggregated metric by an exact factor, e.g., KB to MB.
type Scale struct {
	As     string  `mapstructure:"name"`
	Source string  `mapstructure:"source"`
	Factor float64 `mapstructure:"factor"`
}

func (s Scale) Name() string { return s.As }

func (s Scale) Derive(metrics map[string]stats.Estimate) (stats.Estimate, error) {
	e, err := operand(metrics, s.As, s.Source)
	if err != nil {
		return e, err
	}
	return stats.Scale(e, s.Factor), nil
}

// Names of the built-in derived metrics.
const (
	MPKI             = "mpki"
	IPC              = "ipc"
	IPCCycles        = "ipc-cycles"
	Hits             = "hits"
	HitsPerStorage   = "hits-per-storage"
	OccupancyMB      = "occupancy-mb"
	Progress         = "progress"
	Slowdown         = "slowdown"
	IPCPrediction    = "ipc-prediction"
)

// Builtin returns a built-in derived metric over the given columns. Each
// has the output column name used in the generated tables.
func Builtin(name string, cols Columns) (stats.Derivation, error) {
	switch name {
	case MPKI:
		return Rate{As: "MPKIL3", Events: cols.L3Misses, Instructions: cols.Instructions}, nil
	case IPC:
		return Column{As: "IPC", Source: cols.IPC}, nil
	case IPCCycles:
		return Ratio{As: "ipc", Numerator: cols.Instructions, Denominator: cols.Cycles}, nil
	case Hits:
		return Column{As: "hitsL3", Source: cols.L3Hits}, nil
	case HitsPerStorage:
		// hits and occupancy are sampled by different monitors of each repetition
		return Ratio{As: "hits/storage", Numerator: cols.L3Hits, Denominator: cols.L3Occupancy, Pairing: stats.Independent.String()}, nil
	case OccupancyMB:
		return Scale{As: "l3_Mbytes_occ", Source: cols.L3Occupancy, Factor: 1.0 / 1024}, nil
	case Progress:
		return Ratio{As: "progress", Numerator: cols.IPC, Denominator: IndividualPrefix + cols.IPC, Pairing: stats.Independent.String()}, nil
	case Slowdown:
		return Ratio{As: "slowdown", Numerator: IndividualPrefix + cols.IPC, Denominator: cols.IPC, Pairing: stats.Independent.String()}, nil
	case IPCPrediction:
		return Column{As: "IPC_prediction", Source: cols.IPCPrediction}, nil
	}
	return nil, fmt.Errorf("unknown metric %q, valid metrics are: %s", name, strings.Join(BuiltinNames(), ", "))
}

// BuiltinNames lists the built-in metrics.
func BuiltinNames() []string {
	return []string{MPKI, IPC, IPCCycles, Hits, HitsPerStorage, OccupancyMB, Progress, Slowdown, IPCPrediction}
}

// Builtins resolves several built-in metrics.
func Builtins(cols Columns, names ...string) ([]stats.Derivation, error) {
	var ds []stats.Derivation
	for _, name := range names {
		d, err := Builtin(name, cols)
		if err != nil {
			return nil, err
		}
		ds = append(ds, d)
	}
	return ds, nil
}

type factory func(map[string]any) (stats.Derivation, error)

var kinds map[string]factory

// RegisterKind makes a kind of custom metric available to Decode.
func RegisterKind(kind string, f factory) {
	if kinds == nil {
		kinds = map[string]factory{}
	}
	kinds[kind] = f
}

// Kinds lists the registered kinds of custom metrics.
func Kinds() []string {
	var names []string
	for k := range kinds {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

func decodeInto[T stats.Derivation](def map[string]any, required func(T) []string) (stats.Derivation, error) {
	var d T
	if err := mapstructure.Decode(def, &d); err != nil {
		return nil, fmt.Errorf("can't convert metric definition: %w", err)
	}
	for _, field := range required(d) {
		if field == "" {
			return nil, fmt.Errorf("metric %q: missing field", d.Name())
		}
	}
	return d, nil
}

func init() {
	RegisterKind("column", func(def map[string]any) (stats.Derivation, error) {
		return decodeInto(def, func(c Column) []string { return []string{c.As, c.Source} })
	})
	RegisterKind("rate", func(def map[string]any) (stats.Derivation, error) {
		return decodeInto(def, func(r Rate) []string { return []string{r.As, r.Events, r.Instructions} })
	})
	RegisterKind("ratio", func(def map[string]any) (stats.Derivation, error) {
		d, err := decodeInto(def, func(r Ratio) []string { return []string{r.As, r.Numerator, r.Denominator} })
		if err != nil {
			return nil, err
		}
		if p := d.(Ratio).Pairing; !validPairing(p) {
			return nil, fmt.Errorf("metric %q: unknown pairing %q", d.Name(), p)
		}
		return d, nil
	})
	RegisterKind("product", func(def map[string]any) (stats.Derivation, error) {
		d, err := decodeInto(def, func(p Product) []string { return []string{p.As, p.Left, p.Right} })
		if err != nil {
			return nil, err
		}
		if p := d.(Product).Pairing; !validPairing(p) {
			return nil, fmt.Errorf("metric %q: unknown pairing %q", d.Name(), p)
		}
		return d, nil
	})
	RegisterKind("scale", func(def map[string]any) (stats.Derivation, error) {
		d, err := decodeInto(def, func(s Scale) []string { return []string{s.As, s.Source} })
		if err != nil {
			return nil, err
		}
		if d.(Scale).Factor == 0 {
			return nil, fmt.Errorf("metric %q: missing factor", d.Name())
		}
		return d, nil
	})
	RegisterKind("expression", func(def map[string]any) (stats.Derivation, error) {
		var input struct {
			Name       string `mapstructure:"name"`
			Expression string `mapstructure:"expression"`
		}
		if err := mapstructure.Decode(def, &input); err != nil {
			return nil, fmt.Errorf("can't convert metric definition: %w", err)
		}
		if input.Name == "" {
			return nil, fmt.Errorf("metric definition without name")
		}
		return NewExpression(input.Name, input.Expression)
	})
}

// Decode builds a custom metric from its configuration entry. The entry's
// kind selects the registered factory.
func Decode(def map[string]any) (stats.Derivation, error) {
	kind, _ := def["kind"].(string)
	f, ok := kinds[kind]
	if !ok {
		return nil, fmt.Errorf("unknown metric kind %q, valid kinds are: %s", kind, strings.Join(Kinds(), ", "))
	}
	return f(def)
}

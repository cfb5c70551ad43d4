package metric

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"math"

	"github.com/casbin/govaluate"

	"perfagg/internal/stats"
	"perfagg/internal/util"
)

// Expression is a custom metric defined by an arithmetic expression over
// aggregated metric names, e.g., "ev1 / (instructions / 1000)". Names that
// are not plain identifiers are written in brackets: [l3_kbytes_occ.max].
// Its mean is the expression at the operand means; its standard deviation is
// propagated to first order with numerically estimated partial derivatives,
// assuming independent operands. The operands are measured on the same
// repetitions, so N is the smallest operand N. The result is flagged when
// any operand rests on a single repetition.
type Expression struct {
	name      string
	source    string
	evaluable *govaluate.EvaluableExpression
	vars      []string
}

// NewExpression parses an expression metric.
func NewExpression(name, expression string) (*Expression, error) {
	evaluable, err := govaluate.NewEvaluableExpressionWithFunctions(expression, evaluatorFunctions())
	if err != nil {
		return nil, fmt.Errorf("metric %q: %w", name, err)
	}
	var vars []string
	for _, v := range evaluable.Vars() {
		vars = util.UniqueAppend(vars, v)
	}
	if len(vars) == 0 {
		return nil, fmt.Errorf("metric %q: expression %q references no metric", name, expression)
	}
	return &Expression{name: name, source: expression, evaluable: evaluable, vars: vars}, nil
}

func (e *Expression) Name() string { return e.name }

// Vars returns the metric names the expression references.
func (e *Expression) Vars() []string { return e.vars }

func (e *Expression) eval(params map[string]any) (float64, error) {
	result, err := e.evaluable.Evaluate(params)
	if err != nil {
		return math.NaN(), fmt.Errorf("metric %q: %w", e.name, err)
	}
	switch v := result.(type) {
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return math.NaN(), fmt.Errorf("metric %q: expression result %v is not a number", e.name, result)
}

func (e *Expression) Derive(metrics map[string]stats.Estimate) (stats.Estimate, error) {
	params := make(map[string]any, len(e.vars))
	operands := make([]stats.Estimate, len(e.vars))
	n := math.MaxInt
	flagged := false
	for i, v := range e.vars {
		est, err := operand(metrics, e.name, v)
		if err != nil {
			return est, err
		}
		if math.IsNaN(est.Mean) {
			return stats.Missing(), &stats.DivisionByZeroError{Metric: e.name, Operand: v}
		}
		operands[i] = est
		params[v] = est.Mean
		n = min(n, est.N)
		flagged = flagged || est.Flagged || est.N < 2
	}
	mean, err := e.eval(params)
	if err != nil {
		return stats.Missing(), err
	}
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return stats.Missing(), &stats.DivisionByZeroError{Metric: e.name, Operand: e.source}
	}
	var variance float64
	for i, v := range e.vars {
		op := operands[i]
		if op.Std == 0 {
			continue
		}
		h := math.Max(math.Abs(op.Mean)*1e-6, 1e-12)
		params[v] = op.Mean + h
		up, err := e.eval(params)
		if err != nil {
			return stats.Missing(), err
		}
		params[v] = op.Mean - h
		down, err := e.eval(params)
		if err != nil {
			return stats.Missing(), err
		}
		params[v] = op.Mean
		d := (up - down) / (2 * h)
		variance += d * d * op.Std * op.Std
	}
	return stats.Estimate{Mean: mean, Std: math.Sqrt(variance), N: n, Flagged: flagged}, nil
}

func toFloat(arg any) float64 {
	switch t := arg.(type) {
	case int:
		return float64(t)
	case float64:
		return t
	}
	return math.NaN()
}

func evaluatorFunctions() map[string]govaluate.ExpressionFunction {
	functions := make(map[string]govaluate.ExpressionFunction)
	functions["max"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("max takes 2 arguments")
		}
		return max(toFloat(args[0]), toFloat(args[1])), nil
	}
	functions["min"] = func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("min takes 2 arguments")
		}
		return min(toFloat(args[0]), toFloat(args[1])), nil
	}
	functions["abs"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("abs takes 1 argument")
		}
		return math.Abs(toFloat(args[0])), nil
	}
	functions["sqrt"] = func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("sqrt takes 1 argument")
		}
		return math.Sqrt(toFloat(args[0])), nil
	}
	return functions
}

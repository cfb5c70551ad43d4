// Package stats implements the statistics of the post-processing pipeline:
// grouping repetitions into estimates, propagating uncertainty through
// derived metrics, confidence intervals and per-workload composites.
package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"math"
)

// Estimate is the mean and sample standard deviation of a quantity together
// with the number of repetitions behind them. Flagged marks estimates that
// rest, directly or through an operand, on a single repetition; combining
// repetition counts does not clear it.
type Estimate struct {
	Mean    float64
	Std     float64
	N       int
	Flagged bool
}

// single reports whether an estimate, or any estimate it was computed from,
// rests on fewer than two repetitions.
func (e Estimate) single() bool {
	return e.Flagged || e.N < 2
}

// Missing is the estimate of a quantity without any finite observation.
func Missing() Estimate {
	return Estimate{Mean: math.NaN(), Std: math.NaN(), N: 0}
}

// RelErr is Std/Mean. It is NaN or infinite when the mean is zero or missing.
func (e Estimate) RelErr() float64 {
	return e.Std / e.Mean
}

// usable reports whether the mean can appear in a relative error.
func (e Estimate) usable() bool {
	return e.Mean != 0 && !math.IsNaN(e.Mean) && !math.IsInf(e.Mean, 0)
}

// Pairing tells how the repetition counts of two operands combine.
type Pairing int

const (
	// Paired operands are measured on the same repetitions, e.g., two
	// counters of one run. The result has min(Na, Nb) repetitions.
	Paired Pairing = iota
	// Independent operands come from different executions, e.g., shared and
	// individual runs. The result has Na + Nb repetitions.
	Independent
)

func (p Pairing) String() string {
	if p == Independent {
		return "independent"
	}
	return "paired"
}

func (p Pairing) combine(a, b int) int {
	if p == Independent {
		return a + b
	}
	return min(a, b)
}

// Ratio divides a by b. The relative error of the result is the root sum
// square of the operand relative errors. Both operands need a non-zero
// finite mean; otherwise a DivisionByZeroError names the failing operand as
// "numerator" or "denominator".
func Ratio(a, b Estimate, p Pairing) (Estimate, error) {
	if !a.usable() {
		return Missing(), &DivisionByZeroError{Operand: "numerator"}
	}
	if !b.usable() {
		return Missing(), &DivisionByZeroError{Operand: "denominator"}
	}
	mean := a.Mean / b.Mean
	return Estimate{
		Mean: mean,
		Std:     math.Abs(mean) * math.Hypot(a.RelErr(), b.RelErr()),
		N:       p.combine(a.N, b.N),
		Flagged: a.single() || b.single(),
	}, nil
}

// Product multiplies a and b with the same relative error rule as Ratio.
func Product(a, b Estimate, p Pairing) (Estimate, error) {
	if !a.usable() {
		return Missing(), &DivisionByZeroError{Operand: "left factor"}
	}
	if !b.usable() {
		return Missing(), &DivisionByZeroError{Operand: "right factor"}
	}
	mean := a.Mean * b.Mean
	return Estimate{
		Mean: mean,
		Std:     math.Abs(mean) * math.Hypot(a.RelErr(), b.RelErr()),
		N:       p.combine(a.N, b.N),
		Flagged: a.single() || b.single(),
	}, nil
}

// Rate normalizes an event count per thousand instructions. Both counts come
// from the same repetitions.
func Rate(events, instructions Estimate) (Estimate, error) {
	return Ratio(events, Scale(instructions, 1.0/1000), Paired)
}

// Scale multiplies by an exact constant. The repetition count is unchanged.
func Scale(e Estimate, k float64) Estimate {
	return Estimate{Mean: e.Mean * k, Std: e.Std * math.Abs(k), N: e.N, Flagged: e.Flagged}
}

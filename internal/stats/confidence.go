package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// Method selects the critical value of confidence intervals.
type Method string

const (
	// MethodZ uses a fixed normal critical value for every repetition count.
	MethodZ Method = "z"
	// MethodT uses the Student-t quantile with N-1 degrees of freedom.
	MethodT Method = "t"
)

// MethodOptions are the accepted interval methods.
var MethodOptions = []string{string(MethodZ), string(MethodT)}

// Confidence converts estimates into two-sided confidence intervals.
type Confidence struct {
	Method Method
	Level  float64 // e.g., 0.95
	Z      float64 // critical value of MethodZ, derived from Level when zero
}

// DefaultConfidence is the 95% normal approximation, z = 1.96.
func DefaultConfidence() Confidence {
	return Confidence{Method: MethodZ, Level: 0.95, Z: 1.96}
}

// Validate checks the method and level.
func (c Confidence) Validate() error {
	if c.Method != MethodZ && c.Method != MethodT {
		return fmt.Errorf("unknown interval method %q", c.Method)
	}
	if c.Level <= 0 || c.Level >= 1 {
		return fmt.Errorf("confidence level %v must be between 0 and 1", c.Level)
	}
	if c.Z < 0 {
		return fmt.Errorf("critical value %v must be positive", c.Z)
	}
	return nil
}

// Critical returns the critical value for n repetitions. The Student-t
// value is NaN when n < 2.
func (c Confidence) Critical(n int) float64 {
	p := 1 - (1-c.Level)/2
	if c.Method == MethodT {
		if n < 2 {
			return math.NaN()
		}
		return distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 1)}.Quantile(p)
	}
	if c.Z > 0 {
		return c.Z
	}
	return distuv.UnitNormal.Quantile(p)
}

// HalfWidth is crit * std / sqrt(N). It is zero when fewer than two
// repetitions support the estimate.
func (c Confidence) HalfWidth(e Estimate) float64 {
	if e.N < 2 {
		return 0
	}
	return c.Critical(e.N) * e.Std / math.Sqrt(float64(e.N))
}

// Interval converts an estimate into a mean and confidence half-width.
func (c Confidence) Interval(e Estimate) Interval {
	return Interval{Mean: e.Mean, CI: c.HalfWidth(e), N: e.N, Flagged: e.single()}
}

// Interval is a mean with the half-width of its confidence interval.
// Flagged intervals rest, at least in part, on a single repetition and
// their width is not meaningful.
type Interval struct {
	Mean    float64
	CI      float64
	N       int
	Flagged bool
}

// Exact returns an interval without uncertainty, e.g., a median or a value
// computed from a single row.
func Exact(v float64) Interval {
	return Interval{Mean: v}
}

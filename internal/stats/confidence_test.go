package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHalfWidthScaling(t *testing.T) {
	c := DefaultConfidence()
	prev := math.Inf(1)
	for _, n := range []int{2, 3, 6, 24, 48} {
		hw := c.HalfWidth(Estimate{Mean: 1, Std: 0.5, N: n})
		assert.InDelta(t, 1.96*0.5/math.Sqrt(float64(n)), hw, 1e-12)
		assert.Less(t, hw, prev, "half-width decreases with N")
		prev = hw
		doubled := c.HalfWidth(Estimate{Mean: 1, Std: 1.0, N: n})
		assert.InDelta(t, 2*hw, doubled, 1e-12)
	}
}

func TestCriticalValues(t *testing.T) {
	tests := []struct {
		name     string
		conf     Confidence
		n        int
		expected float64
	}{
		{name: "fixed z", conf: DefaultConfidence(), n: 3, expected: 1.96},
		{name: "z from level", conf: Confidence{Method: MethodZ, Level: 0.95}, n: 3, expected: 1.959963984540054},
		{name: "t with 2 degrees of freedom", conf: Confidence{Method: MethodT, Level: 0.95}, n: 3, expected: 4.302652729911275},
		{name: "t with 5 degrees of freedom", conf: Confidence{Method: MethodT, Level: 0.95}, n: 6, expected: 2.570581835636314},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, tt.conf.Critical(tt.n), 1e-6)
		})
	}
	assert.True(t, math.IsNaN(Confidence{Method: MethodT, Level: 0.95}.Critical(1)))
}

func TestSingleRepetitionIsFlagged(t *testing.T) {
	for _, c := range []Confidence{DefaultConfidence(), {Method: MethodT, Level: 0.95}} {
		iv := c.Interval(Estimate{Mean: 4, Std: 0, N: 1})
		assert.True(t, iv.Flagged)
		assert.Equal(t, 0.0, iv.CI)
		assert.Equal(t, 4.0, iv.Mean)
	}
}

func TestConfidenceValidate(t *testing.T) {
	assert.NoError(t, DefaultConfidence().Validate())
	assert.Error(t, Confidence{Method: "x", Level: 0.95}.Validate())
	assert.Error(t, Confidence{Method: MethodT, Level: 1}.Validate())
	assert.Error(t, Confidence{Method: MethodZ, Level: 0.9, Z: -1}.Validate())
}

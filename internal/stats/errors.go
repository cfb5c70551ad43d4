package stats

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
)

// ErrDivisionByZero is matched by every DivisionByZeroError.
var ErrDivisionByZero = errors.New("division by zero")

// DivisionByZeroError reports a derived metric whose computation needed the
// relative error of an operand with a zero or missing mean.
type DivisionByZeroError struct {
	Metric  string // derived metric being computed
	Operand string // operand with zero or missing mean
	Row     string // key of the offending row, when known
}

func (e *DivisionByZeroError) Error() string {
	msg := fmt.Sprintf("division by zero computing %s: %s has a zero or missing mean", e.Metric, e.Operand)
	if e.Row != "" {
		msg += " in row " + e.Row
	}
	return msg
}

func (e *DivisionByZeroError) Is(target error) bool {
	return target == ErrDivisionByZero
}

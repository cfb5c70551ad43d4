// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

/*
Package progress provides the CLI progress indicator.
*/
package progress

import (
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Bar counts finished workloads. It draws only when stderr is a terminal so
// that redirected output and log files stay clean.
type Bar struct {
	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

// IsTerminal reports whether stderr is attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// NewBar returns a bar for total items. It is silent when show is false.
func NewBar(total int, description string, show bool) *Bar {
	b := &Bar{}
	if show && total > 0 {
		b.bar = progressbar.Default(int64(total), description)
	}
	return b
}

// Add advances the bar by one item. It is safe for concurrent use.
func (b *Bar) Add() {
	if b == nil || b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Add(1)
}

// Finish completes the bar.
func (b *Bar) Finish() {
	if b == nil || b.bar == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	_ = b.bar.Finish()
}

// Visible reports whether the bar draws.
func (b *Bar) Visible() bool {
	return b != nil && b.bar != nil
}

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package workflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"perfagg/internal/export"
	"perfagg/internal/stats"
)

// PrintSummary lists the files written and the skipped items with their
// counts.
func PrintSummary(w io.Writer, s *Summary) {
	p := message.NewPrinter(language.English) // use printer to get commas at thousands
	if len(s.Files) > 0 {
		p.Fprintf(w, "Files written (%d):\n", len(s.Files))
		for _, f := range s.Files {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
	p.Fprintf(w, "Workloads processed: %d, skipped items: %d\n", s.Processed, len(s.Skipped))
	if len(s.Skipped) > 0 {
		fmt.Fprintln(w, "Skipped:")
		for _, sk := range s.Skipped {
			fmt.Fprintf(w, "  %s\n", sk)
		}
	}
	if flagged := s.Flagged(); len(flagged) > 0 {
		p.Fprintf(w, "Values from a single repetition, interval not meaningful (%d):\n", len(flagged))
		for _, f := range flagged {
			fmt.Fprintf(w, "  %s\n", f)
		}
	}
}

// Finish prints and logs the run summary, writes the run counters and, when
// --db is set, exports the given composite rows. Skipped workloads do not
// fail the command.
func (c *Command) Finish(ctx context.Context, s *Summary, exportRows []stats.CompositeRow) error {
	PrintSummary(os.Stdout, s)
	if ctx.Err() != nil {
		slog.Warn("run interrupted", slog.String("command", c.Name))
	}
	slog.Info("run finished", slog.String("command", c.Name), slog.Int("processed", s.Processed), slog.Int("files", len(s.Files)), slog.Int("skipped", len(s.Skipped)))
	for _, sk := range s.Skipped {
		slog.Warn("skipped", slog.String("workload", sk.Workload), slog.String("item", sk.Item), slog.String("reason", sk.Reason))
	}
	if flagged := s.Flagged(); len(flagged) > 0 {
		slog.Warn("values from a single repetition", slog.String("command", c.Name), slog.Int("values", len(flagged)), slog.String("first", flagged[0]))
	}
	if c.AppContext.MetricsFile != "" {
		if err := c.Metrics.WriteFile(c.AppContext.MetricsFile); err != nil {
			return c.Fail(fmt.Errorf("failed to write metrics file: %w", err))
		}
		slog.Info("run metrics written", slog.String("file", c.AppContext.MetricsFile))
	}
	if c.AppContext.Database != "" && len(exportRows) > 0 {
		db, err := export.Open(c.AppContext.Database)
		if err != nil {
			return c.Fail(fmt.Errorf("failed to open database: %w", err))
		}
		defer db.Close()
		n, err := db.Insert(ctx, c.Name, exportRows)
		if err != nil {
			return c.Fail(fmt.Errorf("failed to export composites: %w", err))
		}
		fmt.Printf("Exported %d composite values.\n", n)
		slog.Info("composites exported", slog.Int("values", n))
	}
	return nil
}

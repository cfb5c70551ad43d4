// Package export stores workload composites in a SQL database.
package export

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"text/template"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"

	"perfagg/internal/stats"
)

// Drivers are the supported database drivers.
var Drivers = []string{"sqlite3", "mysql"}

// DB is a database holding the composites table. It is safe for concurrent
// use by multiple goroutines.
type DB struct {
	sql    *sql.DB
	driver string
}

// ParseTarget splits a --db value of the form <driver>:<dsn>.
func ParseTarget(target string) (driver, dsn string, err error) {
	driver, dsn, found := strings.Cut(target, ":")
	if !found || dsn == "" {
		return "", "", fmt.Errorf("expected <driver>:<dsn>, e.g., sqlite3:results.db")
	}
	for _, d := range Drivers {
		if d == driver {
			return driver, dsn, nil
		}
	}
	return "", "", fmt.Errorf("unsupported driver %q, valid drivers are: %s", driver, strings.Join(Drivers, ", "))
}

// Open connects to the database named by a --db value and creates the
// composites table if it is missing.
func Open(target string) (*DB, error) {
	driver, dsn, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}
	conn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	db := &DB{sql: conn, driver: driver}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

// createTmpl is evaluated with . as a map containing one entry whose key is
// the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS composites (
	id {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}BIGINT PRIMARY KEY AUTO_INCREMENT{{end}},
	run_at VARCHAR(32),
	command VARCHAR(64),
	workload VARCHAR(255),
	label VARCHAR(255),
	metric VARCHAR(255),
	mean DOUBLE,
	ci DOUBLE,
	n INTEGER,
	flagged BOOLEAN
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS composites_workload ON composites(workload, label);
{{end}}
`))

func (db *DB) createTables() error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{db.driver: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

func nullable(v float64) sql.NullFloat64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

// Insert stores one record per row and metric in a single transaction and
// returns the number of records written.
func (db *DB) Insert(ctx context.Context, command string, rows []stats.CompositeRow) (int, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO composites(run_at, command, workload, label, metric, mean, ci, n, flagged) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)")
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	defer stmt.Close()
	runAt := time.Now().UTC().Format(time.RFC3339)
	count := 0
	for _, r := range rows {
		for _, c := range r.Columns {
			v := r.Values[c]
			if _, err := stmt.ExecContext(ctx, runAt, command, r.Workload, r.Label, c, nullable(v.Mean), nullable(v.CI), v.N, v.Flagged); err != nil {
				_ = tx.Rollback()
				return 0, fmt.Errorf("insert %s/%s/%s: %w", r.Workload, r.Label, c, err)
			}
			count++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return count, nil
}

package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"encoding/csv"
	"fmt"

	"perfagg/internal/table"
)

func createCsvReport(tableValues table.TableValues) (out []byte, err error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err = w.Write(tableValues.Header()); err != nil {
		return
	}
	for row := range tableValues.NumRows() {
		if err = w.Write(tableValues.Row(row)); err != nil {
			return
		}
	}
	w.Flush()
	if err = w.Error(); err != nil {
		err = fmt.Errorf("failed to write csv report to buffer: %v", err)
		return
	}
	out = buf.Bytes()
	return
}

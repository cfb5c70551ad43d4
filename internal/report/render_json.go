package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"encoding/json"

	"perfagg/internal/table"
)

func createJsonReport(tableValues table.TableValues) (out []byte, err error) {
	type outRecord map[string]string
	type outTable []outRecord
	type outReport map[string]outTable
	oReport := make(outReport)
	oTable := outTable{}
	for recordIdx := range tableValues.NumRows() {
		oRecord := make(outRecord)
		for _, field := range tableValues.Fields {
			oRecord[field.Name] = field.Values[recordIdx]
		}
		oTable = append(oTable, oRecord)
	}
	oReport[tableValues.Name] = oTable
	return json.MarshalIndent(oReport, "", " ")
}

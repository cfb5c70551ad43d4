package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"perfagg/internal/table"
)

// use printer to get commas at thousands, e.g., 1,234,567.25
var printer = message.NewPrinter(language.English)

// textValue groups the digits of numeric cells. Other cells are unchanged.
func textValue(value string) string {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return value
	}
	return printer.Sprint(number.Decimal(v, number.MaxFractionDigits(6)))
}

func createTextReport(tableValues table.TableValues) (out []byte, err error) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", tableValues.Name))
	sb.WriteString(strings.Repeat("=", len(tableValues.Name)))
	sb.WriteString("\n")
	if tableValues.NumRows() == 0 {
		msg := noDataFound
		if tableValues.NoDataFound != "" {
			msg = tableValues.NoDataFound
		}
		sb.WriteString(msg + "\n")
		out = []byte(sb.String())
		return
	}
	sb.WriteString(DefaultTextTableRendererFunc(tableValues))
	out = []byte(sb.String())
	return
}

func DefaultTextTableRendererFunc(tableValues table.TableValues) string {
	var sb strings.Builder
	numRows := tableValues.NumRows()
	cells := make([][]string, len(tableValues.Fields))
	for i, field := range tableValues.Fields {
		cells[i] = make([]string, numRows)
		for row := range numRows {
			cells[i][row] = textValue(field.Values[row])
		}
	}
	if tableValues.HasRows { // print the field names as column headings across the top of the table
		// find the longest item per column -- can be the field name (column header) or a value
		maxFieldLen := make([]int, len(tableValues.Fields))
		for i, field := range tableValues.Fields {
			// the last column shouldn't occupy more space than the value
			if i == len(tableValues.Fields)-1 {
				continue
			}
			maxFieldLen[i] = len(field.Name)
			for _, val := range cells[i] {
				maxFieldLen[i] = max(maxFieldLen[i], len(val))
			}
		}
		columnSpacing := 3
		// print the field names
		for i, field := range tableValues.Fields {
			sb.WriteString(fmt.Sprintf("%-*s", maxFieldLen[i]+columnSpacing, field.Name))
		}
		sb.WriteString("\n")
		// underline the field names
		for i, field := range tableValues.Fields {
			sb.WriteString(fmt.Sprintf("%-*s", maxFieldLen[i]+columnSpacing, strings.Repeat("-", len(field.Name))))
		}
		sb.WriteString("\n")
		// print the rows
		for row := range numRows {
			for i := range tableValues.Fields {
				sb.WriteString(fmt.Sprintf("%-*s", maxFieldLen[i]+columnSpacing, cells[i][row]))
			}
			sb.WriteString("\n")
		}
	} else {
		// get the longest field name to format the table nicely
		maxFieldNameLen := 0
		for _, field := range tableValues.Fields {
			maxFieldNameLen = max(maxFieldNameLen, len(field.Name))
		}
		// print the field names followed by their value
		for i, field := range tableValues.Fields {
			sb.WriteString(fmt.Sprintf("%s%-*s %s\n", field.Name, maxFieldNameLen-len(field.Name)+1, ":", cells[i][0]))
		}
	}
	return sb.String()
}

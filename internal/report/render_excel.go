package report

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"perfagg/internal/table"
)

func cellName(col int, row int) (name string) {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return
	}
	name, err = excelize.JoinCellName(columnName, row)
	if err != nil {
		return
	}
	return
}

// sheetName derives a valid sheet name from a table name. Sheet names are
// limited to 31 characters and some characters are not allowed.
func sheetName(tableName string) string {
	name := []rune(tableName)
	for i, r := range name {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			name[i] = '_'
		}
	}
	if len(name) > 31 {
		name = name[:31]
	}
	if len(name) == 0 {
		return XlsxPrimarySheetName
	}
	return string(name)
}

func DefaultXlsxTableRendererFunc(tableValues table.TableValues, f *excelize.File, sheetName string, row *int) {
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold: true,
		},
	})
	alignLeft, _ := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "left",
		},
	})
	if tableValues.HasRows {
		// print the field names as column headings across the top of the table
		col := 1
		for _, field := range tableValues.Fields {
			_ = f.SetCellValue(sheetName, cellName(col, *row), field.Name)
			_ = f.SetCellStyle(sheetName, cellName(col, *row), cellName(col, *row), headerStyle)
			col++
		}
		*row++
		// print the rows
		for tableRow := range tableValues.NumRows() {
			col = 1
			for _, field := range tableValues.Fields {
				value := getValueForCell(field.Values[tableRow])
				_ = f.SetCellValue(sheetName, cellName(col, *row), value)
				_ = f.SetCellStyle(sheetName, cellName(col, *row), cellName(col, *row), alignLeft)
				col++
			}
			*row++
		}
	} else {
		// print the field name followed by its value
		for _, field := range tableValues.Fields {
			var fieldValue string
			if len(field.Values) > 0 {
				fieldValue = field.Values[0]
			}
			_ = f.SetCellValue(sheetName, cellName(1, *row), field.Name)
			_ = f.SetCellStyle(sheetName, cellName(1, *row), cellName(1, *row), headerStyle)
			_ = f.SetCellValue(sheetName, cellName(2, *row), getValueForCell(fieldValue))
			_ = f.SetCellStyle(sheetName, cellName(2, *row), cellName(2, *row), alignLeft)
			*row++
		}
	}
}

const XlsxPrimarySheetName = "Report"

func createXlsxReport(tableValues table.TableValues) (out []byte, err error) {
	f := excelize.NewFile()
	defer f.Close()
	name := sheetName(tableValues.Name)
	_ = f.SetSheetName("Sheet1", name)
	_ = f.SetColWidth(name, "A", "A", 25)
	_ = f.SetColWidth(name, "B", "Z", 18)
	row := 1
	if tableValues.NumRows() == 0 {
		msg := noDataFound
		if tableValues.NoDataFound != "" {
			msg = tableValues.NoDataFound
		}
		_ = f.SetCellValue(name, cellName(1, row), msg)
	} else {
		DefaultXlsxTableRendererFunc(tableValues, f, name, &row)
	}
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)
	_, err = f.WriteTo(w)
	if err != nil {
		err = fmt.Errorf("failed to write xlsx report to buffer: %v", err)
		return
	}
	if err = w.Flush(); err != nil {
		return
	}
	out = buf.Bytes()
	return
}

func getValueForCell(value string) (val any) {
	intValue, err := strconv.Atoi(value)
	if err == nil {
		val = intValue
		return
	}
	floatValue, err := strconv.ParseFloat(value, 64)
	if err == nil {
		val = floatValue
		return
	}
	val = value
	return
}

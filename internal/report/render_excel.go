// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

package report

// RenderExcel projects a Report to a single-sheet Excel workbook, adapted
// from the teacher repo's table-per-sheet renderer (render_excel.go): same
// cellName/NewStyle idiom, collapsed to one "Report" sheet since a STEER
// Report has a fixed, known shape rather than an open table set.

import (
	"strconv"

	"github.com/xuri/excelize/v2"
)

func cellName(col, row int) string {
	columnName, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return ""
	}
	name, err := excelize.JoinCellName(columnName, row)
	if err != nil {
		return ""
	}
	return name
}

// RenderExcel projects r to level and writes a single-sheet workbook
// summarising header fields, configuration criteria/evaluation, and
// per-test evaluation.
func RenderExcel(r *Report, level ReportLevel) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Report"
	_ = f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})

	row := 1
	writeHeaderRow := func(label, v string) {
		_ = f.SetCellValue(sheet, cellName(1, row), label)
		_ = f.SetCellStyle(sheet, cellName(1, row), cellName(1, row), boldStyle)
		_ = f.SetCellValue(sheet, cellName(2, row), v)
		row++
	}
	writeHeaderRow("Test Name", r.Header.TestName)
	writeHeaderRow("Program", r.Header.ProgramName+" "+r.Header.ProgramVersion)
	writeHeaderRow("Entropy Source", r.Header.EntropySourceID)
	writeHeaderRow("Evaluation", r.Evaluation.String())
	row++

	if level == LevelSummary {
		return f, nil
	}

	_ = f.SetCellValue(sheet, cellName(1, row), "Configuration")
	_ = f.SetCellValue(sheet, cellName(2, row), "Tests Run")
	_ = f.SetCellValue(sheet, cellName(3, row), "Tests Passed")
	_ = f.SetCellValue(sheet, cellName(4, row), "Evaluation")
	_ = f.SetCellStyle(sheet, cellName(1, row), cellName(4, row), boldStyle)
	row++
	for _, cfg := range r.Configurations {
		passed := 0
		for _, t := range cfg.Tests {
			if t.Evaluation == Pass {
				passed++
			}
		}
		_ = f.SetCellValue(sheet, cellName(1, row), strconv.FormatUint(cfg.ConfigurationID+1, 10))
		_ = f.SetCellValue(sheet, cellName(2, row), len(cfg.Tests))
		_ = f.SetCellValue(sheet, cellName(3, row), passed)
		_ = f.SetCellValue(sheet, cellName(4, row), cfg.Evaluation.String())
		row++
	}
	return f, nil
}

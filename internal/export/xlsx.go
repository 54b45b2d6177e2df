package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/tranhoait123/anki-mcq-export/internal/question"
)

// SheetName is the worksheet holding exported rows.
const SheetName = "Anki"

// XLSX returns the same rows as CSV in a single-sheet workbook.
func XLSX(qs []question.Question, opts HTMLOptions) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), SheetName); err != nil {
		return nil, fmt.Errorf("xlsx sheet: %w", err)
	}

	write := func(col, row int, v string) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return f.SetCellValue(SheetName, cell, v)
	}

	for i, h := range Header {
		if err := write(i+1, 1, h); err != nil {
			return nil, fmt.Errorf("xlsx header: %w", err)
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		last, _ := excelize.CoordinatesToCellName(len(Header), 1)
		_ = f.SetCellStyle(SheetName, "A1", last, style)
	}

	for i, r := range Rows(qs, opts) {
		for j, v := range r.Cells() {
			if err := write(j+1, i+2, v); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", i+1, err)
			}
		}
	}

	_ = f.SetColWidth(SheetName, "A", "A", 60) // question
	_ = f.SetColWidth(SheetName, "B", "F", 28) // options
	_ = f.SetColWidth(SheetName, "G", "G", 14)
	_ = f.SetColWidth(SheetName, "H", "H", 80) // explanation
	_ = f.SetColWidth(SheetName, "I", "J", 18)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

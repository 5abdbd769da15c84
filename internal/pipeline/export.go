package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"payslip/internal"
)

var exportLeadHeaders = []string{"block", "row"}

// ExportRecordsToXLSX writes one row per record with every formatted field,
// for checking a workbook before slips are sent out.
func ExportRecordsToXLSX(records []internal.EmployeeRecord, outputPath string) error {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)

	headers := append(append([]string{}, exportLeadHeaders...), internal.RecordFields...)
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, rec := range records {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, rec.Block+1)
		set(2, rec.RowNumber)
		for j, field := range internal.RecordFields {
			set(len(exportLeadHeaders)+j+1, rec.Field(field))
		}
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}

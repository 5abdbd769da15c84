package pipeline

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"payslip/internal/slip"
	"payslip/internal/storage"
)

func mkXLSX(rows [][]any) []byte {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for r, row := range rows {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, _ := excelize.CoordinatesToCellName(c+1, r+1)
			_ = f.SetCellValue(sheet, cell, v)
		}
	}
	buf := bytes.NewBuffer(nil)
	_, _ = f.WriteTo(buf)
	return buf.Bytes()
}

var payrollHeader = []any{
	"S/N", "Name", "Rank", "From", "To", "Day on Board",
	"Basic Salary", "Fixed OT", "Leave Pay", "Allowance", "Net Salary", "Reimbursement", "Subtotal",
	"Deduction", "Release", "Retaining", "Remittance – Foreign", "Remittance – Singapore", "Remarks",
}

// payrollRows is a two vessel summary: ALPHA with two crew, BETA with one.
func payrollRows() [][]any {
	return [][]any{
		{"Crew payroll summary March 2024"},
		{"Vessel Name: ALPHA"},
		payrollHeader,
		{1, "Tony Tan", "Master", "2024-03-01", "2024-03-31", 31, 5000, 800, 0, 150.5, 5000, 0, 5950.5, 0, 2000, 950.5, 3000, 0, "Joined at Singapore"},
		{2, "Ali Bin Ahmad", "Cook", "2024-03-01", "2024-03-15", 15, 1200, nil, nil, nil, 1200, nil, 1200, 50, 0, 0, 0, 1150, "-"},
		{nil, "Total", nil, nil, nil, nil, 6200},
		{"Vessel Name:", "BETA"},
		payrollHeader,
		{1, "Wei Ming", "Chief Engineer", "2024-03-05", "2024-03-31", 27, 4200, 600, 100, 0, 4900, 0, 4900, 0, 1500, 400, 3000, 0, 0},
	}
}

func newTestGenerator(t *testing.T, db *storage.DB) *Generator {
	t.Helper()
	tmpl, err := LoadTemplate("")
	if err != nil {
		t.Fatal(err)
	}
	return NewGenerator(tmpl, slip.DefaultLabels(), slip.DefaultTextStyle(), "Unknown_Vessel", db, zap.NewNop())
}

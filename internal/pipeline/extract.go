package pipeline

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"payslip/internal"
	"payslip/internal/util"
)

const (
	sourceRemittanceForeign   = "remittance_foreign"
	sourceRemittanceSingapore = "remittance_singapore"
)

// sourceProbes lists, per source column, the normalized probes tried in
// order. A probe matches a header key by containment; a leading "=" demands
// equality for short probes that would otherwise hit unrelated headers.
var sourceProbes = map[string][]string{
	internal.FieldName:          {"name"},
	internal.FieldRank:          {"rank"},
	internal.FieldPeriodFrom:    {"from(date)", "fromdate", "=from"},
	internal.FieldPeriodTo:      {"to(date)", "todate", "=to"},
	internal.FieldDaysOnBoard:   {"dayonboard", "daysonboard"},
	internal.FieldBasicSalary:   {"basicsalary"},
	internal.FieldFixedOT:       {"fixedot", "fixedovertime"},
	internal.FieldLeavePay:      {"leavepay"},
	internal.FieldAllowance:     {"allowance"},
	internal.FieldNetSalary:     {"netsalary"},
	internal.FieldReimbursement: {"reimbursement"},
	internal.FieldSubtotal:      {"subtotal"},
	internal.FieldDeduction:     {"deduction"},
	internal.FieldRelease:       {"release"},
	internal.FieldRetaining:     {"retaining"},
	sourceRemittanceForeign:     {"remittance–foreign", "remittance-foreign", "foreign"},
	sourceRemittanceSingapore:   {"remittance–singapore", "remittance-singapore", "singapore"},
	internal.FieldRemarks:       {"remarks", "remark"},
}

type headerColumn struct {
	key string
	col int
}

// columnIndex resolves source columns against one block's header map.
type columnIndex struct {
	columns []headerColumn
}

func newColumnIndex(header internal.HeaderMap) columnIndex {
	columns := make([]headerColumn, 0, len(header))
	for key, col := range header {
		columns = append(columns, headerColumn{key: key, col: col})
	}
	sort.Slice(columns, func(i, j int) bool { return columns[i].col < columns[j].col })
	return columnIndex{columns: columns}
}

// lookup returns the column of the first header, in column order, that the
// field's probes match. Absent fields report false.
func (ci columnIndex) lookup(field string) (int, bool) {
	for _, probe := range sourceProbes[field] {
		exact := strings.HasPrefix(probe, "=")
		probe = util.NormalizeKey(strings.TrimPrefix(probe, "="))
		for _, hc := range ci.columns {
			if (exact && hc.key == probe) || (!exact && strings.Contains(hc.key, probe)) {
				return hc.col, true
			}
		}
	}
	return 0, false
}

func (ci columnIndex) raw(row []any, field string) any {
	col, ok := ci.lookup(field)
	if !ok {
		return nil
	}
	return cellAt(row, col)
}

func (ci columnIndex) text(row []any, field string) string {
	return CellText(ci.raw(row, field))
}

// amount is text for an amount column. A time here is a number the
// workbook reader mistook for a date, so its serial is restored.
func (ci columnIndex) amount(row []any, field string) string {
	if tm, ok := ci.raw(row, field).(time.Time); ok {
		return strconv.FormatFloat(excelSerial(tm), 'f', -1, 64)
	}
	return ci.text(row, field)
}

var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// excelSerial is the 1900 date system serial of tm; serials before
// March 1900 are off by one, as in Excel.
func excelSerial(tm time.Time) float64 {
	return tm.UTC().Sub(excelEpoch).Hours() / 24
}

// ExtractRecords yields one record per data row, in block order and row
// order within a block.
func ExtractRecords(grid internal.RawGrid, blocks []internal.VesselBlock) []internal.EmployeeRecord {
	out := []internal.EmployeeRecord{}
	for b, block := range blocks {
		ci := newColumnIndex(block.Header)
		for _, rowIdx := range block.DataRows {
			if rowIdx < 0 || rowIdx >= len(grid) {
				continue
			}
			out = append(out, extractRecord(ci, block, b, grid[rowIdx], rowIdx))
		}
	}
	return out
}

// ExtractRecord builds a record for one data row of a block.
func ExtractRecord(block internal.VesselBlock, row []any) internal.EmployeeRecord {
	return extractRecord(newColumnIndex(block.Header), block, 0, row, -1)
}

func extractRecord(ci columnIndex, block internal.VesselBlock, blockIdx int, row []any, rowIdx int) internal.EmployeeRecord {
	money := func(field string) string {
		return util.FormatCurrency(ci.amount(row, field))
	}

	remittance := util.ResolveRemittance(
		ci.amount(row, sourceRemittanceForeign),
		ci.amount(row, sourceRemittanceSingapore),
	)

	return internal.EmployeeRecord{
		Block:     blockIdx,
		RowNumber: rowIdx + 1,

		Vessel:      block.VesselName,
		Name:        util.NormalizeSpaces(ci.text(row, internal.FieldName)),
		Rank:        util.NormalizeSpaces(ci.text(row, internal.FieldRank)),
		PeriodFrom:  util.FormatDate(ci.raw(row, internal.FieldPeriodFrom)),
		PeriodTo:    util.FormatDate(ci.raw(row, internal.FieldPeriodTo)),
		DaysOnBoard: util.StripIntegerSuffix(ci.text(row, internal.FieldDaysOnBoard)),

		BasicSalary:   money(internal.FieldBasicSalary),
		FixedOT:       money(internal.FieldFixedOT),
		LeavePay:      money(internal.FieldLeavePay),
		Allowance:     money(internal.FieldAllowance),
		NetSalary:     money(internal.FieldNetSalary),
		Reimbursement: money(internal.FieldReimbursement),
		Subtotal:      money(internal.FieldSubtotal),
		Deduction:     money(internal.FieldDeduction),
		Release:       money(internal.FieldRelease),
		Retaining:     money(internal.FieldRetaining),
		Remittance:    util.FormatCurrency(remittance),

		Remarks: ci.text(row, internal.FieldRemarks),
	}
}

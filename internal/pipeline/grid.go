package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"payslip/internal"
	"payslip/internal/util"
)

const (
	maxXLSRows = 100000

	xlsFormulaText = "FormulaCol"
)

var reQuotedOrBracketed = regexp.MustCompile(`"[^"]*"|\[[^\]]*\]`)

// LoadGrid reads the first sheet of a workbook. The extension selects the
// reader: .xls, .html/.htm, anything else is treated as .xlsx.
func LoadGrid(filename string, data []byte) (internal.RawGrid, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xls":
		return readXLS(data)
	case ".html", ".htm":
		return GridFromHTML(string(data))
	default:
		return readXLSX(data)
	}
}

func readXLSX(data []byte) (internal.RawGrid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		return nil, errors.New("workbook has no worksheet")
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	raw, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read raw sheet %q: %w", sheet, err)
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	grid := make(internal.RawGrid, len(rows))
	for r, row := range rows {
		cells := make([]any, len(row))
		for c, text := range row {
			cells[c] = text
			if r >= len(raw) || c >= len(raw[r]) || raw[r][c] == text {
				continue
			}
			if tm, ok := dateCell(f, sheet, c, r, raw[r][c], date1904); ok {
				cells[c] = tm
				continue
			}
			if v, ok := storedNumber(f, sheet, c, r, raw[r][c]); ok {
				cells[c] = v
			}
		}
		grid[r] = cells
	}
	return grid, nil
}

// dateCell converts a serial number to a time when the cell carries a date
// number format.
func dateCell(f *excelize.File, sheet string, col, row int, raw string, date1904 bool) (time.Time, bool) {
	serial, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || serial <= 0 {
		return time.Time{}, false
	}
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return time.Time{}, false
	}
	styleID, err := f.GetCellStyle(sheet, name)
	if err != nil {
		return time.Time{}, false
	}
	style, err := f.GetStyle(styleID)
	if err != nil || style == nil || !isDateStyle(style) {
		return time.Time{}, false
	}
	tm, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return time.Time{}, false
	}
	return tm, true
}

// storedNumber returns the unformatted value of a numeric cell so number
// formats cannot round or decorate amounts.
func storedNumber(f *excelize.File, sheet string, col, row int, raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if _, err := strconv.ParseFloat(raw, 64); err != nil {
		return "", false
	}
	name, err := excelize.CoordinatesToCellName(col+1, row+1)
	if err != nil {
		return "", false
	}
	if typ, err := f.GetCellType(sheet, name); err == nil && typ == excelize.CellTypeBool {
		return "", false
	}
	return raw, true
}

func isDateStyle(style *excelize.Style) bool {
	if style.CustomNumFmt != nil {
		format := strings.ToLower(reQuotedOrBracketed.ReplaceAllString(*style.CustomNumFmt, ""))
		return strings.ContainsAny(format, "yd")
	}
	id := style.NumFmt
	return (id >= 14 && id <= 22) || (id >= 27 && id <= 36) || (id >= 45 && id <= 47) || (id >= 50 && id <= 58)
}

func readXLS(data []byte) (grid internal.RawGrid, err error) {
	// the xls reader panics on some malformed BIFF records
	defer func() {
		if r := recover(); r != nil {
			grid, err = nil, fmt.Errorf("read xls workbook: %v", r)
		}
	}()

	workbook, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open xls workbook: %w", err)
	}
	if workbook.NumSheets() == 0 {
		return nil, errors.New("workbook has no worksheet")
	}
	rows := workbook.ReadAllCells(maxXLSRows)
	grid = make(internal.RawGrid, len(rows))
	for r, row := range rows {
		cells := make([]any, len(row))
		for c, text := range row {
			cells[c] = xlsCell(text)
		}
		grid[r] = cells
	}
	return grid, nil
}

// xlsCell undoes the xls reader's text rendering. Formula cells carry no
// cached value and become blank. Numbers with a user-defined format come
// back as RFC3339 timestamps; they load as times and the extractor turns
// them back into serials for amount columns. Built-in date formats render
// as "2006.01" and the day is not recoverable.
func xlsCell(text string) any {
	if text == xlsFormulaText {
		return nil
	}
	if tm, err := time.Parse(time.RFC3339, text); err == nil {
		return tm
	}
	return text
}

// GridFromHTML reads the first table that carries an "S/N" header cell, or
// the first table when none does.
func GridFromHTML(html string) (internal.RawGrid, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	tables := doc.Find("table")
	if tables.Length() == 0 {
		return nil, errors.New("html has no table")
	}

	picked := tables.First()
	tables.EachWithBreak(func(_ int, table *goquery.Selection) bool {
		found := false
		table.Find("th,td").EachWithBreak(func(_ int, cell *goquery.Selection) bool {
			if util.NormalizeKey(cell.Text()) == headerMarker {
				found = true
				return false
			}
			return true
		})
		if found {
			picked = table
			return false
		}
		return true
	})

	grid := internal.RawGrid{}
	picked.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := []any{}
		row.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
			cells = append(cells, util.NormalizeSpaces(cell.Text()))
		})
		grid = append(grid, cells)
	})
	return grid, nil
}

// CellText renders a grid cell as trimmed text.
func CellText(v any) string {
	switch c := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(c)
	case time.Time:
		return c.Format("2006-01-02")
	default:
		return strings.TrimSpace(fmt.Sprint(c))
	}
}

func cellAt(row []any, idx int) any {
	if idx < 0 || idx >= len(row) {
		return nil
	}
	return row[idx]
}

package slip

import (
	"strings"

	"github.com/beevik/etree"

	"payslip/internal/util"
)

const (
	matchNone = iota
	matchContains
	matchExact
)

// gridCell is a table cell with its starting grid column; merged cells span
// several columns.
type gridCell struct {
	el   *etree.Element
	col  int
	span int
}

func rowCells(tr *etree.Element) []gridCell {
	out := []gridCell{}
	col := 0
	for _, tc := range tr.SelectElements("w:tc") {
		span := 1
		if gs := tc.FindElement("./w:tcPr/w:gridSpan"); gs != nil {
			if n, ok := util.PositiveInt(gs.SelectAttrValue("w:val", "1")); ok {
				span = n
			}
		}
		out = append(out, gridCell{el: tc, col: col, span: span})
		col += span
	}
	return out
}

func cellCovering(cells []gridCell, col int) *etree.Element {
	for _, c := range cells {
		if col >= c.col && col < c.col+c.span {
			return c.el
		}
	}
	return nil
}

func labelKey(text string) string {
	return strings.TrimRight(util.NormalizeKey(text), ":：")
}

// matchLabel compares a cell text with a label under normalization. Equality
// outranks containment so "Name" prefers a "Name:" cell over "Vessel Name".
func matchLabel(cellText, label string) int {
	key, want := labelKey(cellText), labelKey(label)
	switch {
	case key == "" || want == "":
		return matchNone
	case key == want:
		return matchExact
	case strings.Contains(key, want):
		return matchContains
	default:
		return matchNone
	}
}

// locateRight finds the best label cell for label in tbl and returns the
// cell immediately to its right. It reports false when the label is absent
// or sits in the last cell of its row; callers leave the value unfilled.
func locateRight(tbl *etree.Element, label string) (*etree.Element, bool) {
	best := matchNone
	var target *etree.Element
	found := false
	for _, tr := range tbl.SelectElements("w:tr") {
		cells := rowCells(tr)
		for i, c := range cells {
			score := matchLabel(visibleText(c.el), label)
			if score <= best {
				continue
			}
			best = score
			found = i+1 < len(cells)
			target = nil
			if found {
				target = cells[i+1].el
			}
		}
	}
	return target, found
}

// TableLayout is the dual-section layout of the amounts table: earnings on
// the left, deductions on the right, each with its own "Amount" column.
type TableLayout struct {
	EarningsCol   int
	DeductionsCol int
	DataRowStart  int
}

// ParseTableLayout scans the first scanRows rows for a header carrying two
// amount columns. The earlier is the earnings column, the later the
// deductions column.
func ParseTableLayout(tbl *etree.Element, amountHeader string, scanRows int) (TableLayout, bool) {
	rows := tbl.SelectElements("w:tr")
	for r := 0; r < len(rows) && r < scanRows; r++ {
		amountCols := []int{}
		for _, c := range rowCells(rows[r]) {
			if matchLabel(visibleText(c.el), amountHeader) != matchNone {
				amountCols = append(amountCols, c.col)
			}
		}
		if len(amountCols) >= 2 {
			return TableLayout{
				EarningsCol:   amountCols[0],
				DeductionsCol: amountCols[1],
				DataRowStart:  r + 1,
			}, true
		}
	}
	return TableLayout{}, false
}

// bestBinding returns the binding whose label best matches one of cells.
// On equal scores the earlier binding wins.
func bestBinding(cells []gridCell, bindings []LabelBinding) (LabelBinding, bool) {
	best := matchNone
	var picked LabelBinding
	for _, b := range bindings {
		for _, c := range cells {
			if score := matchLabel(visibleText(c.el), b.Label); score > best {
				best = score
				picked = b
			}
		}
	}
	return picked, best != matchNone
}

func cellsBefore(cells []gridCell, col int) []gridCell {
	out := []gridCell{}
	for _, c := range cells {
		if c.col < col {
			out = append(out, c)
		}
	}
	return out
}

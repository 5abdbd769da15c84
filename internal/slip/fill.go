package slip

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"payslip/internal"
	"payslip/internal/util"
)

const (
	identityTable = 0
	periodTable   = 1
	amountsTable  = 2
)

// FillReport lists the sections and labels that were left at their template
// default for one employee.
type FillReport struct {
	Skipped []string
}

func (r *FillReport) skip(format string, args ...any) {
	r.Skipped = append(r.Skipped, fmt.Sprintf(format, args...))
}

type Filler struct {
	labels Labels
	style  TextStyle
}

func NewFiller(labels Labels, style TextStyle) *Filler {
	return &Filler{labels: labels, style: style}
}

// Fill returns a populated copy of tmpl for rec. Only an unreadable template
// is an error; anything the template lacks is reported and left as is.
func (f *Filler) Fill(tmpl *Template, rec internal.EmployeeRecord) (*Document, FillReport, error) {
	doc, err := tmpl.Open()
	if err != nil {
		return nil, FillReport{}, err
	}

	report := FillReport{}
	f.fillLabelTable(doc.Table(identityTable), "identity", f.labels.Identity, rec, &report)
	f.fillLabelTable(doc.Table(periodTable), "period", f.labels.Period, rec, &report)
	f.fillAmounts(doc.Table(amountsTable), rec, &report)
	f.appendRemarks(doc, rec, &report)
	collapseEmptyParagraphs(doc)
	return doc, report, nil
}

func (f *Filler) fillLabelTable(tbl *etree.Element, section string, bindings []LabelBinding, rec internal.EmployeeRecord, report *FillReport) {
	if tbl == nil {
		report.skip("%s table missing", section)
		return
	}

	// Locate every target before writing so written values are never
	// mistaken for labels.
	targets := make([]*etree.Element, len(bindings))
	for i, b := range bindings {
		cell, ok := locateRight(tbl, b.Label)
		if !ok {
			report.skip("%s label %q not found", section, b.Label)
			continue
		}
		targets[i] = cell
	}

	for i, b := range bindings {
		if targets[i] == nil {
			continue
		}
		f.writeValue(targets[i], rec.Field(b.Field))
	}
}

func (f *Filler) fillAmounts(tbl *etree.Element, rec internal.EmployeeRecord, report *FillReport) {
	if tbl == nil {
		report.skip("amounts table missing")
		return
	}
	layout, ok := ParseTableLayout(tbl, f.labels.AmountHeader, f.labels.HeaderScanRows)
	if !ok {
		report.skip("amounts header with two %q columns not found", f.labels.AmountHeader)
		return
	}

	type write struct {
		cell  *etree.Element
		value string
	}
	writes := []write{}
	rows := tbl.SelectElements("w:tr")
	for r := layout.DataRowStart; r < len(rows); r++ {
		cells := rowCells(rows[r])
		if b, ok := bestBinding(cellsBefore(cells, layout.EarningsCol), f.labels.Earnings); ok {
			if cell := cellCovering(cells, layout.EarningsCol); cell != nil {
				writes = append(writes, write{cell: cell, value: rec.Field(b.Field)})
			}
		}
		if b, ok := bestBinding(cells, f.labels.Deductions); ok {
			if cell := cellCovering(cells, layout.DeductionsCol); cell != nil {
				writes = append(writes, write{cell: cell, value: rec.Field(b.Field)})
			}
		}
	}
	for _, w := range writes {
		f.writeValue(w.cell, w.value)
	}
}

// writeValue replaces the cell content with value in the slip style. Empty
// values keep the template default.
func (f *Filler) writeValue(tc *etree.Element, value string) {
	value = util.StripIntegerSuffix(value)
	if value == "" {
		return
	}

	paragraphs := tc.SelectElements("w:p")
	var p *etree.Element
	if len(paragraphs) == 0 {
		p = tc.CreateElement("w:p")
	} else {
		p = paragraphs[0]
		for _, extra := range paragraphs[1:] {
			tc.RemoveChild(extra)
		}
	}
	for _, child := range p.ChildElements() {
		if child.FullTag() != "w:pPr" {
			p.RemoveChild(child)
		}
	}
	f.style.applyParagraph(p)
	f.style.appendRuns(p, value)
}

func (f *Filler) appendRemarks(doc *Document, rec internal.EmployeeRecord, report *FillReport) {
	remarks := strings.TrimSpace(rec.Remarks)
	if f.isPlaceholder(remarks) {
		return
	}

	anchor := util.NormalizeKey(f.labels.RemarksAnchor)
	for _, p := range doc.Paragraphs() {
		if anchor == "" || !strings.Contains(util.NormalizeKey(visibleText(p)), anchor) {
			continue
		}
		parent := p.Parent()
		if parent == nil {
			break
		}
		remarksP := etree.NewElement("w:p")
		f.style.applyParagraph(remarksP)
		f.style.appendRuns(remarksP, remarks)
		parent.InsertChildAt(p.Index()+1, remarksP)
		return
	}
	report.skip("remarks anchor %q not found", f.labels.RemarksAnchor)
}

// isPlaceholder reports remarks that carry no information: blank, a zero
// amount, or one of the configured placeholder tokens.
func (f *Filler) isPlaceholder(remarks string) bool {
	if remarks == "" {
		return true
	}
	if v, ok := util.ParseAmount(remarks); ok && v == 0 {
		return true
	}
	key := util.NormalizeKey(remarks)
	for _, p := range f.labels.RemarksPlaceholders {
		if key == util.NormalizeKey(p) {
			return true
		}
	}
	return false
}

// collapseEmptyParagraphs shrinks body paragraphs without visible content so
// template spacing does not push the slip onto another page.
func collapseEmptyParagraphs(doc *Document) {
	for _, p := range doc.BodyParagraphs() {
		if strings.TrimSpace(visibleText(p)) != "" || hasGraphics(p) {
			continue
		}
		collapseParagraph(p)
	}
}

func hasGraphics(p *etree.Element) bool {
	return p.FindElement(".//w:drawing") != nil ||
		p.FindElement(".//w:pict") != nil ||
		p.FindElement(".//w:object") != nil
}

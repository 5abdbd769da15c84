package slip

import (
	"archive/zip"
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/beevik/etree"
)

const (
	nsWordMain = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

	contentTypesXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>
<Default Extension="xml" ContentType="application/xml"/>
<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>
</Types>`

	packageRelsXML = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">
<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>
</Relationships>`

	// A4 portrait, text width in twips.
	pageWidthTwips  = 11906
	pageHeightTwips = 16838
	pageMarginTwips = 1134
)

var defaultTemplateTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// DefaultTemplate builds the built-in pay slip used when no template file is
// configured. It carries the identity, voyage period and amounts tables and
// a "Remarks:" anchor in the layout the filler expects.
func DefaultTemplate() ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement("w:document")
	root.CreateAttr("xmlns:w", nsWordMain)
	body := root.CreateElement("w:body")

	templateParagraph(body, "PAY SLIP", true)
	templateParagraph(body, "", false)
	templateTable(body, [][]string{
		{"Name", "", "Rank", ""},
		{"Vessel", "", "", ""},
	})
	templateParagraph(body, "", false)
	templateTable(body, [][]string{
		{"From", "", "To", "", "Days on Board", ""},
	})
	templateParagraph(body, "", false)
	templateTable(body, [][]string{
		{"Earnings", "Amount", "Deductions", "Amount"},
		{"Basic Salary", "", "Deduction", ""},
		{"Fixed OT", "", "Release", ""},
		{"Leave Pay", "", "Retaining", ""},
		{"Allowance", "", "Remittance", ""},
		{"Reimbursement", "", "Net Salary", ""},
		{"Subtotal", "", "", ""},
	})
	templateParagraph(body, "", false)
	templateParagraph(body, "Remarks:", true)
	templateParagraph(body, "", false)
	templateParagraph(body, "", false)
	templateParagraph(body, "This pay slip is computer generated and requires no signature.", false)

	sectPr := body.CreateElement("w:sectPr")
	pgSz := sectPr.CreateElement("w:pgSz")
	pgSz.CreateAttr("w:w", strconv.Itoa(pageWidthTwips))
	pgSz.CreateAttr("w:h", strconv.Itoa(pageHeightTwips))
	pgMar := sectPr.CreateElement("w:pgMar")
	for _, side := range []string{"w:top", "w:right", "w:bottom", "w:left"} {
		pgMar.CreateAttr(side, strconv.Itoa(pageMarginTwips))
	}

	mainXML, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize default template: %w", err)
	}

	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)
	parts := []struct {
		name string
		data []byte
	}{
		{name: "[Content_Types].xml", data: []byte(contentTypesXML)},
		{name: "_rels/.rels", data: []byte(packageRelsXML)},
		{name: documentPart, data: mainXML},
	}
	for _, part := range parts {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: part.name, Method: zip.Deflate, Modified: defaultTemplateTime})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(part.data); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func templateParagraph(parent *etree.Element, text string, bold bool) *etree.Element {
	p := parent.CreateElement("w:p")
	if text == "" {
		return p
	}
	r := p.CreateElement("w:r")
	if bold {
		r.CreateElement("w:rPr").CreateElement("w:b")
	}
	t := r.CreateElement("w:t")
	t.CreateAttr("xml:space", "preserve")
	t.SetText(text)
	return p
}

func templateTable(body *etree.Element, rows [][]string) {
	cols := 0
	for _, row := range rows {
		if len(row) > cols {
			cols = len(row)
		}
	}
	colWidth := (pageWidthTwips - 2*pageMarginTwips) / cols

	tbl := body.CreateElement("w:tbl")
	tblPr := tbl.CreateElement("w:tblPr")
	tblW := tblPr.CreateElement("w:tblW")
	tblW.CreateAttr("w:w", "5000")
	tblW.CreateAttr("w:type", "pct")
	borders := tblPr.CreateElement("w:tblBorders")
	for _, edge := range []string{"w:top", "w:left", "w:bottom", "w:right", "w:insideH", "w:insideV"} {
		b := borders.CreateElement(edge)
		b.CreateAttr("w:val", "single")
		b.CreateAttr("w:sz", "4")
		b.CreateAttr("w:space", "0")
		b.CreateAttr("w:color", "000000")
	}

	grid := tbl.CreateElement("w:tblGrid")
	for i := 0; i < cols; i++ {
		grid.CreateElement("w:gridCol").CreateAttr("w:w", strconv.Itoa(colWidth))
	}

	for _, row := range rows {
		tr := tbl.CreateElement("w:tr")
		for i := 0; i < cols; i++ {
			text := ""
			if i < len(row) {
				text = row[i]
			}
			tc := tr.CreateElement("w:tc")
			tcW := tc.CreateElement("w:tcPr").CreateElement("w:tcW")
			tcW.CreateAttr("w:w", strconv.Itoa(colWidth))
			tcW.CreateAttr("w:type", "dxa")
			templateParagraph(tc, text, false)
		}
	}
}

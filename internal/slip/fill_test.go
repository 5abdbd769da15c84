package slip

import (
	"archive/zip"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"payslip/internal"
)

func defaultTemplate(t *testing.T) *Template {
	t.Helper()
	blob, err := DefaultTemplate()
	require.NoError(t, err)
	tmpl, err := LoadTemplate(blob)
	require.NoError(t, err)
	return tmpl
}

func templateFromBody(t *testing.T, bodyXML string) *Template {
	t.Helper()
	mainXML := `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` +
		`<w:document xmlns:w="` + nsWordMain + `"><w:body>` + bodyXML + `</w:body></w:document>`
	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)
	w, err := zw.Create(documentPart)
	require.NoError(t, err)
	_, err = w.Write([]byte(mainXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	tmpl, err := LoadTemplate(buf.Bytes())
	require.NoError(t, err)
	return tmpl
}

func cellText(t *testing.T, doc *Document, table, row, col int) string {
	t.Helper()
	tbl := doc.Table(table)
	require.NotNil(t, tbl, "table %d", table)
	rows := tbl.SelectElements("w:tr")
	require.Greater(t, len(rows), row)
	cells := rows[row].SelectElements("w:tc")
	require.Greater(t, len(cells), col)
	return visibleText(cells[col])
}

func sampleRecord() internal.EmployeeRecord {
	return internal.EmployeeRecord{
		Vessel:      "ALPHA",
		Name:        "Tony Tan",
		Rank:        "Master",
		PeriodFrom:  "07/03/2024",
		PeriodTo:    "31/03/2024",
		DaysOnBoard: "25.0",
		BasicSalary: "1,234.50",
		FixedOT:     "300.00",
		LeavePay:    "120.00",
		Allowance:   "50.00",
		Subtotal:    "1,704.50",
		Deduction:   "10.00",
		Release:     "200.00",
		Retaining:   "100.00",
		Remittance:  "500.00",
		NetSalary:   "1,394.50",
		Remarks:     "Joined at Singapore",
	}
}

func TestFillDefaultTemplate(t *testing.T) {
	tmpl := defaultTemplate(t)
	filler := NewFiller(DefaultLabels(), DefaultTextStyle())

	doc, report, err := filler.Fill(tmpl, sampleRecord())
	require.NoError(t, err)
	assert.Empty(t, report.Skipped)

	assert.Equal(t, "Tony Tan", cellText(t, doc, 0, 0, 1))
	assert.Equal(t, "Master", cellText(t, doc, 0, 0, 3))
	assert.Equal(t, "ALPHA", cellText(t, doc, 0, 1, 1))

	assert.Equal(t, "07/03/2024", cellText(t, doc, 1, 0, 1))
	assert.Equal(t, "31/03/2024", cellText(t, doc, 1, 0, 3))
	assert.Equal(t, "25", cellText(t, doc, 1, 0, 5))

	assert.Equal(t, "1,234.50", cellText(t, doc, 2, 1, 1))
	assert.Equal(t, "10.00", cellText(t, doc, 2, 1, 3))
	assert.Equal(t, "300.00", cellText(t, doc, 2, 2, 1))
	assert.Equal(t, "200.00", cellText(t, doc, 2, 2, 3))
	assert.Equal(t, "500.00", cellText(t, doc, 2, 4, 3))
	assert.Equal(t, "1,394.50", cellText(t, doc, 2, 5, 3))
	assert.Equal(t, "1,704.50", cellText(t, doc, 2, 6, 1))
	assert.Equal(t, "", cellText(t, doc, 2, 6, 3))

	// header labels untouched
	assert.Equal(t, "Amount", cellText(t, doc, 2, 0, 1))
	assert.Equal(t, "Amount", cellText(t, doc, 2, 0, 3))
}

func TestFillLeavesBlankAmountAtTemplateDefault(t *testing.T) {
	tmpl := defaultTemplate(t)
	rec := sampleRecord()
	rec.BasicSalary = ""

	doc, _, err := NewFiller(DefaultLabels(), DefaultTextStyle()).Fill(tmpl, rec)
	require.NoError(t, err)
	assert.Equal(t, "", cellText(t, doc, 2, 1, 1))
}

func TestFillWritesFixedStyle(t *testing.T) {
	tmpl := defaultTemplate(t)
	style := TextStyle{Font: "Calibri", SizePt: 11, Bold: true, Align: "center", LineTwips: 240}

	doc, _, err := NewFiller(DefaultLabels(), style).Fill(tmpl, sampleRecord())
	require.NoError(t, err)

	cell := doc.Table(0).SelectElements("w:tr")[0].SelectElements("w:tc")[1]
	run := cell.FindElement(".//w:r")
	require.NotNil(t, run)
	assert.Equal(t, "Calibri", run.FindElement("./w:rPr/w:rFonts").SelectAttrValue("w:ascii", ""))
	assert.Equal(t, "22", run.FindElement("./w:rPr/w:sz").SelectAttrValue("w:val", ""))
	assert.NotNil(t, run.FindElement("./w:rPr/w:b"))
	assert.Equal(t, "center", cell.FindElement(".//w:pPr/w:jc").SelectAttrValue("w:val", ""))
}

func TestFillNeverMutatesTemplate(t *testing.T) {
	tmpl := defaultTemplate(t)
	filler := NewFiller(DefaultLabels(), DefaultTextStyle())

	first := sampleRecord()
	second := sampleRecord()
	second.Name = "Ali Bin Ahmad"
	second.BasicSalary = ""

	_, _, err := filler.Fill(tmpl, first)
	require.NoError(t, err)
	doc, _, err := filler.Fill(tmpl, second)
	require.NoError(t, err)

	assert.NotContains(t, doc.Text(), "Tony Tan")
	assert.Equal(t, "", cellText(t, doc, 2, 1, 1))

	pristine, err := tmpl.Open()
	require.NoError(t, err)
	assert.NotContains(t, pristine.Text(), "Tony Tan")
	assert.NotContains(t, pristine.Text(), "Ali Bin Ahmad")
}

func TestFillRemarks(t *testing.T) {
	tmpl := defaultTemplate(t)
	filler := NewFiller(DefaultLabels(), DefaultTextStyle())

	doc, _, err := filler.Fill(tmpl, sampleRecord())
	require.NoError(t, err)
	lines := strings.Split(doc.Text(), "\n")
	idx := -1
	for i, line := range lines {
		if line == "Remarks:" {
			idx = i
		}
	}
	require.GreaterOrEqual(t, idx, 0)
	require.Greater(t, len(lines), idx+1)
	assert.Equal(t, "Joined at Singapore", lines[idx+1])

	for _, placeholder := range []string{"", "0", "0.00", "-", "N/A"} {
		rec := sampleRecord()
		rec.Remarks = placeholder
		doc, _, err := filler.Fill(tmpl, rec)
		require.NoError(t, err)
		base, err := tmpl.Open()
		require.NoError(t, err)
		assert.Equal(t, len(base.Paragraphs()), len(doc.Paragraphs()), "remarks %q", placeholder)
	}
}

func TestFillDegradesOnIncompleteTemplate(t *testing.T) {
	tmpl := templateFromBody(t, `<w:p><w:r><w:t>Pay slip</w:t></w:r></w:p>`+
		`<w:tbl><w:tr><w:tc><w:p><w:r><w:t>Rank</w:t></w:r></w:p></w:tc><w:tc><w:p/></w:tc></w:tr></w:tbl>`)

	doc, report, err := NewFiller(DefaultLabels(), DefaultTextStyle()).Fill(tmpl, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "Master", cellText(t, doc, 0, 0, 1))
	assert.Contains(t, report.Skipped, "period table missing")
	assert.Contains(t, report.Skipped, "amounts table missing")
	assert.Contains(t, report.Skipped, `identity label "Name" not found`)
	assert.Contains(t, report.Skipped, `remarks anchor "Remarks:" not found`)
}

func TestFillSkipsAmountsWithoutDualHeader(t *testing.T) {
	row := func(a, b string) string {
		return `<w:tr><w:tc><w:p><w:r><w:t>` + a + `</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>` + b + `</w:t></w:r></w:p></w:tc></w:tr>`
	}
	tbl := func(rows ...string) string { return `<w:tbl>` + strings.Join(rows, "") + `</w:tbl><w:p/>` }
	tmpl := templateFromBody(t, tbl(row("Name", ""))+tbl(row("From", ""))+tbl(row("Item", "Amount"), row("Basic Salary", "n/a")))

	doc, report, err := NewFiller(DefaultLabels(), DefaultTextStyle()).Fill(tmpl, sampleRecord())
	require.NoError(t, err)
	assert.Equal(t, "n/a", cellText(t, doc, 2, 1, 1))
	assert.Contains(t, report.Skipped, `amounts header with two "Amount" columns not found`)
}

func TestCollapseEmptyParagraphs(t *testing.T) {
	tmpl := defaultTemplate(t)
	doc, _, err := NewFiller(DefaultLabels(), DefaultTextStyle()).Fill(tmpl, sampleRecord())
	require.NoError(t, err)

	collapsed := 0
	for _, p := range doc.BodyParagraphs() {
		spacing := p.FindElement("./w:pPr/w:spacing")
		if strings.TrimSpace(visibleText(p)) == "" {
			require.NotNil(t, spacing)
			assert.Equal(t, "exact", spacing.SelectAttrValue("w:lineRule", ""))
			collapsed++
			continue
		}
		if spacing != nil {
			assert.NotEqual(t, "exact", spacing.SelectAttrValue("w:lineRule", ""))
		}
	}
	assert.Greater(t, collapsed, 0)
}

func TestDocumentBytesRoundTrip(t *testing.T) {
	tmpl := defaultTemplate(t)
	doc, _, err := NewFiller(DefaultLabels(), DefaultTextStyle()).Fill(tmpl, sampleRecord())
	require.NoError(t, err)

	first, err := doc.Bytes()
	require.NoError(t, err)
	second, err := doc.Bytes()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	reopened, err := LoadTemplate(first)
	require.NoError(t, err)
	again, err := reopened.Open()
	require.NoError(t, err)
	assert.Contains(t, again.Text(), "Tony Tan")
	assert.Contains(t, again.Text(), "1,234.50")
}

func TestLoadTemplateRejectsGarbage(t *testing.T) {
	_, err := LoadTemplate([]byte("not a docx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrTemplateUnreadable))

	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)
	_, err = zw.Create("word/styles.xml")
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	_, err = LoadTemplate(buf.Bytes())
	assert.True(t, errors.Is(err, ErrTemplateUnreadable))
}

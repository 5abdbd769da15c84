package slip

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/beevik/etree"
)

const documentPart = "word/document.xml"

var ErrTemplateUnreadable = errors.New("pay slip template unreadable")

// Template is a read-only .docx. Every Open parses the main document part
// again, so filled copies never share state with the template or with each
// other.
type Template struct {
	raw      []byte
	archive  *zip.Reader
	document *zip.File
	mainXML  []byte
}

func LoadTemplateFile(path string) (*Template, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
	}
	return LoadTemplate(blob)
}

func LoadTemplate(data []byte) (*Template, error) {
	raw := append([]byte(nil), data...)
	archive, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
	}

	t := &Template{raw: raw, archive: archive}
	for _, f := range archive.File {
		if f.Name == documentPart {
			t.document = f
			break
		}
	}
	if t.document == nil {
		return nil, fmt.Errorf("%w: missing %s", ErrTemplateUnreadable, documentPart)
	}

	rc, err := t.document.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
	}
	defer rc.Close()
	t.mainXML, err = io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
	}

	if _, err := t.Open(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open returns an independent in-memory copy of the template.
func (t *Template) Open() (*Document, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(t.mainXML); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTemplateUnreadable, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("%w: empty %s", ErrTemplateUnreadable, documentPart)
	}
	body := root.SelectElement("w:body")
	if body == nil {
		return nil, fmt.Errorf("%w: %s has no body", ErrTemplateUnreadable, documentPart)
	}
	return &Document{tmpl: t, xml: doc, body: body}, nil
}

type Document struct {
	tmpl *Template
	xml  *etree.Document
	body *etree.Element
}

// Tables returns the body-level tables in document order.
func (d *Document) Tables() []*etree.Element {
	return d.body.SelectElements("w:tbl")
}

// Table returns the table at position idx, or nil.
func (d *Document) Table(idx int) *etree.Element {
	tables := d.Tables()
	if idx < 0 || idx >= len(tables) {
		return nil
	}
	return tables[idx]
}

// Paragraphs returns every paragraph in the document, including those nested
// in tables.
func (d *Document) Paragraphs() []*etree.Element {
	return d.body.FindElements(".//w:p")
}

// BodyParagraphs returns the body-level paragraphs only.
func (d *Document) BodyParagraphs() []*etree.Element {
	return d.body.SelectElements("w:p")
}

// Text returns the visible text of the whole document, paragraphs separated
// by newlines.
func (d *Document) Text() string {
	lines := []string{}
	for _, p := range d.Paragraphs() {
		lines = append(lines, visibleText(p))
	}
	return strings.Join(lines, "\n")
}

// Bytes serializes the document into a complete .docx. Parts other than the
// main document are copied verbatim from the template.
func (d *Document) Bytes() ([]byte, error) {
	mainXML, err := d.xml.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("serialize %s: %w", documentPart, err)
	}

	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)
	for _, f := range d.tmpl.archive.File {
		if f.Name != documentPart {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy part %s: %w", f.Name, err)
			}
			continue
		}
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     documentPart,
			Method:   zip.Deflate,
			Modified: f.Modified,
		})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(mainXML); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func visibleText(el *etree.Element) string {
	var b strings.Builder
	for _, t := range el.FindElements(".//w:t") {
		b.WriteString(t.Text())
	}
	return b.String()
}

package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"path"
	"time"

	"payslip/internal"
	"payslip/internal/util"
)

const (
	DefaultVesselPlaceholder   = "Unknown_Vessel"
	DefaultEmployeePlaceholder = "Unnamed"
	slipExtension              = ".docx"
)

// entryTime is stamped on every entry so equal input yields equal bytes.
var entryTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Serializer is a filled document that can render itself to bytes.
type Serializer interface {
	Bytes() ([]byte, error)
}

// Packager collects serialized slips in extraction order and writes them as
// one zip, one directory per vessel.
//
// Two records that sanitize to the same path share one entry: the later
// document replaces the earlier one's content, at the earlier position.
type Packager struct {
	vesselPlaceholder   string
	employeePlaceholder string
	entries             []internal.ArchiveEntry
	index               map[string]int
}

func NewPackager(vesselPlaceholder string) *Packager {
	if util.SanitizeName(vesselPlaceholder) == "" {
		vesselPlaceholder = DefaultVesselPlaceholder
	}
	return &Packager{
		vesselPlaceholder:   util.SanitizeName(vesselPlaceholder),
		employeePlaceholder: DefaultEmployeePlaceholder,
		index:               map[string]int{},
	}
}

// EntryPath returns "<vessel>/<employee>.docx" for rec with both names
// sanitized and blanks replaced by placeholders.
func (p *Packager) EntryPath(rec internal.EmployeeRecord) string {
	vessel := util.SanitizeName(rec.Vessel)
	if vessel == "" {
		vessel = p.vesselPlaceholder
	}
	employee := util.SanitizeName(rec.Name)
	if employee == "" {
		employee = p.employeePlaceholder
	}
	return path.Join(vessel, employee+slipExtension)
}

// Add serializes doc completely and stores it under rec's entry path. It
// reports whether an earlier entry with the same path was replaced.
func (p *Packager) Add(rec internal.EmployeeRecord, doc Serializer) (string, bool, error) {
	entryPath := p.EntryPath(rec)
	data, err := doc.Bytes()
	if err != nil {
		return entryPath, false, fmt.Errorf("serialize %s: %w", entryPath, err)
	}
	if i, ok := p.index[entryPath]; ok {
		p.entries[i].Data = data
		return entryPath, true, nil
	}
	p.index[entryPath] = len(p.entries)
	p.entries = append(p.entries, internal.ArchiveEntry{Path: entryPath, Data: data})
	return entryPath, false, nil
}

func (p *Packager) Entries() []internal.ArchiveEntry {
	out := make([]internal.ArchiveEntry, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *Packager) Len() int {
	return len(p.entries)
}

// Bytes writes the collected entries as a deflated zip archive.
func (p *Packager) Bytes() ([]byte, error) {
	return WriteZip(p.entries)
}

// WriteZip writes entries in the given order without sorting.
func WriteZip(entries []internal.ArchiveEntry) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	zw := zip.NewWriter(buf)
	for _, e := range entries {
		w, err := zw.CreateHeader(&zip.FileHeader{
			Name:     e.Path,
			Method:   zip.Deflate,
			Modified: entryTime,
		})
		if err != nil {
			return nil, fmt.Errorf("create entry %s: %w", e.Path, err)
		}
		if _, err := w.Write(e.Data); err != nil {
			return nil, fmt.Errorf("write entry %s: %w", e.Path, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close archive: %w", err)
	}
	return buf.Bytes(), nil
}

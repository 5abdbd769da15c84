package pipeline

import (
	"strings"

	"payslip/internal"
	"payslip/internal/util"
)

const (
	headerMarker     = "s/n"
	vesselLabelKey   = "vesselname"
	vesselLabelDelim = ":"
)

type scanState int

const (
	awaitingBlock scanState = iota
	inBlock
)

// blockScanner partitions a grid into vessel blocks. Data rows are only
// collected in the inBlock state, so a row can never be read against a
// header map that belongs to another block or to no block at all.
type blockScanner struct {
	state       scanState
	pendingName string
	current     internal.VesselBlock
	blocks      []internal.VesselBlock
}

// ScanBlocks walks the grid once with one row of lookahead. A grid without
// any header row yields no blocks.
func ScanBlocks(grid internal.RawGrid) []internal.VesselBlock {
	s := &blockScanner{state: awaitingBlock}
	for i, row := range grid {
		switch {
		case isHeaderRow(row):
			s.open(i, row)
		case i+1 < len(grid) && isHeaderRow(grid[i+1]):
			s.pendingName = vesselNameFromRow(row)
		case s.state == inBlock:
			if _, ok := dataRowSerial(row); ok {
				s.current.DataRows = append(s.current.DataRows, i)
			}
		}
	}
	s.close()
	return s.blocks
}

func (s *blockScanner) open(headerRow int, row []any) {
	s.close()
	s.current = internal.VesselBlock{
		VesselName:     s.pendingName,
		HeaderRowIndex: headerRow,
		Header:         buildHeaderMap(row),
	}
	s.pendingName = ""
	s.state = inBlock
}

func (s *blockScanner) close() {
	if s.state != inBlock {
		return
	}
	s.blocks = append(s.blocks, s.current)
	s.current = internal.VesselBlock{}
	s.state = awaitingBlock
}

func isHeaderRow(row []any) bool {
	return len(row) > 0 && util.NormalizeKey(CellText(row[0])) == headerMarker
}

func dataRowSerial(row []any) (int, bool) {
	if len(row) == 0 {
		return 0, false
	}
	return util.PositiveInt(CellText(row[0]))
}

// buildHeaderMap records every non-blank header cell; a repeated label keeps
// the later column.
func buildHeaderMap(row []any) internal.HeaderMap {
	header := internal.HeaderMap{}
	for idx, cell := range row {
		key := util.NormalizeKey(CellText(cell))
		if key == "" {
			continue
		}
		header[key] = idx
	}
	return header
}

// vesselNameFromRow prefers the value that follows a "Vessel Name:" label,
// either in the same cell or in the next non-blank cell. Without a label the
// row's non-blank content is joined.
func vesselNameFromRow(row []any) string {
	texts := make([]string, 0, len(row))
	for _, cell := range row {
		if t := CellText(cell); t != "" {
			texts = append(texts, t)
		}
	}

	for i, t := range texts {
		if !strings.HasPrefix(util.NormalizeKey(t), vesselLabelKey) {
			continue
		}
		if _, after, found := strings.Cut(t, vesselLabelDelim); found {
			if v := util.NormalizeSpaces(after); v != "" {
				return v
			}
		}
		if i+1 < len(texts) {
			return util.NormalizeSpaces(texts[i+1])
		}
		return ""
	}
	return util.NormalizeSpaces(strings.Join(texts, " "))
}

package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"payslip/internal"
	"payslip/internal/archive"
	"payslip/internal/config"
	"payslip/internal/slip"
	"payslip/internal/storage"
)

// ErrNothingToExport is returned when a workbook yields no employee rows.
var ErrNothingToExport = errors.New("nothing to export")

// Run sources recorded in the ledger.
const (
	SourceCLI  = "cli"
	SourceHTTP = "http"
	SourceMail = "mail"
)

type Input struct {
	Filename string
	Workbook []byte
	// Template overrides the generator template for this batch when set.
	Template []byte
	Source   string
	MailID   *int
}

type Result struct {
	Archive   []byte
	Blocks    int
	Employees int
	Entries   int
	TraceID   string
}

// Generator turns one payroll workbook into a zip of filled pay slips.
// Batches are independent; nothing is cached between Generate calls except
// the parsed template, which is read-only.
type Generator struct {
	template    *slip.Template
	filler      *slip.Filler
	placeholder string
	db          *storage.DB
	logger      *zap.Logger
}

func NewGenerator(tmpl *slip.Template, labels slip.Labels, style slip.TextStyle, vesselPlaceholder string, db *storage.DB, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		template:    tmpl,
		filler:      slip.NewFiller(labels, style),
		placeholder: vesselPlaceholder,
		db:          db,
		logger:      logger,
	}
}

// NewGeneratorFromConfig loads the template and label profile named in cfg,
// falling back to the built-in template.
func NewGeneratorFromConfig(cfg config.Config, db *storage.DB, logger *zap.Logger) (*Generator, error) {
	tmpl, err := LoadTemplate(cfg.TemplatePath)
	if err != nil {
		return nil, err
	}
	labels, err := slip.LoadLabels(cfg.TemplateLabelsPath)
	if err != nil {
		return nil, err
	}
	style := slip.DefaultTextStyle()
	if cfg.SlipFont != "" {
		style.Font = cfg.SlipFont
	}
	if cfg.SlipFontSize > 0 {
		style.SizePt = cfg.SlipFontSize
	}
	style.Bold = cfg.SlipBold
	return NewGenerator(tmpl, labels, style, cfg.VesselPlaceholder, db, logger), nil
}

// LoadTemplate reads the template at path, or builds the default one when
// path is empty.
func LoadTemplate(path string) (*slip.Template, error) {
	if path != "" {
		return slip.LoadTemplateFile(path)
	}
	blob, err := slip.DefaultTemplate()
	if err != nil {
		return nil, err
	}
	return slip.LoadTemplate(blob)
}

// Inspect loads and scans a workbook without generating documents.
func Inspect(filename string, data []byte) ([]internal.VesselBlock, []internal.EmployeeRecord, error) {
	grid, err := LoadGrid(filename, data)
	if err != nil {
		return nil, nil, err
	}
	blocks := ScanBlocks(grid)
	return blocks, ExtractRecords(grid, blocks), nil
}

// Generate runs scan, extract, fill and package once. Any fatal error
// discards the partial archive.
func (g *Generator) Generate(in Input) (Result, error) {
	start := time.Now()
	res := Result{TraceID: uuid.NewString()}
	log := g.logger.With(zap.String("trace_id", res.TraceID), zap.String("source", in.Source), zap.String("file", in.Filename))

	tmpl := g.template
	if len(in.Template) > 0 {
		override, err := slip.LoadTemplate(in.Template)
		if err != nil {
			g.recordRun(in, res, "failed", start)
			return Result{}, err
		}
		tmpl = override
	}

	grid, err := LoadGrid(in.Filename, in.Workbook)
	if err != nil {
		g.recordRun(in, res, "failed", start)
		return Result{}, fmt.Errorf("load workbook %s: %w", in.Filename, err)
	}
	blocks := ScanBlocks(grid)
	records := ExtractRecords(grid, blocks)
	res.Blocks = len(blocks)
	res.Employees = len(records)
	scanned := time.Since(start)

	if len(records) == 0 {
		log.Info("no employee rows found", zap.Int("rows", len(grid)), zap.Int("blocks", len(blocks)))
		g.recordRun(in, res, "empty", start)
		return res, ErrNothingToExport
	}

	packager := archive.NewPackager(g.placeholder)
	for _, rec := range records {
		doc, report, err := g.filler.Fill(tmpl, rec)
		if err != nil {
			g.recordRun(in, res, "failed", start)
			return Result{}, fmt.Errorf("fill slip for row %d: %w", rec.RowNumber, err)
		}
		if len(report.Skipped) > 0 {
			log.Debug("slip sections left at template default",
				zap.Int("row", rec.RowNumber),
				zap.Strings("skipped", report.Skipped))
		}
		entryPath, replaced, err := packager.Add(rec, doc)
		if err != nil {
			g.recordRun(in, res, "failed", start)
			return Result{}, err
		}
		if replaced {
			log.Warn("duplicate slip path, later row replaces earlier", zap.String("path", entryPath), zap.Int("row", rec.RowNumber))
		}
	}

	blob, err := packager.Bytes()
	if err != nil {
		g.recordRun(in, res, "failed", start)
		return Result{}, err
	}
	res.Archive = blob
	res.Entries = packager.Len()

	log.Info("payslip batch complete",
		zap.Int("blocks", res.Blocks),
		zap.Int("employees", res.Employees),
		zap.Int("entries", res.Entries),
		zap.Duration("scan", scanned),
		zap.Duration("total", time.Since(start)))
	g.recordRun(in, res, "ok", start)
	return res, nil
}

func (g *Generator) recordRun(in Input, res Result, status string, start time.Time) {
	if g.db == nil {
		return
	}
	run := internal.RunRow{
		TraceID:   res.TraceID,
		Source:    in.Source,
		MailID:    in.MailID,
		Blocks:    res.Blocks,
		Employees: res.Employees,
		Entries:   res.Entries,
		Status:    status,
	}
	if err := g.db.InsertRun(run, map[string]float64{"totalMs": float64(time.Since(start).Milliseconds())}); err != nil {
		g.logger.Warn("record run failed", zap.String("trace_id", res.TraceID), zap.Error(err))
	}
}

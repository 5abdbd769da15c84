package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"
	"go.uber.org/zap"

	"payslip/internal"
	"payslip/internal/storage"
	"payslip/internal/util"
)

const htmlBodyName = "mail-body.html"

type MailWorkbook struct {
	Filename string
	Data     []byte
}

type MailPayload struct {
	Subject         string
	Text            string
	HTML            string
	AttachmentNames []string
	Workbooks       []MailWorkbook
}

// WorkbooksFromMail parses a raw message and collects its workbook
// attachments. A mail without one falls back to an HTML body table that
// carries an S/N header.
func WorkbooksFromMail(raw []byte) (MailPayload, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return MailPayload{}, err
	}

	payload := MailPayload{
		Subject:         env.GetHeader("Subject"),
		Text:            env.Text,
		HTML:            env.HTML,
		AttachmentNames: make([]string, 0, len(env.Attachments)),
	}
	for _, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = "attachment"
		}
		payload.AttachmentNames = append(payload.AttachmentNames, filename)
		if isWorkbookName(filename) {
			payload.Workbooks = append(payload.Workbooks, MailWorkbook{Filename: filename, Data: att.Content})
		}
	}

	if len(payload.Workbooks) == 0 && env.HTML != "" {
		if grid, err := GridFromHTML(env.HTML); err == nil && len(ScanBlocks(grid)) > 0 {
			payload.Workbooks = append(payload.Workbooks, MailWorkbook{Filename: htmlBodyName, Data: []byte(env.HTML)})
		}
	}
	return payload, nil
}

// MailProcessor turns stored payroll mails into pay slip archives on disk.
type MailProcessor struct {
	db     *storage.DB
	gen    *Generator
	outDir string
	logger *zap.Logger
}

func NewMailProcessor(db *storage.DB, gen *Generator, outDir string, logger *zap.Logger) *MailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MailProcessor{db: db, gen: gen, outDir: outDir, logger: logger}
}

type MailResult struct {
	MailID    int
	Status    string
	Archives  []string
	Employees int
}

func (p *MailProcessor) ProcessByProviderMessageID(provider, messageID string) (MailResult, error) {
	mail, err := p.db.MustMailByProviderMessageID(provider, messageID)
	if err != nil {
		return MailResult{}, err
	}
	return p.ProcessMail(mail)
}

// ProcessPending handles fetched mails oldest first and returns the number of
// mails handled and employees covered.
func (p *MailProcessor) ProcessPending(limit int, provider string) (int, int, error) {
	pending, err := p.db.ListMailsByStatus(storage.MailFetched, provider, limit)
	if err != nil {
		return 0, 0, err
	}
	processedMails := 0
	employees := 0
	for _, mail := range pending {
		res, err := p.ProcessMail(mail)
		if err != nil {
			return processedMails, employees, err
		}
		processedMails++
		employees += res.Employees
	}
	return processedMails, employees, nil
}

// ProcessMail generates one archive per payroll workbook of mail. A workbook
// that fails only affects its own archive; the mail ends up processed when
// at least one archive was written.
func (p *MailProcessor) ProcessMail(mail internal.MailRow) (MailResult, error) {
	res := MailResult{MailID: mail.ID}
	log := p.logger.With(zap.Int("mail_id", mail.ID), zap.String("message_id", mail.MessageID))

	raw, err := os.ReadFile(mail.RawRef)
	if err != nil {
		p.markFailed(log, mail.ID)
		return res, fmt.Errorf("read raw mail %s: %w", mail.RawRef, err)
	}
	payload, err := WorkbooksFromMail(raw)
	if err != nil {
		p.markFailed(log, mail.ID)
		return res, fmt.Errorf("parse mail %d: %w", mail.ID, err)
	}

	detect := DetectPayrollMail(util.FirstNonEmpty(payload.Subject, mail.Subject), payload.Text, payload.HTML, payload.AttachmentNames)
	if !detect.IsPayroll || len(payload.Workbooks) == 0 {
		log.Info("mail skipped", zap.Float64("score", detect.Score), zap.Int("workbooks", len(payload.Workbooks)))
		res.Status = storage.MailSkipped
		return res, p.db.UpdateMailStatus(mail.ID, res.Status)
	}

	failed := 0
	for _, wb := range payload.Workbooks {
		out, err := p.gen.Generate(Input{Filename: wb.Filename, Workbook: wb.Data, Source: SourceMail, MailID: &mail.ID})
		if errors.Is(err, ErrNothingToExport) {
			continue
		}
		if err != nil {
			log.Warn("workbook failed", zap.String("attachment", wb.Filename), zap.Error(err))
			failed++
			continue
		}

		path := p.archivePath(mail.ID, wb.Filename)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return res, err
		}
		if err := os.WriteFile(path, out.Archive, 0o644); err != nil {
			return res, err
		}
		res.Archives = append(res.Archives, path)
		res.Employees += out.Employees
		log.Info("payslip archive written", zap.String("path", path), zap.Int("entries", out.Entries), zap.String("trace_id", out.TraceID))
	}

	switch {
	case len(res.Archives) > 0:
		res.Status = storage.MailProcessed
	case failed > 0:
		res.Status = storage.MailFailed
	default:
		res.Status = storage.MailEmpty
	}
	return res, p.db.UpdateMailStatus(mail.ID, res.Status)
}

func (p *MailProcessor) markFailed(log *zap.Logger, mailID int) {
	if err := p.db.UpdateMailStatus(mailID, storage.MailFailed); err != nil {
		log.Warn("mark mail failed", zap.Error(err))
	}
}

func (p *MailProcessor) archivePath(mailID int, attachment string) string {
	base := util.SanitizeName(strings.TrimSuffix(attachment, filepath.Ext(attachment)))
	if base == "" {
		base = "payroll"
	}
	return filepath.Join(p.outDir, fmt.Sprintf("%d_%s.zip", mailID, base))
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"payslip/internal/connectors"
	gmailconnector "payslip/internal/connectors/gmail"
	imapconnector "payslip/internal/connectors/imap"
	"payslip/internal/listener"
	"payslip/internal/pipeline"
	"payslip/internal/server"
	"payslip/internal/storage"
)

var (
	inputPath    string
	outputPath   string
	templatePath string
	labelsPath   string

	serveAddr string

	mailProvider  string
	mailLabel     string
	mailMax       int
	mailMessageID string
	mailBatch     int

	runsLimit int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the pay slip archive for a workbook",
	Example: `  payslip generate --input march.xlsx --out march_payslips.zip
  payslip generate --input march.xls --out out.zip --template slip.docx --labels labels.yaml`,
	RunE: runGenerate,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show the vessel blocks and crew rows found in a workbook",
	RunE:  runInspect,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve POST /api/payslips",
	RunE:  runServe,
}

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent batches",
	RunE:  runRuns,
}

var mailFetchCmd = &cobra.Command{
	Use:   "mail:fetch",
	Short: "Fetch new mail into the local store",
	RunE:  runMailFetch,
}

var mailProcessCmd = &cobra.Command{
	Use:   "mail:process",
	Short: "Turn fetched payroll mails into pay slip archives",
	RunE:  runMailProcess,
}

var mailListenCmd = &cobra.Command{
	Use:   "mail:listen",
	Short: "Poll the mailbox and process payroll mails continuously",
	RunE:  runMailListen,
}

func init() {
	generateCmd.Flags().StringVar(&inputPath, "input", "", "payroll workbook (.xlsx, .xls, .html)")
	generateCmd.Flags().StringVar(&outputPath, "out", "", "output zip path")
	generateCmd.Flags().StringVar(&templatePath, "template", "", "pay slip .docx template (default: built-in)")
	generateCmd.Flags().StringVar(&labelsPath, "labels", "", "YAML label profile for the template")
	_ = generateCmd.MarkFlagRequired("input")
	_ = generateCmd.MarkFlagRequired("out")

	inspectCmd.Flags().StringVar(&inputPath, "input", "", "payroll workbook (.xlsx, .xls, .html)")
	inspectCmd.Flags().StringVar(&outputPath, "out", "", "write extracted rows to this .xlsx for review")
	_ = inspectCmd.MarkFlagRequired("input")

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default HTTP_ADDR)")
	serveCmd.Flags().StringVar(&templatePath, "template", "", "pay slip .docx template (default: built-in)")
	serveCmd.Flags().StringVar(&labelsPath, "labels", "", "YAML label profile for the template")

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs")

	mailFetchCmd.Flags().StringVar(&mailProvider, "provider", connectors.ProviderGmail, "gmail|imap")
	mailFetchCmd.Flags().StringVar(&mailLabel, "label", "INBOX", "mailbox/label")
	mailFetchCmd.Flags().IntVar(&mailMax, "max", 50, "max messages")

	mailProcessCmd.Flags().StringVar(&mailProvider, "provider", connectors.ProviderGmail, "gmail|imap")
	mailProcessCmd.Flags().StringVar(&mailMessageID, "messageId", "", "specific message-id")
	mailProcessCmd.Flags().IntVar(&mailBatch, "batch", 20, "batch size")
}

func openDB() (*storage.DB, error) {
	return storage.Open(cfg.DBPath)
}

func newGenerator(db *storage.DB) (*pipeline.Generator, error) {
	c := cfg
	if templatePath != "" {
		c.TemplatePath = templatePath
	}
	if labelsPath != "" {
		c.TemplateLabelsPath = labelsPath
	}
	return pipeline.NewGeneratorFromConfig(c, db, logger)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	gen, err := newGenerator(db)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	res, err := gen.Generate(pipeline.Input{Filename: filepath.Base(inputPath), Workbook: data, Source: pipeline.SourceCLI})
	if errors.Is(err, pipeline.ErrNothingToExport) {
		return fmt.Errorf("%w: no employee rows in %s", err, inputPath)
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(outputPath, res.Archive, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "generated %d pay slips from %d vessel blocks into %s (trace %s)\n", res.Entries, res.Blocks, outputPath, res.TraceID)
	return nil
}

func runInspect(cmd *cobra.Command, _ []string) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}
	blocks, records, err := pipeline.Inspect(filepath.Base(inputPath), data)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for i, b := range blocks {
		name := b.VesselName
		if strings.TrimSpace(name) == "" {
			name = cfg.VesselPlaceholder
		}
		fmt.Fprintf(out, "block %d vessel=%q header_row=%d rows=%d\n", i+1, name, b.HeaderRowIndex+1, len(b.DataRows))
	}
	fmt.Fprintf(out, "blocks=%d employees=%d\n", len(blocks), len(records))

	if outputPath != "" {
		if err := pipeline.ExportRecordsToXLSX(records, outputPath); err != nil {
			return err
		}
		fmt.Fprintf(out, "exported %d rows to %s\n", len(records), outputPath)
	}
	return nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	gen, err := newGenerator(db)
	if err != nil {
		return err
	}
	addr := serveAddr
	if addr == "" {
		addr = cfg.HTTPAddr
	}

	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	return server.New(gen, cfg.HTTPMaxUploadMB, logger).ListenAndServe(ctx, addr)
}

func runRuns(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(runsLimit)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, r := range runs {
		mail := "-"
		if r.MailID != nil {
			mail = fmt.Sprint(*r.MailID)
		}
		fmt.Fprintf(out, "%s %s source=%s mail=%s status=%s blocks=%d employees=%d entries=%d\n",
			r.CreatedAt, r.TraceID, r.Source, mail, r.Status, r.Blocks, r.Employees, r.Entries)
	}
	return nil
}

func makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch provider {
	case connectors.ProviderGmail:
		return gmailconnector.NewConnector(ctx, cfg)
	case connectors.ProviderIMAP:
		return imapconnector.NewConnector(cfg)
	default:
		return nil, fmt.Errorf("unsupported provider: %s", provider)
	}
}

func runMailFetch(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	conn, err := makeConnector(cmd.Context(), mailProvider)
	if err != nil {
		return err
	}
	fetch := connectors.NewFetchService(db, cfg.RawMailDir, conn)
	result, err := fetch.FetchAndStore(cmd.Context(), mailLabel, mailMax)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "mail fetch done provider=%s fetched=%d stored=%d\n", mailProvider, result.Fetched, result.Stored)
	return nil
}

func runMailProcess(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	gen, err := newGenerator(db)
	if err != nil {
		return err
	}
	processor := pipeline.NewMailProcessor(db, gen, cfg.PayslipDir(), logger)
	out := cmd.OutOrStdout()
	if strings.TrimSpace(mailMessageID) != "" {
		res, err := processor.ProcessByProviderMessageID(mailProvider, mailMessageID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "processed mail id=%d status=%s employees=%d archives=%s\n", res.MailID, res.Status, res.Employees, strings.Join(res.Archives, ","))
		return nil
	}
	mails, employees, err := processor.ProcessPending(mailBatch, mailProvider)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "processed pending mails=%d employees=%d\n", mails, employees)
	return nil
}

func runMailListen(cmd *cobra.Command, _ []string) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	gen, err := newGenerator(db)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()
	return listener.NewService(db, cfg, gen, logger).Run(ctx)
}

package listener

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"payslip/internal/config"
	"payslip/internal/connectors"
	gmailconnector "payslip/internal/connectors/gmail"
	imapconnector "payslip/internal/connectors/imap"
	"payslip/internal/pipeline"
	"payslip/internal/storage"
)

const defaultInterval = 30 * time.Second

// ConnectorFactory builds the mail connector for a provider name.
type ConnectorFactory func(ctx context.Context, provider string) (connectors.MailConnector, error)

// Service polls a mailbox and turns payroll mails into pay slip archives.
type Service struct {
	db           *storage.DB
	cfg          config.Config
	gen          *pipeline.Generator
	logger       *zap.Logger
	newConnector ConnectorFactory
}

func NewService(db *storage.DB, cfg config.Config, gen *pipeline.Generator, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{db: db, cfg: cfg, gen: gen, logger: logger}
	s.newConnector = s.makeConnector
	return s
}

// WithConnectorFactory replaces the provider lookup, mainly for tests.
func (s *Service) WithConnectorFactory(f ConnectorFactory) *Service {
	s.newConnector = f
	return s
}

type CycleResult struct {
	Provider  string
	Fetched   int
	Stored    int
	Processed int
	Employees int
}

// Run polls until ctx is done. Cycle errors are logged and the loop goes on.
func (s *Service) Run(ctx context.Context) error {
	interval := time.Duration(s.cfg.MailListenerIntervalSec) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		res, err := s.RunCycle(ctx)
		if err != nil {
			s.logger.Error("listener cycle failed", zap.Error(err))
		} else {
			s.logger.Info("listener cycle done",
				zap.String("provider", res.Provider),
				zap.Int("fetched", res.Fetched),
				zap.Int("stored", res.Stored),
				zap.Int("processed", res.Processed),
				zap.Int("employees", res.Employees))
		}
		timer.Reset(interval)
	}
}

// RunCycle fetches new mail once and processes everything pending.
func (s *Service) RunCycle(ctx context.Context) (CycleResult, error) {
	provider := strings.ToLower(strings.TrimSpace(s.cfg.MailListenerProvider))
	res := CycleResult{Provider: provider}

	mailConnector, err := s.newConnector(ctx, provider)
	if err != nil {
		return res, err
	}

	fetchService := connectors.NewFetchService(s.db, s.cfg.RawMailDir, mailConnector)
	fetchResult, err := fetchService.FetchAndStore(ctx, s.cfg.MailListenerLabel, s.cfg.MailListenerFetchMax)
	if err != nil {
		return res, err
	}
	res.Fetched = fetchResult.Fetched
	res.Stored = fetchResult.Stored

	processor := pipeline.NewMailProcessor(s.db, s.gen, s.cfg.PayslipDir(), s.logger)
	res.Processed, res.Employees, err = processor.ProcessPending(s.cfg.MailListenerProcessBatch, provider)
	if err != nil {
		return res, err
	}
	return res, nil
}

func (s *Service) makeConnector(ctx context.Context, provider string) (connectors.MailConnector, error) {
	switch provider {
	case connectors.ProviderGmail:
		return gmailconnector.NewConnector(ctx, s.cfg)
	case connectors.ProviderIMAP:
		return imapconnector.NewConnector(s.cfg)
	default:
		return nil, fmt.Errorf("unsupported listener provider: %s", provider)
	}
}

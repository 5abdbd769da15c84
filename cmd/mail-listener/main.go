package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"payslip/internal/config"
	"payslip/internal/listener"
	"payslip/internal/pipeline"
	"payslip/internal/storage"
)

func main() {
	cfg, err := config.Load()
	must(err)

	logger, err := zap.NewProduction()
	must(err)
	defer logger.Sync() //nolint:errcheck

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	gen, err := pipeline.NewGeneratorFromConfig(cfg, db, logger)
	must(err)

	svc := listener.NewService(db, cfg, gen, logger)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "error: %v\n", err)
	os.Exit(1)
}

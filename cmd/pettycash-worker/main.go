package main

import (
	"context"
	"errors"
	"os"
	"time"

	"pettycash/internal/amqp"
	"pettycash/internal/attach"
	"pettycash/internal/cli"
	"pettycash/internal/core"
	"pettycash/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting pettycash-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	initCtx := context.Background()
	tableStore, closeStore := cli.InitTableStore(initCtx, logger, cfg)
	defer closeStore()

	attachments, err := attach.NewStore(cfg.AttachmentsDir)
	if err != nil {
		logger.Error("Failed to initialize attachment store", "error", err, "dir", cfg.AttachmentsDir)
		os.Exit(1)
	}

	reportWorker, err := worker.NewReportWorker(tableStore, attachments, cfg.ExportDir)
	if err != nil {
		logger.Error("Failed to initialize report worker", "error", err, "dir", cfg.ExportDir)
		os.Exit(1)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}

	ctx, cancel, done := cli.GracefulShutdown(logger, 30*time.Second, func() {
		_ = amqpClient.Close()
	})
	defer cancel()

	// On startup, regenerate the current period so a restarted worker does
	// not serve artifacts from before its downtime.
	now := time.Now().UTC()
	if p, err := core.NewPeriod(now.Year(), int(now.Month())); err == nil {
		logger.Info("Performing startup regeneration", "period", p.Key())
		if err := reportWorker.Generate(ctx, p); err != nil {
			logger.Error("Startup regeneration failed", "error", err)
			// Don't exit - continue with normal operation
		}
	}

	go func() {
		err := amqpClient.ConsumeLedgerMutations(ctx, func(msg *amqp.LedgerMutationMessage) error {
			return reportWorker.HandleMutation(ctx, msg)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Message consumption failed", "error", err)
		}
		cancel()
	}()

	cli.WaitForShutdown(ctx, done)
}

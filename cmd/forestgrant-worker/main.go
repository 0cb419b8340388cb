package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"forestgrant/internal/backend"
	"forestgrant/internal/cli"
	applog "forestgrant/internal/log"
	"forestgrant/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		logger.Warn("Worker is not using the sqlite backend; audit entries will not be shared with the server",
			"backend", cfg.DataBackend)
	}

	ctx, cancel := cli.SignalContext(logger)
	defer cancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}()
	if res.AMQP == nil {
		logger.Error("AMQP broker unreachable", "url_configured", true)
		os.Exit(1)
	}

	auditWorker := worker.NewAuditWorker(res.Store)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting forestgrant-worker",
			"exchange", cfg.AMQPExchange,
			"queue", cfg.AMQPQueue)
		err := res.AMQP.ConsumeFinancialSaved(gctx, auditWorker.HandleFinancialSaved)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Worker shutdown complete")
}

package main

import (
	"os"
	"time"

	"smartexpense/internal/amqp"
	"smartexpense/internal/cli"
	"smartexpense/internal/exchange"
	"smartexpense/internal/log"
	"smartexpense/internal/worker"
)

func main() {
	cfg, logger := cli.Init(log.ComponentWorker)
	logger.Info("Starting smartexpense-worker")

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	provider := exchange.NewFrankfurterClient(cfg.ExchangeRateAPIURL, cfg.ExchangeRateTimeout)
	resolver := exchange.NewResolver(repo, provider, exchange.WithLogger(logger))

	refresher := worker.NewRateRefreshWorker(resolver, repo, cfg.RateRefreshInterval, logger)

	// Without a broker the worker still sweeps stored pairs on its interval.
	var source worker.EventSource
	if cfg.EventsEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", log.FieldError, err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		source = amqpClient
	} else {
		logger.Info("Skipping AMQP consumption - no AMQP_URL provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 10*time.Second, nil)

	logger.Info("Rate refresh worker running", "interval", cfg.RateRefreshInterval.String())
	if err := refresher.Run(ctx, source); err != nil {
		logger.Error("Rate refresh worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"smartexpense/internal/actions"
	"smartexpense/internal/amqp"
	"smartexpense/internal/cache"
	"smartexpense/internal/cli"
	"smartexpense/internal/config"
	"smartexpense/internal/core"
	"smartexpense/internal/csvimport"
	"smartexpense/internal/exchange"
	apphttp "smartexpense/internal/http"
	"smartexpense/internal/insights"
	"smartexpense/internal/log"
	"smartexpense/internal/middleware/ratelimit"
	"smartexpense/internal/services"
)

func main() {
	cfg, logger := cli.Init(log.ComponentApp)

	repo := cli.InitSQLite(logger, cfg)
	defer repo.Close()

	// Events are best effort: without a broker the server still runs.
	var publisher services.EventPublisher
	if cfg.EventsEnabled() {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, domain events disabled", log.FieldError, err)
		} else {
			defer amqpClient.Close()
			publisher = amqpClient
			logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange)
		}
	}
	events := services.NewEvents(publisher, logger)

	provider := exchange.NewFrankfurterClient(cfg.ExchangeRateAPIURL, cfg.ExchangeRateTimeout)
	resolver := exchange.NewResolver(repo, provider,
		exchange.WithLogger(logger),
		exchange.WithDegradedHook(events.RateDegraded))
	converter := exchange.NewConverter(resolver)

	snapshots := cache.NewLRUCache[insights.Snapshot](cfg.InsightsCacheSize, cfg.InsightsCacheTTL)
	summaries := cache.NewLRUCache[core.MonthlySummary](cfg.InsightsCacheSize, cfg.InsightsCacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register(snapshots)
	cacheManager.Register(summaries)
	cacheManager.StartCleanup(time.Minute)
	defer cacheManager.Stop()

	aggregator := insights.NewAggregator(repo, snapshots, summaries, logger)

	expenseService := services.NewExpenseService(repo, repo, repo, converter, logger)
	expenseService.OnChange(aggregator.Invalidate)

	categoryService := services.NewCategoryService(repo, logger)

	migrator := services.NewCurrencyMigrator(repo, repo, resolver, cfg.MigrationBatchSize, events, logger)
	migrator.OnChange(aggregator.Invalidate)

	importer := csvimport.NewImporter(categoryService, repo, converter, logger)

	acts := actions.New(actions.Deps{
		Expenses:   expenseService,
		Categories: categoryService,
		Currency:   migrator,
		Importer:   importer,
		Profiles:   services.NewProfileService(repo, logger),
		Tracker:    services.NewProductEvents(repo, logger),
		RowChecker: csvimport.NewValidator(time.Now),
		Analytics:  aggregator,
		Events:     events,
		OnChange:   aggregator.Invalidate,
		Logger:     logger,
	})

	pairs := pairWindow(cfg, logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Actions: acts,
		Rates:   resolver,
		Pairs:   pairs,
		Ready:   repo.Ping,
		Logger:  logger,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, srv.Shutdown)

	logger.Info("Starting smartexpense server",
		"port", cfg.Port,
		"base_currency", cfg.DefaultBaseCurrency,
		"events", cfg.EventsEnabled())
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// pairWindow shares the one-fetch-per-pair window through Redis when
// REDIS_ADDR is set and falls back to process memory otherwise.
func pairWindow(cfg *config.Config, logger *log.Logger) ratelimit.PairWindow {
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryPairWindow(ratelimit.DefaultPairWindow, nil)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := ratelimit.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		logger.Warn("Redis unavailable, using in-memory pair window", log.FieldError, err, "addr", cfg.RedisAddr)
		return ratelimit.NewMemoryPairWindow(ratelimit.DefaultPairWindow, nil)
	}
	logger.Info("Using Redis pair window", "addr", cfg.RedisAddr)
	return ratelimit.NewRedisPairWindow(client, ratelimit.DefaultPairWindow)
}

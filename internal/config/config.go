package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"smartexpense/internal/core"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	SQLiteDBPath string

	// Exchange rates
	ExchangeRateAPIURL  string
	ExchangeRateTimeout time.Duration
	DefaultBaseCurrency string
	RateRefreshInterval time.Duration

	// Currency migration
	MigrationBatchSize int

	// Insights
	InsightsCacheTTL  time.Duration
	InsightsCacheSize int

	// AMQP. An empty URL disables domain events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Redis. An empty address keeps the pair window in memory.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel  string
	LogFormat string
}

func Load() *Config {
	cfg := &Config{
		Port:         getEnv("PORT", "8081"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/smartexpense.db"),

		ExchangeRateAPIURL:  getEnv("EXCHANGE_RATE_API_URL", "https://api.frankfurter.app"),
		ExchangeRateTimeout: getEnvDuration("EXCHANGE_RATE_TIMEOUT", 5*time.Second),
		DefaultBaseCurrency: strings.ToUpper(getEnv("DEFAULT_BASE_CURRENCY", core.DefaultBaseCurrency)),
		RateRefreshInterval: getEnvDuration("RATE_REFRESH_INTERVAL", time.Hour),

		MigrationBatchSize: getEnvInt("MIGRATION_BATCH_SIZE", 50),

		InsightsCacheTTL:  getEnvDuration("INSIGHTS_CACHE_TTL", 5*time.Minute),
		InsightsCacheSize: getEnvInt("INSIGHTS_CACHE_SIZE", 500),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "smartexpense"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "rate_refresh"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
			}
		}
	}

	if parsedURL, err := url.Parse(c.ExchangeRateAPIURL); err != nil || c.ExchangeRateAPIURL == "" {
		errors = append(errors, fmt.Sprintf("invalid exchange rate API URL '%s'", c.ExchangeRateAPIURL))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid exchange rate API URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	}
	if c.ExchangeRateTimeout <= 0 || c.ExchangeRateTimeout > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid exchange rate timeout %v: must be between 0 and 1 minute", c.ExchangeRateTimeout))
	}
	if !core.IsSupportedCurrency(c.DefaultBaseCurrency) {
		errors = append(errors, fmt.Sprintf("unsupported default base currency '%s': must be one of %v", c.DefaultBaseCurrency, core.CurrencyCodes()))
	}
	if c.RateRefreshInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid rate refresh interval %v: must be at least 1 minute", c.RateRefreshInterval))
	} else if c.RateRefreshInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid rate refresh interval %v: must be at most 24 hours", c.RateRefreshInterval))
	}

	if c.MigrationBatchSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid migration batch size %d: must be at least 1", c.MigrationBatchSize))
	} else if c.MigrationBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid migration batch size %d: must be at most 1000", c.MigrationBatchSize))
	}

	if c.InsightsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid insights cache TTL %v: must not be negative", c.InsightsCacheTTL))
	}
	if c.InsightsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid insights cache size %d: must be at least 1", c.InsightsCacheSize))
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.RedisDB < 0 || c.RedisDB > 15 {
		errors = append(errors, fmt.Sprintf("invalid Redis DB %d: must be between 0 and 15", c.RedisDB))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// EventsEnabled reports whether domain events are published and consumed.
func (c *Config) EventsEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

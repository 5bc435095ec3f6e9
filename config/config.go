package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
)

// InfraConfig holds infrastructure configuration loaded from environment
// variables. Immutable at runtime; deployment-specific settings only —
// detector/reference parameters live in domain/aggregate/config instead.
type InfraConfig struct {
	// HTTP server
	HTTPPort            int
	HTTPReadTimeout     int
	HTTPWriteTimeout    int
	HTTPIdleTimeout     int
	HTTPShutdownTimeout int

	// VietCap bar source
	VietCapSymbol    string
	VietCapTimeFrame string
	VietCapRateLimit int

	// MongoDB
	MongoDBURI      string
	MongoDBDatabase string

	// Replay driver
	ReplayCronAutoStart bool
	ReplaySchedule      string
	ReplayBatchSize     int

	// Telegram notifier
	TelegramEnabled  bool
	TelegramBotToken string
	TelegramChatID   string

	// Logging
	LogLevel    string
	Environment string
}

// LoadInfraFromEnv loads and validates infrastructure configuration from
// a .env file or the process environment.
func LoadInfraFromEnv() (*InfraConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found, using system environment variables\n")
	}

	var errors []string
	cfg := &InfraConfig{}

	cfg.HTTPPort = getNumberEnv("HTTP_PORT", &errors)
	cfg.HTTPReadTimeout = getNumberEnv("HTTP_READ_TIMEOUT", &errors)
	cfg.HTTPWriteTimeout = getNumberEnv("HTTP_WRITE_TIMEOUT", &errors)
	cfg.HTTPIdleTimeout = getNumberEnv("HTTP_IDLE_TIMEOUT", &errors)
	cfg.HTTPShutdownTimeout = getNumberEnv("HTTP_SHUTDOWN_TIMEOUT", &errors)

	cfg.VietCapSymbol = getStringEnv("VIETCAP_SYMBOL", &errors)
	cfg.VietCapTimeFrame = getOptionalStringEnvDefault("VIETCAP_TIMEFRAME", "ONE_DAY")
	cfg.VietCapRateLimit = getOptionalNumberEnv("VIETCAP_RATE_LIMIT", 15)

	cfg.MongoDBURI = getStringEnv("MONGODB_URI", &errors)
	cfg.MongoDBDatabase = getStringEnv("MONGODB_DATABASE", &errors)

	cfg.ReplayCronAutoStart = getBoolEnv("REPLAY_CRON_AUTO_START", &errors)
	cfg.ReplaySchedule = getOptionalStringEnvDefault("REPLAY_SCHEDULE", "@every 1m")
	cfg.ReplayBatchSize = getOptionalNumberEnv("REPLAY_BATCH_SIZE", 100)

	cfg.TelegramEnabled = getOptionalBoolEnv("TELEGRAM_ENABLED")
	cfg.TelegramBotToken = getOptionalStringEnv("TELEGRAM_BOT_TOKEN")
	cfg.TelegramChatID = getOptionalStringEnv("TELEGRAM_CHAT_ID")

	cfg.LogLevel = getLogLevelEnv("LOG_LEVEL", &errors)
	cfg.Environment = getEnvironmentEnv("ENVIRONMENT")

	if len(errors) > 0 {
		return nil, fmt.Errorf("configuration validation failed:\n%s", strings.Join(errors, "\n"))
	}

	return cfg, nil
}

// LoggerConfig holds logger-specific configuration.
type LoggerConfig struct {
	Level       string
	Environment string
}

// Logger returns the logger configuration.
func (c *InfraConfig) Logger() LoggerConfig {
	return LoggerConfig{
		Level:       c.LogLevel,
		Environment: c.Environment,
	}
}

package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress         string
	DatabaseURI        string
	MarketplaceAddress string
	MarketplaceTimeout time.Duration

	AnthropicAPIKey  string
	AnthropicBaseURL string
	Model            string
	DailyCostCap     float64
	PricingFile      string

	PollIntervalMin time.Duration
	PollIntervalMax time.Duration
	ErrorCooldown   time.Duration
	BudgetCooldown  time.Duration
	ShutdownTimeout time.Duration

	LogLevel          string
	DeliverablesDir   string
	OperatorTokenHash string

	KafkaBrokers    []string
	KafkaTopic      string
	OTelExporterURL string
	ServiceName     string
	TraceSampleRate float64
}

const (
	defaultRunAddress       = ":8080"
	defaultAnthropicBaseURL = "https://api.anthropic.com"
	defaultModel            = "claude-sonnet-4-5-20250929"
	defaultDailyCostCap     = 5.0
	defaultPollIntervalMin  = 3 * time.Minute
	defaultPollIntervalMax  = 5 * time.Minute
	defaultErrorCooldown    = time.Minute
	defaultBudgetCooldown   = time.Hour
	defaultShutdownTimeout  = 30 * time.Second
	defaultBridgeTimeout    = 2 * time.Minute
	defaultLogLevel         = "info"
	defaultDeliverablesDir  = "data/deliverables"
	defaultKafkaTopic       = "sixxer.order-transitions"
	defaultServiceName      = "sixxer"
	defaultTraceSampleRate  = 1.0
	defaultEnvFile          = ".env"
)

// Load reads an optional .env file, then parses configuration from flags and environment variables.
func Load() (*Config, error) {
	envFile := getString(os.LookupEnv, "SIXXER_ENV_FILE", defaultEnvFile)
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}
	return load(os.Args[1:], os.LookupEnv)
}

// loadDotEnv never overrides variables already present in the environment.
func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:         getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:        getString(lookup, "DATABASE_URI", ""),
		MarketplaceAddress: getString(lookup, "MARKETPLACE_BRIDGE_ADDRESS", ""),
		MarketplaceTimeout: getDuration(lookup, "MARKETPLACE_BRIDGE_TIMEOUT", defaultBridgeTimeout),
		AnthropicAPIKey:    getString(lookup, "ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL:   getString(lookup, "ANTHROPIC_BASE_URL", defaultAnthropicBaseURL),
		Model:              getString(lookup, "CLAUDE_MODEL", defaultModel),
		DailyCostCap:       getFloat(lookup, "DAILY_COST_CAP_USD", defaultDailyCostCap),
		PricingFile:        getString(lookup, "PRICING_FILE", ""),
		PollIntervalMin:    getDuration(lookup, "POLL_INTERVAL_MIN", defaultPollIntervalMin),
		PollIntervalMax:    getDuration(lookup, "POLL_INTERVAL_MAX", defaultPollIntervalMax),
		ErrorCooldown:      getDuration(lookup, "ERROR_COOLDOWN", defaultErrorCooldown),
		BudgetCooldown:     getDuration(lookup, "BUDGET_COOLDOWN", defaultBudgetCooldown),
		ShutdownTimeout:    getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		LogLevel:           getString(lookup, "LOG_LEVEL", defaultLogLevel),
		DeliverablesDir:    getString(lookup, "DELIVERABLES_DIR", defaultDeliverablesDir),
		OperatorTokenHash:  getString(lookup, "OPERATOR_TOKEN_HASH", ""),
		KafkaTopic:         getString(lookup, "KAFKA_ORDERS_TOPIC", defaultKafkaTopic),
		OTelExporterURL:    getString(lookup, "OTEL_EXPORTER_URL", ""),
		ServiceName:        getString(lookup, "SERVICE_NAME", defaultServiceName),
		TraceSampleRate:    getFloat(lookup, "TRACE_SAMPLE_RATE", defaultTraceSampleRate),
	}

	fs := flag.NewFlagSet("sixxer", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		pollMinStr         = cfg.PollIntervalMin.String()
		pollMaxStr         = cfg.PollIntervalMax.String()
		shutdownTimeoutStr = cfg.ShutdownTimeout.String()
		kafkaBrokers       = getString(lookup, "KAFKA_BROKERS", "")
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.MarketplaceAddress, "m", cfg.MarketplaceAddress, "Marketplace bridge base URL")
	fs.StringVar(&cfg.Model, "model", cfg.Model, "LLM model name")
	fs.Float64Var(&cfg.DailyCostCap, "daily-cap", cfg.DailyCostCap, "Daily API spend cap in USD")
	fs.StringVar(&pollMinStr, "poll-min", pollMinStr, "Minimum interval between cycles")
	fs.StringVar(&pollMaxStr, "poll-max", pollMaxStr, "Maximum interval between cycles")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.DeliverablesDir, "deliverables", cfg.DeliverablesDir, "Directory for generated deliverables")
	fs.StringVar(&kafkaBrokers, "kafka-brokers", kafkaBrokers, "Comma separated Kafka seed brokers")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.PollIntervalMin, err = time.ParseDuration(pollMinStr); err != nil {
		return nil, fmt.Errorf("invalid minimum poll interval: %w", err)
	}

	if cfg.PollIntervalMax, err = time.ParseDuration(pollMaxStr); err != nil {
		return nil, fmt.Errorf("invalid maximum poll interval: %w", err)
	}

	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if keyFile, ok := lookup("ANTHROPIC_API_KEY_FILE"); ok && keyFile != "" {
		content, err := os.ReadFile(keyFile)
		if err != nil {
			return nil, fmt.Errorf("read api key file: %w", err)
		}
		cfg.AnthropicAPIKey = strings.TrimSpace(string(content))
	}

	cfg.KafkaBrokers = splitList(kafkaBrokers)

	if cfg.PollIntervalMin <= 0 {
		cfg.PollIntervalMin = defaultPollIntervalMin
	}

	if cfg.PollIntervalMax <= 0 {
		cfg.PollIntervalMax = defaultPollIntervalMax
	}

	if cfg.ErrorCooldown <= 0 {
		cfg.ErrorCooldown = defaultErrorCooldown
	}

	if cfg.BudgetCooldown <= 0 {
		cfg.BudgetCooldown = defaultBudgetCooldown
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.MarketplaceTimeout <= 0 {
		cfg.MarketplaceTimeout = defaultBridgeTimeout
	}

	if cfg.TraceSampleRate < 0 || cfg.TraceSampleRate > 1 {
		cfg.TraceSampleRate = defaultTraceSampleRate
	}

	if cfg.PollIntervalMin > cfg.PollIntervalMax {
		return nil, fmt.Errorf("minimum poll interval %s exceeds maximum %s", cfg.PollIntervalMin, cfg.PollIntervalMax)
	}

	if cfg.DailyCostCap <= 0 {
		return nil, fmt.Errorf("daily cost cap must be positive")
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.MarketplaceAddress == "" {
		return nil, fmt.Errorf("marketplace bridge address must be provided")
	}

	if cfg.AnthropicAPIKey == "" {
		return nil, fmt.Errorf("anthropic API key must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getFloat(lookup envLookup, key string, def float64) float64 {
	if v, ok := lookup(key); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// bare numbers are seconds
		if n, err := strconv.Atoi(v); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	return def
}

func splitList(value string) []string {
	var result []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}

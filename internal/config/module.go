package config

import (
	"log/slog"

	"go.uber.org/fx"
)

// Module exposes configuration loader for fx graphs and logs the effective settings once.
var Module = fx.Options(
	fx.Provide(Load),
	fx.Invoke(logEffective),
)

// logEffective never logs secrets, only whether they are set.
func logEffective(cfg *Config, logger *slog.Logger) {
	logger.Info("configuration loaded",
		slog.String("run_address", cfg.RunAddress),
		slog.String("marketplace_bridge", cfg.MarketplaceAddress),
		slog.String("model", cfg.Model),
		slog.Float64("daily_cost_cap_usd", cfg.DailyCostCap),
		slog.Duration("poll_interval_min", cfg.PollIntervalMin),
		slog.Duration("poll_interval_max", cfg.PollIntervalMax),
		slog.String("deliverables_dir", cfg.DeliverablesDir),
		slog.Bool("operator_api", cfg.OperatorTokenHash != ""),
		slog.Bool("kafka_events", len(cfg.KafkaBrokers) > 0),
		slog.Bool("otlp_tracing", cfg.OTelExporterURL != ""),
	)
}

package events

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
)

// Module provides the lifecycle event publisher consumed by the state machine.
var Module = fx.Provide(newPublisher)

func newPublisher(lc fx.Lifecycle, cfg *config.Config, logger *slog.Logger) (statemachine.Publisher, error) {
	if len(cfg.KafkaBrokers) == 0 {
		logger.Info("kafka brokers not configured, lifecycle events disabled")
		return NopPublisher{}, nil
	}
	publisher, err := NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, cfg.ServiceName, logger)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(context.Context) error {
			publisher.Close()
			return nil
		},
	})
	return publisher, nil
}

package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
)

// Module wires PostgreSQL storage and repository adapters.
var Module = fx.Options(
	fx.Provide(newStorage),
	fx.Provide(
		func(s *Storage) repository.Factory { return s },
		func(f repository.Factory) repository.OrderRepository { return f.Orders() },
		func(f repository.Factory) repository.MessageRepository { return f.Messages() },
		func(f repository.Factory) repository.CostRepository { return f.Costs() },
	),
	fx.Invoke(registerLifecycle),
)

type storageParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newStorage(p storageParams) (*Storage, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

// registerLifecycle refuses to start against an unreachable database.
func registerLifecycle(lc fx.Lifecycle, storage *Storage) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := storage.HealthCheck(ctx); err != nil {
				return fmt.Errorf("database unavailable: %w", err)
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			storage.Close()
			return nil
		},
	})
}

package di

import (
	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/adapter/llm"
	"github.com/JamesxFarris/Sixxer/internal/adapter/marketplace"
	"github.com/JamesxFarris/Sixxer/internal/ai"
	"github.com/JamesxFarris/Sixxer/internal/app"
	"github.com/JamesxFarris/Sixxer/internal/budget"
	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/events"
	"github.com/JamesxFarris/Sixxer/internal/logger"
	"github.com/JamesxFarris/Sixxer/internal/metrics"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/dispatcher"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/scheduler"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
	"github.com/JamesxFarris/Sixxer/internal/pkg/auth"
	"github.com/JamesxFarris/Sixxer/internal/server/http/handlers"
	"github.com/JamesxFarris/Sixxer/internal/server/http/router"
	"github.com/JamesxFarris/Sixxer/internal/storage/postgres"
	"github.com/JamesxFarris/Sixxer/internal/tracing"
	"github.com/JamesxFarris/Sixxer/internal/usecase"
	"github.com/JamesxFarris/Sixxer/internal/workers"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		metrics.Module,
		tracing.Module,
		events.Module,
		postgres.Module,
		budget.Module,
		llm.Module,
		marketplace.Module,
		ai.Module,
		workers.Module,
		statemachine.Module,
		dispatcher.Module,
		scheduler.Module,
		auth.Module,
		usecase.Module,
		fx.Provide(
			func(m *metrics.Metrics) statemachine.TransitionObserver { return m },
			func(m *metrics.Metrics) budget.CallObserver { return m },
			func(f *app.OperatorFacade) handlers.OperatorFacade { return f },
		),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}

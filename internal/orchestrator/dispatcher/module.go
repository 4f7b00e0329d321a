package dispatcher

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/ai"
	"github.com/JamesxFarris/Sixxer/internal/budget"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
	"github.com/JamesxFarris/Sixxer/internal/workers"
)

// Module provides the order pipeline dispatcher.
var Module = fx.Provide(newDispatcher)

type dispatcherParams struct {
	fx.In

	Machine      *statemachine.Machine
	Orders       repository.OrderRepository
	Analyzer     *ai.Analyzer
	Communicator *ai.Communicator
	Registry     *workers.Registry
	Reviser      *workers.Reviser
	Guard        *budget.Guard
	Logger       *slog.Logger
}

func newDispatcher(p dispatcherParams) *Dispatcher {
	return New(p.Machine, p.Orders, p.Analyzer, p.Communicator, p.Registry, p.Reviser, p.Guard, p.Logger)
}

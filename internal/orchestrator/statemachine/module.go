package statemachine

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
)

// Module provides the order state machine.
var Module = fx.Provide(newMachine)

type machineParams struct {
	fx.In

	Orders    repository.OrderRepository
	Publisher Publisher          `optional:"true"`
	Observer  TransitionObserver `optional:"true"`
	Logger    *slog.Logger
}

func newMachine(p machineParams) *Machine {
	return New(p.Orders, p.Publisher, p.Observer, p.Logger)
}

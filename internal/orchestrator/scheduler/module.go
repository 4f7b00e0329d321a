package scheduler

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/adapter/marketplace"
	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
	"github.com/JamesxFarris/Sixxer/internal/metrics"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/dispatcher"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
)

// Module provides the polling scheduler.
var Module = fx.Provide(newScheduler)

type schedulerParams struct {
	fx.In

	Config      *config.Config
	Marketplace *marketplace.Client
	Dispatcher  *dispatcher.Dispatcher
	Machine     *statemachine.Machine
	Orders      repository.OrderRepository
	Messages    repository.MessageRepository
	Metrics     *metrics.Metrics `optional:"true"`
	Logger      *slog.Logger
}

func newScheduler(p schedulerParams) *Scheduler {
	c := Collaborators{
		Session:    p.Marketplace,
		Monitor:    p.Marketplace,
		Actions:    p.Marketplace,
		Inbox:      p.Marketplace,
		Dispatcher: p.Dispatcher,
		Machine:    p.Machine,
		Orders:     p.Orders,
		Messages:   p.Messages,
	}
	if p.Metrics != nil {
		c.Observer = p.Metrics
	}
	return New(c, Config{
		PollIntervalMin: p.Config.PollIntervalMin,
		PollIntervalMax: p.Config.PollIntervalMax,
		ErrorCooldown:   p.Config.ErrorCooldown,
		BudgetCooldown:  p.Config.BudgetCooldown,
	}, p.Logger)
}

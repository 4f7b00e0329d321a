package usecase

import (
	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/budget"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
	"github.com/JamesxFarris/Sixxer/internal/metrics"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/scheduler"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
	pkgAuth "github.com/JamesxFarris/Sixxer/internal/pkg/auth"
)

// Module provides the operator use cases to the fx container.
var Module = fx.Provide(
	newAuthUseCase,
	newOrderUseCase,
	newReportUseCase,
)

func newAuthUseCase(verifier *pkgAuth.TokenVerifier, hasher pkgAuth.Hasher) *AuthUseCase {
	return NewAuthUseCase(verifier, hasher)
}

func newOrderUseCase(machine *statemachine.Machine, messages repository.MessageRepository) *OrderUseCase {
	return NewOrderUseCase(machine, messages)
}

type reportParams struct {
	fx.In

	Orders    repository.OrderRepository
	Guard     *budget.Guard
	Scheduler *scheduler.Scheduler `optional:"true"`
	Metrics   *metrics.Metrics     `optional:"true"`
}

func newReportUseCase(p reportParams) *ReportUseCase {
	var (
		cycles CycleCounter
		gauge  OrderGauge
	)
	if p.Scheduler != nil {
		cycles = p.Scheduler
	}
	if p.Metrics != nil {
		gauge = p.Metrics
	}
	return NewReportUseCase(p.Orders, p.Guard, cycles, gauge)
}

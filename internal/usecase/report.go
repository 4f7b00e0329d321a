package usecase

import (
	"context"
	"time"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// StatusCounter counts stored orders per status.
type StatusCounter interface {
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
}

// SpendReader reports today's paid API spend.
type SpendReader interface {
	DailySpend(ctx context.Context) (float64, error)
}

// CycleCounter exposes the scheduler cycle counter and run state.
type CycleCounter interface {
	CycleCount() int64
	Running() bool
}

// OrderGauge mirrors order counts into metrics.
type OrderGauge interface {
	SetOrderCounts(counts map[model.OrderStatus]int)
}

// ReportUseCase assembles the operational status report.
type ReportUseCase struct {
	orders    StatusCounter
	spend     SpendReader
	cycles    CycleCounter
	gauge     OrderGauge
	startedAt time.Time
	now       func() time.Time
}

// NewReportUseCase constructs ReportUseCase. cycles and gauge may be nil.
func NewReportUseCase(orders StatusCounter, spend SpendReader, cycles CycleCounter, gauge OrderGauge) *ReportUseCase {
	now := func() time.Time { return time.Now().UTC() }
	return &ReportUseCase{
		orders:    orders,
		spend:     spend,
		cycles:    cycles,
		gauge:     gauge,
		startedAt: now(),
		now:       now,
	}
}

// Report returns cycle count, daily spend and order counts for every status.
func (u *ReportUseCase) Report(ctx context.Context) (*model.StatusReport, error) {
	counts, err := u.orders.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	spend, err := u.spend.DailySpend(ctx)
	if err != nil {
		return nil, err
	}

	full := make(map[model.OrderStatus]int, len(model.OrderStatuses()))
	for _, status := range model.OrderStatuses() {
		full[status] = counts[status]
	}
	if u.gauge != nil {
		u.gauge.SetOrderCounts(full)
	}

	report := &model.StatusReport{
		DailyAPICostUSD: spend,
		OrdersByStatus:  full,
		StartedAt:       u.startedAt,
		GeneratedAt:     u.now(),
	}
	if u.cycles != nil {
		report.CycleCount = u.cycles.CycleCount()
		report.SchedulerRunning = u.cycles.Running()
	}
	return report, nil
}

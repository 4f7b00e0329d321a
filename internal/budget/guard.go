package budget

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
)

// ExceededError reports the spend that tripped the cap.
type ExceededError struct {
	Spend float64
	Cap   float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("daily API budget of $%.2f exceeded (current spend: $%.4f)", e.Cap, e.Spend)
}

func (e *ExceededError) Unwrap() error {
	return domainErrors.ErrBudgetExceeded
}

// CallObserver is notified about every recorded call.
type CallObserver interface {
	ObserveAPICall(modelName, purpose string, inputTokens, outputTokens int, costUSD float64)
}

// Guard tracks daily spend on paid API calls and enforces the cap.
type Guard struct {
	costs    repository.CostRepository
	pricing  PricingTable
	cap      decimal.Decimal
	observer CallObserver
	logger   *slog.Logger
	now      func() time.Time

	mu    sync.Mutex
	day   time.Time
	spent decimal.Decimal
}

// NewGuard constructs Guard. costs and observer may be nil; without costs the
// in-memory accumulator is authoritative.
func NewGuard(costs repository.CostRepository, pricing PricingTable, capUSD float64, observer CallObserver, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guard{
		costs:    costs,
		pricing:  pricing,
		cap:      decimal.NewFromFloat(capUSD),
		observer: observer,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Cap returns the configured daily cap in USD.
func (g *Guard) Cap() float64 {
	return g.cap.InexactFloat64()
}

// RecordCall prices and persists one completed call. Spend and metrics only
// count calls that were stored.
func (g *Guard) RecordCall(ctx context.Context, inputTokens, outputTokens int, modelName, purpose string) (*model.APICost, error) {
	cost := g.pricing.Cost(modelName, inputTokens, outputTokens)
	now := g.now()
	record := model.APICost{
		Model:        modelName,
		InputTokens:  inputTokens,
		OutputTokens: outputTokens,
		CostUSD:      cost.InexactFloat64(),
		Purpose:      purpose,
		Timestamp:    now,
	}

	stored := &record
	if g.costs != nil {
		var err error
		if stored, err = g.costs.Create(ctx, record); err != nil {
			return nil, fmt.Errorf("persist api cost: %w", err)
		}
	}

	g.mu.Lock()
	g.rollover(now)
	g.spent = g.spent.Add(cost)
	g.mu.Unlock()

	if g.observer != nil {
		g.observer.ObserveAPICall(modelName, purpose, inputTokens, outputTokens, record.CostUSD)
	}

	g.logger.Debug("api call recorded",
		slog.String("model", modelName),
		slog.String("purpose", purpose),
		slog.Int("input_tokens", inputTokens),
		slog.Int("output_tokens", outputTokens),
		slog.String("cost_usd", cost.StringFixed(6)))
	return stored, nil
}

// DailySpend returns the spend of the current UTC day.
func (g *Guard) DailySpend(ctx context.Context) (float64, error) {
	now := g.now()
	if g.costs == nil {
		g.mu.Lock()
		defer g.mu.Unlock()
		g.rollover(now)
		return g.spent.InexactFloat64(), nil
	}
	start := startOfDay(now)
	total, err := g.costs.SumBetween(ctx, start, start.Add(24*time.Hour))
	if err != nil {
		return 0, fmt.Errorf("sum daily spend: %w", err)
	}
	return total, nil
}

// CheckBudget fails with ErrBudgetExceeded once the daily spend reaches the cap.
func (g *Guard) CheckBudget(ctx context.Context) error {
	spend, err := g.DailySpend(ctx)
	if err != nil {
		return err
	}
	if decimal.NewFromFloat(spend).GreaterThanOrEqual(g.cap) {
		return &ExceededError{Spend: spend, Cap: g.Cap()}
	}
	return nil
}

// rollover must be called with mu held.
func (g *Guard) rollover(now time.Time) {
	day := startOfDay(now)
	if !day.Equal(g.day) {
		g.day = day
		g.spent = decimal.Zero
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

package budget

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/config"
	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
	testhelpers "github.com/JamesxFarris/Sixxer/internal/test"
)

const sonnet = "claude-sonnet-4-5-20250929"

type observerStub struct {
	calls int
	cost  float64
}

func (o *observerStub) ObserveAPICall(_, _ string, _, _ int, costUSD float64) {
	o.calls++
	o.cost += costUSD
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestPricingCost(t *testing.T) {
	pricing := DefaultPricing()
	tests := []struct {
		model   string
		in, out int
		want    string
	}{
		{sonnet, 200, 0, "0.0006"},
		{sonnet, 1000, 1000, "0.018"},
		{"claude-haiku-3-5-20241022", 1_000_000, 1_000_000, "4.8"},
		{"unknown-model", 1_000_000, 0, "3"},
	}
	for _, tt := range tests {
		got := pricing.Cost(tt.model, tt.in, tt.out)
		if !got.Equal(decimal.RequireFromString(tt.want)) {
			t.Errorf("Cost(%s, %d, %d) = %s, want %s", tt.model, tt.in, tt.out, got, tt.want)
		}
	}
}

func TestLoadPricing(t *testing.T) {
	table, err := LoadPricing("")
	if err != nil || !table.Rate(sonnet).Input.Equal(decimal.NewFromInt(3)) {
		t.Fatalf("expected built-in table, got %+v err=%v", table, err)
	}

	dir := t.TempDir()
	path := filepath.Join(dir, "pricing.yaml")
	content := "default:\n  input: 1\nmodels:\n  custom-model: {input: 2, output: 10}\n  claude-haiku-3-5-20241022: {output: 5}\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write pricing: %v", err)
	}
	table, err = LoadPricing(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !table.Default.Input.Equal(decimal.NewFromInt(1)) || !table.Default.Output.Equal(decimal.NewFromInt(15)) {
		t.Fatalf("unexpected default rate %+v", table.Default)
	}
	if !table.Rate("custom-model").Output.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("unexpected custom rate %+v", table.Rate("custom-model"))
	}
	haiku := table.Rate("claude-haiku-3-5-20241022")
	if !haiku.Input.Equal(decimal.NewFromFloat(0.8)) || !haiku.Output.Equal(decimal.NewFromInt(5)) {
		t.Fatalf("unexpected haiku rate %+v", haiku)
	}

	for name, body := range map[string]string{
		"bad.yaml":      "models: [",
		"negative.yaml": "models:\n  x: {input: -1}\n",
	} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(body), 0o600); err != nil {
			t.Fatalf("write: %v", err)
		}
		if _, err := LoadPricing(p); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, err := LoadPricing(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatal("expected read error")
	}
}

func TestDailySpendSumsPersistedCalls(t *testing.T) {
	costs := &testhelpers.CostRepositoryStub{}
	observer := &observerStub{}
	guard := NewGuard(costs, DefaultPricing(), 5, observer, testhelpers.DiscardLogger())
	guard.now = fixedClock(time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC))

	const n = 7
	for i := 0; i < n; i++ {
		record, err := guard.RecordCall(context.Background(), 200, 0, sonnet, "analysis")
		if err != nil {
			t.Fatalf("record call: %v", err)
		}
		if record.ID == 0 || record.CostUSD != 0.0006 {
			t.Fatalf("unexpected record %+v", record)
		}
	}

	spend, err := guard.DailySpend(context.Background())
	if err != nil {
		t.Fatalf("daily spend: %v", err)
	}
	if math.Abs(spend-n*0.0006) > 1e-9 {
		t.Fatalf("expected %v, got %v", n*0.0006, spend)
	}
	if len(costs.Recorded()) != n || observer.calls != n {
		t.Fatalf("expected %d records and observations, got %d and %d", n, len(costs.Recorded()), observer.calls)
	}
}

func TestDailySpendIgnoresOtherDays(t *testing.T) {
	costs := &testhelpers.CostRepositoryStub{}
	guard := NewGuard(costs, DefaultPricing(), 5, nil, testhelpers.DiscardLogger())

	guard.now = fixedClock(time.Date(2025, 3, 1, 23, 59, 0, 0, time.UTC))
	if _, err := guard.RecordCall(context.Background(), 1_000_000, 0, sonnet, "analysis"); err != nil {
		t.Fatalf("record: %v", err)
	}
	guard.now = fixedClock(time.Date(2025, 3, 2, 0, 1, 0, 0, time.UTC))
	if _, err := guard.RecordCall(context.Background(), 200, 0, sonnet, "analysis"); err != nil {
		t.Fatalf("record: %v", err)
	}

	spend, err := guard.DailySpend(context.Background())
	if err != nil || math.Abs(spend-0.0006) > 1e-9 {
		t.Fatalf("expected only today's spend, got %v err=%v", spend, err)
	}
}

func TestInMemoryAccumulatorWithoutStore(t *testing.T) {
	guard := NewGuard(nil, DefaultPricing(), 5, nil, nil)
	guard.now = fixedClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	for i := 0; i < 3; i++ {
		if _, err := guard.RecordCall(context.Background(), 200, 0, sonnet, "analysis"); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	spend, err := guard.DailySpend(context.Background())
	if err != nil || spend != 0.0018 {
		t.Fatalf("expected 0.0018, got %v err=%v", spend, err)
	}

	guard.now = fixedClock(time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	spend, err = guard.DailySpend(context.Background())
	if err != nil || spend != 0 {
		t.Fatalf("expected reset at UTC midnight, got %v err=%v", spend, err)
	}
}

func TestCheckBudget(t *testing.T) {
	costs := &testhelpers.CostRepositoryStub{}
	guard := NewGuard(costs, DefaultPricing(), 3, nil, testhelpers.DiscardLogger())
	guard.now = fixedClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	if err := guard.CheckBudget(context.Background()); err != nil {
		t.Fatalf("expected budget available, got %v", err)
	}

	if _, err := guard.RecordCall(context.Background(), 1_000_000, 0, sonnet, "generation"); err != nil {
		t.Fatalf("record: %v", err)
	}
	err := guard.CheckBudget(context.Background())
	if !errors.Is(err, domainErrors.ErrBudgetExceeded) {
		t.Fatalf("expected budget exceeded at spend == cap, got %v", err)
	}
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) || exceeded.Spend != 3 || exceeded.Cap != 3 {
		t.Fatalf("unexpected error detail %v", err)
	}
	if exceeded.Error() != "daily API budget of $3.00 exceeded (current spend: $3.0000)" {
		t.Fatalf("unexpected message %q", exceeded.Error())
	}
	if len(costs.Recorded()) != 1 {
		t.Fatalf("checking the budget must not record cost")
	}
}

func TestGuardStoreErrors(t *testing.T) {
	costs := &testhelpers.CostRepositoryStub{CreateErr: errors.New("insert"), SumErr: errors.New("sum")}
	guard := NewGuard(costs, DefaultPricing(), 5, nil, testhelpers.DiscardLogger())

	if _, err := guard.RecordCall(context.Background(), 1, 1, sonnet, "x"); err == nil {
		t.Fatal("expected persist error")
	}
	if _, err := guard.DailySpend(context.Background()); err == nil {
		t.Fatal("expected sum error")
	}
	if err := guard.CheckBudget(context.Background()); err == nil || errors.Is(err, domainErrors.ErrBudgetExceeded) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestRecordCallFailedPersistIsNotCounted(t *testing.T) {
	costs := &testhelpers.CostRepositoryStub{CreateErr: errors.New("insert")}
	observer := &observerStub{}
	guard := NewGuard(costs, DefaultPricing(), 5, observer, testhelpers.DiscardLogger())
	guard.now = fixedClock(time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC))

	if _, err := guard.RecordCall(context.Background(), 1_000_000, 0, sonnet, "analysis"); err == nil {
		t.Fatal("expected persist error")
	}
	if observer.calls != 0 || observer.cost != 0 {
		t.Fatalf("unstored call must not be observed, got %+v", observer)
	}
	guard.mu.Lock()
	spent := guard.spent
	guard.mu.Unlock()
	if !spent.IsZero() {
		t.Fatalf("unstored call must not be accumulated, got %s", spent)
	}
}

func TestModuleProvidesGuard(t *testing.T) {
	var guard *Guard
	app := fx.New(
		fx.NopLogger,
		fx.Supply(&config.Config{DailyCostCap: 2}),
		fx.Provide(
			testhelpers.DiscardLogger,
			func() repository.CostRepository { return &testhelpers.CostRepositoryStub{} },
		),
		Module,
		fx.Populate(&guard),
	)
	if err := app.Err(); err != nil {
		t.Fatalf("fx app failed: %v", err)
	}
	if guard.Cap() != 2 {
		t.Fatalf("unexpected cap %v", guard.Cap())
	}

	app = fx.New(
		fx.NopLogger,
		fx.Supply(&config.Config{DailyCostCap: 2, PricingFile: filepath.Join(t.TempDir(), "missing.yaml")}),
		fx.Provide(
			testhelpers.DiscardLogger,
			func() repository.CostRepository { return &testhelpers.CostRepositoryStub{} },
		),
		Module,
		fx.Populate(&guard),
	)
	if app.Err() == nil {
		t.Fatal("expected pricing load error")
	}
}

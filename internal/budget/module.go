package budget

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
)

// Module provides the budget guard.
var Module = fx.Provide(newGuard)

type guardParams struct {
	fx.In

	Config   *config.Config
	Costs    repository.CostRepository
	Observer CallObserver `optional:"true"`
	Logger   *slog.Logger
}

func newGuard(p guardParams) (*Guard, error) {
	pricing, err := LoadPricing(p.Config.PricingFile)
	if err != nil {
		return nil, err
	}
	return NewGuard(p.Costs, pricing, p.Config.DailyCostCap, p.Observer, p.Logger), nil
}

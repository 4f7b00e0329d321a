package marketplace

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/config"
)

// Module exposes the marketplace bridge client to fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (*Client, error) {
	return NewClient(p.Config.MarketplaceAddress, p.Config.MarketplaceTimeout, p.Logger)
}

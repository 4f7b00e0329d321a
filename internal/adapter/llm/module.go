package llm

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/budget"
	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/pkg/retry"
)

// Module exposes the budget guarded LLM client.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Guard  *budget.Guard
	Logger *slog.Logger
}

func newClient(p clientParams) (*Client, error) {
	return NewClient(Config{
		APIKey:  p.Config.AnthropicAPIKey,
		BaseURL: p.Config.AnthropicBaseURL,
		Model:   p.Config.Model,
		Retry:   retry.DefaultPolicy(Retryable),
	}, p.Guard, p.Logger)
}

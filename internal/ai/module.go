package ai

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/adapter/llm"
)

// Module provides the LLM backed analyzer and communicator.
var Module = fx.Provide(
	newAnalyzer,
	newCommunicator,
)

func newAnalyzer(client *llm.Client, logger *slog.Logger) *Analyzer {
	return NewAnalyzer(client, logger)
}

func newCommunicator(client *llm.Client, logger *slog.Logger) *Communicator {
	return NewCommunicator(client, logger)
}

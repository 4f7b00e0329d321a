package workers

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/JamesxFarris/Sixxer/internal/adapter/llm"
	"github.com/JamesxFarris/Sixxer/internal/config"
)

// Module wires the deliverable store, the gig workers and the revision delegator.
var Module = fx.Provide(
	newFiles,
	newRegistry,
	NewReviser,
)

func newFiles(cfg *config.Config, logger *slog.Logger) (*Files, error) {
	return NewFiles(cfg.DeliverablesDir, logger)
}

func newRegistry(client *llm.Client, files *Files, logger *slog.Logger) (*Registry, error) {
	return NewRegistry(
		NewWritingWorker(client, files, logger),
		NewCodingWorker(client, files, logger),
		NewDataEntryWorker(client, files, logger),
	)
}

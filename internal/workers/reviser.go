package workers

import (
	"context"
	"fmt"
	"log/slog"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// Reviser routes a revision to the worker that produced the order's deliverables.
type Reviser struct {
	registry *Registry
	files    *Files
	logger   *slog.Logger
}

// NewReviser constructs Reviser.
func NewReviser(registry *Registry, files *Files, logger *slog.Logger) *Reviser {
	return &Reviser{registry: registry, files: files, logger: logger}
}

// Revise applies feedback to the order's current deliverables. When the order
// carries no paths the files stored for it are used instead.
func (r *Reviser) Revise(ctx context.Context, order model.Order, feedback string) ([]string, error) {
	worker, ok := r.registry.Lookup(order.GigType)
	if !ok {
		return nil, fmt.Errorf("%w: %q", domainErrors.ErrNoWorker, order.GigType)
	}

	originals := order.DeliverablePaths
	if len(originals) == 0 && r.files != nil {
		found, err := r.files.List(order.ID)
		if err != nil {
			r.logger.Warn("list deliverables failed", slog.String("order", order.ID), slog.String("error", err.Error()))
		}
		originals = found
	}
	if len(originals) == 0 {
		r.logger.Warn("revising without original deliverables", slog.String("order", order.ID))
	}

	paths, err := worker.Revise(ctx, order, feedback, originals)
	if err != nil {
		return nil, err
	}
	r.logger.Info("revision produced",
		slog.String("order", order.ID),
		slog.String("gig_type", string(order.GigType)),
		slog.Int("files", len(paths)))
	return paths, nil
}

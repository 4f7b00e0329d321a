package statemachine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/domain/repository"
)

var transitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusNew:               {model.OrderStatusAnalyzing, model.OrderStatusFailed, model.OrderStatusCancelled},
	model.OrderStatusAnalyzing:         {model.OrderStatusClarifying, model.OrderStatusInProgress, model.OrderStatusFailed, model.OrderStatusCancelled},
	model.OrderStatusClarifying:        {model.OrderStatusInProgress, model.OrderStatusFailed, model.OrderStatusCancelled},
	model.OrderStatusInProgress:        {model.OrderStatusReview, model.OrderStatusFailed, model.OrderStatusCancelled},
	model.OrderStatusReview:            {model.OrderStatusDelivering, model.OrderStatusInProgress, model.OrderStatusFailed, model.OrderStatusCancelled},
	model.OrderStatusDelivering:        {model.OrderStatusDelivered, model.OrderStatusFailed, model.OrderStatusCancelled},
	model.OrderStatusDelivered:         {model.OrderStatusCompleted, model.OrderStatusRevisionRequested},
	model.OrderStatusRevisionRequested: {model.OrderStatusInProgress, model.OrderStatusFailed, model.OrderStatusCancelled},
	model.OrderStatusCompleted:         {},
	model.OrderStatusCancelled:         {},
	model.OrderStatusFailed:            {model.OrderStatusNew},
}

// CanTransition reports whether current -> target is a legal edge.
func CanTransition(current, target model.OrderStatus) bool {
	for _, allowed := range transitions[current] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTargets returns a copy of the legal successors of status.
func AllowedTargets(status model.OrderStatus) []model.OrderStatus {
	return append([]model.OrderStatus(nil), transitions[status]...)
}

// InvalidTransitionError describes a rejected status change.
type InvalidTransitionError struct {
	Ref  string
	From model.OrderStatus
	To   model.OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order %s from %s to %s", e.Ref, e.From, e.To)
}

func (e *InvalidTransitionError) Unwrap() error {
	return domainErrors.ErrInvalidTransition
}

// Publisher receives every committed transition.
type Publisher interface {
	Publish(ctx context.Context, event model.OrderTransition) error
}

// TransitionObserver counts committed transitions.
type TransitionObserver interface {
	ObserveTransition(from, to model.OrderStatus)
}

// Option customizes a single transition.
type Option func(*transitionOptions)

type transitionOptions struct {
	notes        string
	deliverables []string
	replacePaths bool
}

// WithNotes appends note as a new line of the order notes.
func WithNotes(note string) Option {
	return func(o *transitionOptions) { o.notes = note }
}

// WithDeliverables overwrites the deliverable paths.
func WithDeliverables(paths []string) Option {
	return func(o *transitionOptions) {
		o.deliverables = append([]string{}, paths...)
		o.replacePaths = true
	}
}

// Machine is the only writer of order status.
type Machine struct {
	orders    repository.OrderRepository
	publisher Publisher
	observer  TransitionObserver
	logger    *slog.Logger
	now       func() time.Time
}

// New constructs Machine. publisher and observer may be nil.
func New(orders repository.OrderRepository, publisher Publisher, observer TransitionObserver, logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Machine{
		orders:    orders,
		publisher: publisher,
		observer:  observer,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// CanTransition reports whether current -> target is a legal edge.
func (m *Machine) CanTransition(current, target model.OrderStatus) bool {
	return CanTransition(current, target)
}

// Transition moves the order identified by ref (internal or external id) to target.
func (m *Machine) Transition(ctx context.Context, ref string, target model.OrderStatus, opts ...Option) (*model.Order, error) {
	var options transitionOptions
	for _, opt := range opts {
		opt(&options)
	}

	var from model.OrderStatus
	updated, err := m.orders.Transition(ctx, ref, func(current model.Order) (model.Order, error) {
		if !CanTransition(current.Status, target) {
			return model.Order{}, &InvalidTransitionError{Ref: ref, From: current.Status, To: target}
		}
		from = current.Status
		return m.apply(current, target, options), nil
	})
	if err != nil {
		var invalid *InvalidTransitionError
		if errors.As(err, &invalid) {
			m.logger.Warn("transition rejected",
				slog.String("order", ref),
				slog.String("from", string(invalid.From)),
				slog.String("to", string(invalid.To)))
		}
		return nil, err
	}

	m.logger.Info("order transitioned",
		slog.String("order", updated.ExternalID),
		slog.String("from", string(from)),
		slog.String("to", string(target)))

	if m.observer != nil {
		m.observer.ObserveTransition(from, target)
	}
	if m.publisher != nil {
		event := model.OrderTransition{
			OrderID:    updated.ID,
			ExternalID: updated.ExternalID,
			From:       from,
			To:         target,
			Notes:      options.notes,
			At:         updated.UpdatedAt,
		}
		if err := m.publisher.Publish(ctx, event); err != nil {
			m.logger.Error("publish transition failed", slog.String("order", updated.ExternalID), slog.String("error", err.Error()))
		}
	}
	return updated, nil
}

func (m *Machine) apply(current model.Order, target model.OrderStatus, options transitionOptions) model.Order {
	next := current
	next.Status = target

	at := m.now()
	if !at.After(current.UpdatedAt) {
		at = current.UpdatedAt.Add(time.Microsecond)
	}
	next.UpdatedAt = at

	if options.notes != "" {
		next.Notes = current.Notes + options.notes + "\n"
	}
	if options.replacePaths {
		next.DeliverablePaths = options.deliverables
	}
	switch target {
	case model.OrderStatusDelivered:
		delivered := at
		next.DeliveredAt = &delivered
	case model.OrderStatusRevisionRequested:
		next.RevisionCount = current.RevisionCount + 1
	}
	return next
}

// Order returns the order stored under ref.
func (m *Machine) Order(ctx context.Context, ref string) (*model.Order, error) {
	return m.orders.Get(ctx, ref)
}

// OrdersByStatus returns orders in any of statuses, oldest first.
func (m *Machine) OrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	return m.orders.ListByStatus(ctx, statuses...)
}

package repository

import (
	"context"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// TransitionFunc receives the locked current order and returns its next state.
// Returning an error aborts the update.
type TransitionFunc func(current model.Order) (model.Order, error)

// OrderRepository describes persistence operations with orders.
type OrderRepository interface {
	Create(ctx context.Context, observed model.ObservedOrder) (*model.Order, bool, error)
	Get(ctx context.Context, ref string) (*model.Order, error)
	ListByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
	UpdateAnalysis(ctx context.Context, ref string, gigType model.GigType, requirements []string) error
	Transition(ctx context.Context, ref string, fn TransitionFunc) (*model.Order, error)
	CountByStatus(ctx context.Context) (map[model.OrderStatus]int, error)
}

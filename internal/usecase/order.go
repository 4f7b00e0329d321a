package usecase

import (
	"context"
	"strings"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/orchestrator/statemachine"
)

const (
	retryNote    = "Retried by operator"
	cancelNote   = "Cancelled by operator"
	completeNote = "Marked completed by operator"
)

// OrderMachine is the subset of the state machine used by operators.
type OrderMachine interface {
	Transition(ctx context.Context, ref string, target model.OrderStatus, opts ...statemachine.Option) (*model.Order, error)
	Order(ctx context.Context, ref string) (*model.Order, error)
	OrdersByStatus(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
}

// MessageHistory lists the buyer conversation of an order.
type MessageHistory interface {
	ListByOrder(ctx context.Context, orderID string) ([]model.Message, error)
}

// OrderUseCase exposes manual order administration. Every status change goes
// through the state machine, so operators cannot bypass the transition table.
type OrderUseCase struct {
	machine  OrderMachine
	messages MessageHistory
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(machine OrderMachine, messages MessageHistory) *OrderUseCase {
	return &OrderUseCase{machine: machine, messages: messages}
}

// List returns orders in any of statuses, or every order when none are given.
func (u *OrderUseCase) List(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	if len(statuses) == 0 {
		statuses = model.OrderStatuses()
	}
	return u.machine.OrdersByStatus(ctx, statuses...)
}

// Get returns the order and its message history.
func (u *OrderUseCase) Get(ctx context.Context, ref string) (*model.Order, []model.Message, error) {
	order, err := u.machine.Order(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	messages, err := u.messages.ListByOrder(ctx, order.ID)
	if err != nil {
		return nil, nil, err
	}
	return order, messages, nil
}

// Retry re-queues a failed order.
func (u *OrderUseCase) Retry(ctx context.Context, ref string) (*model.Order, error) {
	return u.machine.Transition(ctx, ref, model.OrderStatusNew, statemachine.WithNotes(retryNote))
}

// Cancel cancels a non-terminal order.
func (u *OrderUseCase) Cancel(ctx context.Context, ref, reason string) (*model.Order, error) {
	note := cancelNote
	if reason = strings.TrimSpace(reason); reason != "" {
		note += ": " + reason
	}
	return u.machine.Transition(ctx, ref, model.OrderStatusCancelled, statemachine.WithNotes(note))
}

// Complete closes a delivered order that the buyer accepted.
func (u *OrderUseCase) Complete(ctx context.Context, ref string) (*model.Order, error) {
	return u.machine.Transition(ctx, ref, model.OrderStatusCompleted, statemachine.WithNotes(completeNote))
}

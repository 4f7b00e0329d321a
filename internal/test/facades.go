package test

import (
	"context"
	"sync"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// OperatorFacadeStub provides controllable behaviour for operator endpoints.
// Unset functions fall back to an in-memory order table keyed by ID and external ID.
type OperatorFacadeStub struct {
	AuthorizeFn func(string) error
	OrdersFn    func(context.Context, ...model.OrderStatus) ([]model.Order, error)
	OrderFn     func(context.Context, string) (*model.Order, []model.Message, error)
	RetryFn     func(context.Context, string) (*model.Order, error)
	CancelFn    func(context.Context, string, string) (*model.Order, error)
	CompleteFn  func(context.Context, string) (*model.Order, error)
	ReportFn    func(context.Context) (*model.StatusReport, error)

	mu      sync.Mutex
	cancels []string
}

// Authorize accepts every token unless AuthorizeFn is set.
func (s *OperatorFacadeStub) Authorize(token string) error {
	if s.AuthorizeFn != nil {
		return s.AuthorizeFn(token)
	}
	return nil
}

// Orders returns an empty list by default.
func (s *OperatorFacadeStub) Orders(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, statuses...)
	}
	return nil, nil
}

// Order reports not found by default.
func (s *OperatorFacadeStub) Order(ctx context.Context, ref string) (*model.Order, []model.Message, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, ref)
	}
	return nil, nil, domainErrors.ErrNotFound
}

// RetryOrder returns a new order by default.
func (s *OperatorFacadeStub) RetryOrder(ctx context.Context, ref string) (*model.Order, error) {
	if s.RetryFn != nil {
		return s.RetryFn(ctx, ref)
	}
	return &model.Order{ID: ref, Status: model.OrderStatusNew}, nil
}

// CancelOrder records the reason and returns a cancelled order by default.
func (s *OperatorFacadeStub) CancelOrder(ctx context.Context, ref, reason string) (*model.Order, error) {
	s.mu.Lock()
	s.cancels = append(s.cancels, reason)
	s.mu.Unlock()
	if s.CancelFn != nil {
		return s.CancelFn(ctx, ref, reason)
	}
	return &model.Order{ID: ref, Status: model.OrderStatusCancelled}, nil
}

// CompleteOrder returns a completed order by default.
func (s *OperatorFacadeStub) CompleteOrder(ctx context.Context, ref string) (*model.Order, error) {
	if s.CompleteFn != nil {
		return s.CompleteFn(ctx, ref)
	}
	return &model.Order{ID: ref, Status: model.OrderStatusCompleted}, nil
}

// Report returns an empty report by default.
func (s *OperatorFacadeStub) Report(ctx context.Context) (*model.StatusReport, error) {
	if s.ReportFn != nil {
		return s.ReportFn(ctx)
	}
	return &model.StatusReport{OrdersByStatus: map[model.OrderStatus]int{}}, nil
}

// CancelReasons returns the reasons passed to CancelOrder.
func (s *OperatorFacadeStub) CancelReasons() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.cancels...)
}

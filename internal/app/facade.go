package app

import (
	"context"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/usecase"
)

// OperatorFacade is the single entry point of the HTTP layer into the use cases.
type OperatorFacade struct {
	auth    *usecase.AuthUseCase
	orders  *usecase.OrderUseCase
	reports *usecase.ReportUseCase
}

func NewOperatorFacade(auth *usecase.AuthUseCase, orders *usecase.OrderUseCase, reports *usecase.ReportUseCase) *OperatorFacade {
	return &OperatorFacade{auth: auth, orders: orders, reports: reports}
}

func (f *OperatorFacade) Authorize(token string) error {
	return f.auth.Authorize(token)
}

func (f *OperatorFacade) Orders(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error) {
	return f.orders.List(ctx, statuses...)
}

func (f *OperatorFacade) Order(ctx context.Context, ref string) (*model.Order, []model.Message, error) {
	return f.orders.Get(ctx, ref)
}

func (f *OperatorFacade) RetryOrder(ctx context.Context, ref string) (*model.Order, error) {
	return f.orders.Retry(ctx, ref)
}

func (f *OperatorFacade) CancelOrder(ctx context.Context, ref, reason string) (*model.Order, error) {
	return f.orders.Cancel(ctx, ref, reason)
}

func (f *OperatorFacade) CompleteOrder(ctx context.Context, ref string) (*model.Order, error) {
	return f.orders.Complete(ctx, ref)
}

func (f *OperatorFacade) Report(ctx context.Context) (*model.StatusReport, error) {
	return f.reports.Report(ctx)
}

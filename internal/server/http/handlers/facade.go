package handlers

import (
	"context"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// AuthFacade authorizes operator requests.
type AuthFacade interface {
	Authorize(token string) error
}

// OrderFacade encapsulates the order operations exposed via HTTP.
type OrderFacade interface {
	Orders(ctx context.Context, statuses ...model.OrderStatus) ([]model.Order, error)
	Order(ctx context.Context, ref string) (*model.Order, []model.Message, error)
	RetryOrder(ctx context.Context, ref string) (*model.Order, error)
	CancelOrder(ctx context.Context, ref, reason string) (*model.Order, error)
	CompleteOrder(ctx context.Context, ref string) (*model.Order, error)
}

// ReportFacade provides the service status report.
type ReportFacade interface {
	Report(ctx context.Context) (*model.StatusReport, error)
}

// OperatorFacade aggregates the full set of operations used across handlers.
type OperatorFacade interface {
	AuthFacade
	OrderFacade
	ReportFacade
}

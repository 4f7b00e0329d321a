package repository

import (
	"context"
	"time"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// CostRepository stores the paid API call ledger.
type CostRepository interface {
	Create(ctx context.Context, cost model.APICost) (*model.APICost, error)
	SumBetween(ctx context.Context, from, to time.Time) (float64, error)
}

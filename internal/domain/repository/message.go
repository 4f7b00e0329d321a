package repository

import (
	"context"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// MessageRepository stores the buyer message log.
type MessageRepository interface {
	Create(ctx context.Context, msg model.Message) (*model.Message, error)
	ListByOrder(ctx context.Context, orderID string) ([]model.Message, error)
}

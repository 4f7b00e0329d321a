package dto

import (
	"time"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

// OrderResponse represents an order in operator API responses.
type OrderResponse struct {
	ID               string     `json:"id"`
	ExternalID       string     `json:"external_id"`
	GigType          string     `json:"gig_type,omitempty"`
	Status           string     `json:"status"`
	Requirements     []string   `json:"requirements"`
	BuyerUsername    string     `json:"buyer_username,omitempty"`
	Price            float64    `json:"price"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	DeliveredAt      *time.Time `json:"delivered_at,omitempty"`
	DeliverablePaths []string   `json:"deliverable_paths"`
	RevisionCount    int        `json:"revision_count"`
	Notes            string     `json:"notes,omitempty"`
}

// MessageResponse is one entry of the order message history.
type MessageResponse struct {
	Direction string    `json:"direction"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderDetailResponse is an order together with its message history.
type OrderDetailResponse struct {
	OrderResponse
	Messages []MessageResponse `json:"messages"`
}

// CancelRequest is the optional body of the cancel endpoint.
type CancelRequest struct {
	Reason string `json:"reason"`
}

// NewOrderResponse converts a domain order.
func NewOrderResponse(o model.Order) OrderResponse {
	requirements := o.Requirements
	if requirements == nil {
		requirements = []string{}
	}
	paths := o.DeliverablePaths
	if paths == nil {
		paths = []string{}
	}
	return OrderResponse{
		ID:               o.ID,
		ExternalID:       o.ExternalID,
		GigType:          string(o.GigType),
		Status:           string(o.Status),
		Requirements:     requirements,
		BuyerUsername:    o.BuyerUsername,
		Price:            o.Price,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		DeliveredAt:      o.DeliveredAt,
		DeliverablePaths: paths,
		RevisionCount:    o.RevisionCount,
		Notes:            o.Notes,
	}
}

// NewOrderDetailResponse converts an order and its messages.
func NewOrderDetailResponse(o model.Order, messages []model.Message) OrderDetailResponse {
	resp := OrderDetailResponse{
		OrderResponse: NewOrderResponse(o),
		Messages:      make([]MessageResponse, 0, len(messages)),
	}
	for _, m := range messages {
		resp.Messages = append(resp.Messages, MessageResponse{
			Direction: string(m.Direction),
			Content:   m.Content,
			Timestamp: m.Timestamp,
		})
	}
	return resp
}

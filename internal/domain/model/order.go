package model

import (
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/JamesxFarris/Sixxer/internal/domain/errors"
)

// OrderStatus describes the fulfillment lifecycle of a marketplace order.
type OrderStatus string

const (
	OrderStatusNew               OrderStatus = "new"
	OrderStatusAnalyzing         OrderStatus = "analyzing"
	OrderStatusClarifying        OrderStatus = "clarifying"
	OrderStatusInProgress        OrderStatus = "in_progress"
	OrderStatusReview            OrderStatus = "review"
	OrderStatusDelivering        OrderStatus = "delivering"
	OrderStatusDelivered         OrderStatus = "delivered"
	OrderStatusRevisionRequested OrderStatus = "revision_requested"
	OrderStatusCompleted         OrderStatus = "completed"
	OrderStatusCancelled         OrderStatus = "cancelled"
	OrderStatusFailed            OrderStatus = "failed"
)

// OrderStatuses lists every status in lifecycle order.
func OrderStatuses() []OrderStatus {
	return []OrderStatus{
		OrderStatusNew,
		OrderStatusAnalyzing,
		OrderStatusClarifying,
		OrderStatusInProgress,
		OrderStatusReview,
		OrderStatusDelivering,
		OrderStatusDelivered,
		OrderStatusRevisionRequested,
		OrderStatusCompleted,
		OrderStatusCancelled,
		OrderStatusFailed,
	}
}

// IsTerminal reports whether no transition may leave the status.
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ParseOrderStatus converts a stored or user supplied value into OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	normalized := OrderStatus(strings.ToLower(strings.TrimSpace(value)))
	for _, s := range OrderStatuses() {
		if s == normalized {
			return s, nil
		}
	}
	return "", fmt.Errorf("unknown order status %q", value)
}

// GigType is the category of deliverable an order requires.
type GigType string

const (
	GigTypeUnknown   GigType = ""
	GigTypeWriting   GigType = "writing"
	GigTypeCoding    GigType = "coding"
	GigTypeDataEntry GigType = "data_entry"
)

// GigTypes lists the supported gig types.
func GigTypes() []GigType {
	return []GigType{GigTypeWriting, GigTypeCoding, GigTypeDataEntry}
}

// ParseGigType accepts "Data Entry", "data-entry" and "data_entry" alike.
func ParseGigType(value string) (GigType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	for _, gt := range GigTypes() {
		if string(gt) == normalized {
			return gt, nil
		}
	}
	return GigTypeUnknown, fmt.Errorf("%w: %q", domainErrors.ErrUnknownGigType, value)
}

// Order is one unit of purchased work tracked through its lifecycle.
type Order struct {
	ID               string
	ExternalID       string
	GigType          GigType
	Status           OrderStatus
	Requirements     []string
	BuyerUsername    string
	Price            float64
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeliveredAt      *time.Time
	DeliverablePaths []string
	RevisionCount    int
	Notes            string
}

// DeliveryPayload is a buyer message with the files that go along with it.
type DeliveryPayload struct {
	Message   string
	FilePaths []string
}

// OrderTransition describes a committed status change.
type OrderTransition struct {
	OrderID    string      `json:"order_id"`
	ExternalID string      `json:"external_id"`
	From       OrderStatus `json:"from"`
	To         OrderStatus `json:"to"`
	Notes      string      `json:"notes,omitempty"`
	At         time.Time   `json:"at"`
}

package model

import "time"

// MessageDirection tells whether a buyer message was sent or received.
type MessageDirection string

const (
	MessageDirectionSent     MessageDirection = "sent"
	MessageDirectionReceived MessageDirection = "received"
)

// Message is an immutable record of one buyer-facing communication.
type Message struct {
	ID        int64
	OrderID   string
	Direction MessageDirection
	Content   string
	Timestamp time.Time
}

// APICost is an immutable record of one paid API call.
type APICost struct {
	ID           int64
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Purpose      string
	Timestamp    time.Time
}

// Gig is a service listing published on the marketplace.
type Gig struct {
	ID            int64
	ExternalGigID string
	GigType       GigType
	Title         string
	Status        string
	CreatedAt     time.Time
}

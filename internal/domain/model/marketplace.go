package model

import "time"

// ObservedOrder is what the marketplace monitor reports for a new or changed order.
type ObservedOrder struct {
	ExternalID    string  `json:"external_id"`
	Status        string  `json:"status"`
	BuyerUsername string  `json:"buyer_username"`
	GigTypeHint   string  `json:"gig_type_hint"`
	Price         float64 `json:"price"`
}

// OrderDetails holds the order page content needed for analysis.
type OrderDetails struct {
	RequirementsText string     `json:"requirements_text"`
	AttachedFiles    []string   `json:"attached_files"`
	Deadline         *time.Time `json:"deadline,omitempty"`
}

// RevisionRequest carries buyer feedback for a delivered order.
type RevisionRequest struct {
	Feedback string `json:"feedback"`
}

// AnalyzeRequest is the input of order analysis.
type AnalyzeRequest struct {
	Text          string
	GigTitle      string
	Price         float64
	BuyerUsername string
}

// Analysis is the structured result of order analysis.
type Analysis struct {
	GigType                GigType
	Requirements           []string
	NeedsClarification     bool
	ClarificationQuestions []string
	WordCount              *int
	RowCount               *int
	ScriptComplexity       string
}

// StatusReport summarizes the operational state of the service.
type StatusReport struct {
	CycleCount       int64
	SchedulerRunning bool
	DailyAPICostUSD  float64
	OrdersByStatus   map[OrderStatus]int
	StartedAt        time.Time
	GeneratedAt      time.Time
}

// Uptime is the time between service start and report generation.
func (r StatusReport) Uptime() time.Duration {
	if r.StartedAt.IsZero() {
		return 0
	}
	return r.GeneratedAt.Sub(r.StartedAt)
}

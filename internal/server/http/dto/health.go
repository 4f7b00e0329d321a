package dto

import (
	"time"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

const (
	HealthStatusOK       = "ok"
	HealthStatusDegraded = "degraded"
)

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	Status           string         `json:"status"`
	UptimeSeconds    int64          `json:"uptime_seconds"`
	CycleCount       int64          `json:"cycle_count"`
	SchedulerRunning bool           `json:"scheduler_running"`
	DailyAPICostUSD  float64        `json:"daily_api_cost_usd"`
	Orders           map[string]int `json:"orders"`
	GeneratedAt      time.Time      `json:"generated_at"`
	Error            string         `json:"error,omitempty"`
}

// NewHealthResponse converts a status report.
func NewHealthResponse(r model.StatusReport) HealthResponse {
	orders := make(map[string]int, len(r.OrdersByStatus))
	for status, n := range r.OrdersByStatus {
		orders[string(status)] = n
	}
	return HealthResponse{
		Status:           HealthStatusOK,
		UptimeSeconds:    int64(r.Uptime().Seconds()),
		CycleCount:       r.CycleCount,
		SchedulerRunning: r.SchedulerRunning,
		DailyAPICostUSD:  r.DailyAPICostUSD,
		Orders:           orders,
		GeneratedAt:      r.GeneratedAt,
	}
}

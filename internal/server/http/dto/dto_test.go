package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
)

func TestNewOrderResponseNormalizesSlices(t *testing.T) {
	resp := NewOrderResponse(model.Order{ID: "a", ExternalID: "FO-1", Status: model.OrderStatusNew})
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := decoded["requirements"].([]any); !ok {
		t.Fatalf("expected requirements array, got %v", decoded["requirements"])
	}
	if _, ok := decoded["gig_type"]; ok {
		t.Fatalf("expected gig_type omitted for unknown type")
	}
	if decoded["status"] != "new" {
		t.Fatalf("unexpected status %v", decoded["status"])
	}
}

func TestNewOrderDetailResponse(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	resp := NewOrderDetailResponse(model.Order{ID: "a", GigType: model.GigTypeCoding}, []model.Message{
		{Direction: model.MessageDirectionSent, Content: "hi", Timestamp: at},
		{Direction: model.MessageDirectionReceived, Content: "fix it", Timestamp: at.Add(time.Hour)},
	})
	if resp.GigType != "coding" || len(resp.Messages) != 2 {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Messages[1].Direction != "received" || resp.Messages[1].Content != "fix it" {
		t.Fatalf("unexpected message %+v", resp.Messages[1])
	}
}

func TestNewHealthResponse(t *testing.T) {
	started := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	resp := NewHealthResponse(model.StatusReport{
		CycleCount:       4,
		SchedulerRunning: true,
		DailyAPICostUSD:  0.25,
		OrdersByStatus:   map[model.OrderStatus]int{model.OrderStatusNew: 2},
		StartedAt:        started,
		GeneratedAt:      started.Add(90 * time.Second),
	})
	if resp.Status != HealthStatusOK || resp.UptimeSeconds != 90 || resp.CycleCount != 4 || !resp.SchedulerRunning {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Orders["new"] != 2 {
		t.Fatalf("unexpected orders %v", resp.Orders)
	}
}

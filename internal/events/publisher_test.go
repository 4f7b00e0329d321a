package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx/fxtest"

	"github.com/JamesxFarris/Sixxer/internal/config"
	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	testhelpers "github.com/JamesxFarris/Sixxer/internal/test"
)

type producerStub struct {
	records []*kgo.Record
	err     error
	closed  bool
}

func (p *producerStub) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	p.records = append(p.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: p.err})
	}
	return results
}

func (p *producerStub) Close() { p.closed = true }

func sampleEvent() model.OrderTransition {
	return model.OrderTransition{
		OrderID:    "abc123",
		ExternalID: "FO-12345",
		From:       model.OrderStatusReview,
		To:         model.OrderStatusDelivering,
		At:         time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisherPublish(t *testing.T) {
	stub := &producerStub{}
	publisher := &KafkaPublisher{client: stub, topic: "orders", logger: testhelpers.DiscardLogger()}

	if err := publisher.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(stub.records) != 1 {
		t.Fatalf("expected one record, got %d", len(stub.records))
	}
	record := stub.records[0]
	if record.Topic != "orders" || string(record.Key) != "FO-12345" {
		t.Fatalf("unexpected record routing: topic=%q key=%q", record.Topic, record.Key)
	}
	var payload map[string]any
	if err := json.Unmarshal(record.Value, &payload); err != nil {
		t.Fatalf("invalid payload: %v", err)
	}
	if payload["type"] != TypeOrderTransitioned || payload["from"] != "review" || payload["to"] != "delivering" {
		t.Fatalf("unexpected payload %v", payload)
	}
	if _, ok := payload["notes"]; ok {
		t.Fatal("empty notes must be omitted")
	}

	publisher.Close()
	if !stub.closed {
		t.Fatal("expected client to be closed")
	}
}

func TestKafkaPublisherProduceError(t *testing.T) {
	stub := &producerStub{err: errors.New("broker unavailable")}
	publisher := &KafkaPublisher{client: stub, topic: "orders", logger: testhelpers.DiscardLogger()}

	if err := publisher.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatal("expected error")
	}
}

func TestRecordCarriesTraceParent(t *testing.T) {
	tp := sdktrace.NewTracerProvider()
	ctx, span := tp.Tracer("test").Start(context.Background(), "parent")
	defer span.End()

	record, err := newRecord(ctx, "orders", sampleEvent())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Headers) != 1 || record.Headers[0].Key != "traceparent" {
		t.Fatalf("expected traceparent header, got %v", record.Headers)
	}

	record, err = newRecord(context.Background(), "orders", sampleEvent())
	if err != nil || len(record.Headers) != 0 {
		t.Fatalf("expected no headers without span, got %v err=%v", record.Headers, err)
	}
}

func TestNopPublisher(t *testing.T) {
	if err := (NopPublisher{}).Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewPublisherProvider(t *testing.T) {
	lc := fxtest.NewLifecycle(t)
	publisher, err := newPublisher(lc, &config.Config{}, testhelpers.DiscardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := publisher.(NopPublisher); !ok {
		t.Fatalf("expected nop publisher without brokers, got %T", publisher)
	}

	publisher, err = newPublisher(lc, &config.Config{KafkaBrokers: []string{"127.0.0.1:9092"}, KafkaTopic: "orders", ServiceName: "sixxer"}, testhelpers.DiscardLogger())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := publisher.(*KafkaPublisher); !ok {
		t.Fatalf("expected kafka publisher, got %T", publisher)
	}
	lc.RequireStart()
	lc.RequireStop()
}

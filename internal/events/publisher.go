package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/JamesxFarris/Sixxer/internal/domain/model"
	"github.com/JamesxFarris/Sixxer/internal/tracing"
)

// TypeOrderTransitioned is the event type of committed status changes.
const TypeOrderTransitioned = "order.transitioned"

type envelope struct {
	Type string `json:"type"`
	model.OrderTransition
}

type producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

// KafkaPublisher writes lifecycle events to a Kafka topic keyed by external order id.
type KafkaPublisher struct {
	client producer
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects a franz-go client to brokers.
func NewKafkaPublisher(brokers []string, topic, clientID string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProduceRequestTimeout(10*time.Second),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ClientID(clientID),
	)
	if err != nil {
		return nil, fmt.Errorf("init kafka client: %w", err)
	}
	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish sends event and waits for the broker acknowledgement.
func (p *KafkaPublisher) Publish(ctx context.Context, event model.OrderTransition) (err error) {
	ctx, span := tracing.Start(ctx, "events.publish",
		tracing.OrderAttr(event.ExternalID),
		attribute.String("messaging.destination", p.topic))
	defer func() { tracing.End(span, err) }()

	record, err := newRecord(ctx, p.topic, event)
	if err != nil {
		return err
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", TypeOrderTransitioned, err)
	}
	p.logger.Debug("transition published", slog.String("order", event.ExternalID), slog.String("topic", p.topic))
	return nil
}

// Close flushes and closes the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

func newRecord(ctx context.Context, topic string, event model.OrderTransition) (*kgo.Record, error) {
	data, err := json.Marshal(envelope{Type: TypeOrderTransitioned, OrderTransition: event})
	if err != nil {
		return nil, fmt.Errorf("encode event: %w", err)
	}
	return &kgo.Record{
		Topic:   topic,
		Key:     []byte(event.ExternalID),
		Value:   data,
		Headers: traceHeaders(ctx),
	}, nil
}

func traceHeaders(ctx context.Context) []kgo.RecordHeader {
	carrier := propagation.MapCarrier{}
	propagation.TraceContext{}.Inject(ctx, carrier)
	traceparent, ok := carrier["traceparent"]
	if !ok {
		return nil
	}
	return []kgo.RecordHeader{{Key: "traceparent", Value: []byte(traceparent)}}
}

// NopPublisher drops events; used when no brokers are configured.
type NopPublisher struct{}

// Publish does nothing.
func (NopPublisher) Publish(context.Context, model.OrderTransition) error { return nil }

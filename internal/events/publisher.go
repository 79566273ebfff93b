package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-kafka/v2/pkg/kafka"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
)

const (
	EventSource  = "library-service"
	EventVersion = "1.0"
)

// Event types
const (
	ReservationCreated       = "reservation.created"
	ReservationStatusChanged = "reservation.status_changed"
	ReservationCancelled     = "reservation.cancelled"
	ReservationOverdue       = "reservation.overdue"
)

// Event is the envelope of every domain event
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Version   string                 `json:"version"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data"`
}

// NewEvent fills the envelope fields
func NewEvent(eventType string, data map[string]interface{}) Event {
	return Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    EventSource,
		Version:   EventVersion,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Publisher delivers domain events
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// WatermillPublisher publishes events as JSON messages on one topic
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
	logger    *slog.Logger
}

func NewWatermillPublisher(publisher message.Publisher, topic string, logger *slog.Logger) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     topic,
		logger:    logger,
	}
}

// NewGoChannelPublisher returns an in-process publisher and the pub/sub it
// writes to, so callers can subscribe to the same topic
func NewGoChannelPublisher(topic string, logger *slog.Logger) (*WatermillPublisher, *gochannel.GoChannel) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, watermill.NewSlogLogger(logger))
	return NewWatermillPublisher(pubSub, topic, logger), pubSub
}

// NewKafkaPublisher publishes to the given brokers
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*WatermillPublisher, error) {
	publisher, err := kafka.NewPublisher(kafka.PublisherConfig{
		Brokers:   brokers,
		Marshaler: kafka.DefaultMarshaler{},
	}, watermill.NewSlogLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka publisher: %w", err)
	}
	return NewWatermillPublisher(publisher, topic, logger), nil
}

func (p *WatermillPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("event_type", event.Type)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	p.logger.Debug("Event published", "event_id", event.ID, "event_type", event.Type, "topic", p.topic)
	return nil
}

func (p *WatermillPublisher) Close() error {
	return p.publisher.Close()
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (NoopPublisher) Publish(ctx context.Context, event Event) error { return nil }
func (NoopPublisher) Close() error                                   { return nil }

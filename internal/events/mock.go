package events

import (
	"context"
	"log/slog"
	"sync"
)

// MockEventPublisher records published events for tests
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger

	// Err, when set, is returned from every Publish call
	Err error
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(ctx context.Context, event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return m.Err
	}
	m.events = append(m.events, event)
	m.logger.Debug("Mock event published", "event_type", event.Type)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of the recorded events
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]Event, len(m.events))
	copy(result, m.events)
	return result
}

// EventsOfType returns recorded events with the given type
func (m *MockEventPublisher) EventsOfType(eventType string) []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []Event
	for _, e := range m.events {
		if e.Type == eventType {
			result = append(result, e)
		}
	}
	return result
}

func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

package events

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewEvent(t *testing.T) {
	event := NewEvent(ReservationCreated, map[string]interface{}{"reservation_id": 1})

	if event.ID == "" {
		t.Error("event ID must be set")
	}
	if event.Source != EventSource || event.Version != EventVersion {
		t.Errorf("envelope = %s/%s", event.Source, event.Version)
	}
	if event.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}

func TestGoChannelPublisher_Delivers(t *testing.T) {
	logger := testLogger()
	publisher, pubSub := NewGoChannelPublisher("library.test", logger)
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, "library.test")
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	sent := NewEvent(ReservationStatusChanged, map[string]interface{}{"to_status": "approved"})
	if err := publisher.Publish(ctx, sent); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()
		if got := msg.Metadata.Get("event_type"); got != ReservationStatusChanged {
			t.Errorf("metadata event_type = %q", got)
		}
		var received Event
		if err := json.Unmarshal(msg.Payload, &received); err != nil {
			t.Fatalf("payload decode error = %v", err)
		}
		if received.ID != sent.ID || received.Data["to_status"] != "approved" {
			t.Errorf("received = %+v", received)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for message")
	}
}

func TestMockEventPublisher(t *testing.T) {
	mock := NewMockEventPublisher(testLogger())
	ctx := context.Background()

	_ = mock.Publish(ctx, NewEvent(ReservationCreated, nil))
	_ = mock.Publish(ctx, NewEvent(ReservationCancelled, nil))

	if n := len(mock.GetPublishedEvents()); n != 2 {
		t.Fatalf("published = %d, want 2", n)
	}
	if n := len(mock.EventsOfType(ReservationCancelled)); n != 1 {
		t.Errorf("cancelled events = %d, want 1", n)
	}

	mock.ClearEvents()
	if n := len(mock.GetPublishedEvents()); n != 0 {
		t.Errorf("after clear = %d, want 0", n)
	}

	mock.Err = errors.New("broker down")
	if err := mock.Publish(ctx, NewEvent(ReservationCreated, nil)); err == nil {
		t.Error("Publish() must return configured error")
	}
}

type recordingHandler struct {
	records chan slog.Record
}

func (h *recordingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records <- r
	return nil
}
func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func TestLogEvents(t *testing.T) {
	publisher, pubSub := NewGoChannelPublisher("library.audit", testLogger())
	defer publisher.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	handler := &recordingHandler{records: make(chan slog.Record, 4)}
	if err := LogEvents(ctx, pubSub, "library.audit", slog.New(handler)); err != nil {
		t.Fatalf("LogEvents() error = %v", err)
	}

	if err := publisher.Publish(ctx, NewEvent(ReservationOverdue, map[string]interface{}{"days_overdue": 3})); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	select {
	case r := <-handler.records:
		var eventType string
		r.Attrs(func(a slog.Attr) bool {
			if a.Key == "event_type" {
				eventType = a.Value.String()
			}
			return true
		})
		if eventType != ReservationOverdue {
			t.Errorf("logged event_type = %q", eventType)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for log record")
	}
}

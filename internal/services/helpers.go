package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/SAP-F-2025/library-service/internal/events"
)

const (
	defaultPageSize = 12
	maxPageSize     = 100
)

// normalizePagination clamps limit to [1, maxPageSize] and offset to >= 0
func normalizePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

func pageOf(limit, offset int) int {
	if limit <= 0 {
		return 1
	}
	return offset/limit + 1
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// publishEvent sends an event after a committed change. Delivery failures
// are logged and never fail the caller.
func publishEvent(ctx context.Context, publisher events.Publisher, logger *slog.Logger, eventType string, data map[string]interface{}) {
	if publisher == nil {
		return
	}
	event := events.NewEvent(eventType, data)
	if err := publisher.Publish(ctx, event); err != nil {
		logger.Warn("Failed to publish event", "event_type", eventType, "event_id", event.ID, "error", err)
	}
}

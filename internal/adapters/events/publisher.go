package events

import (
	"context"
	"log/slog"

	"makerspace/internal/domain/event"
)

// Publisher delivers domain events to an external broker.
type Publisher interface {
	Publish(ctx context.Context, e event.Event) error
}

// PublishQuietly publishes e and logs a failure instead of returning it.
// Event delivery never fails the operation that produced the event.
func PublishQuietly(ctx context.Context, p Publisher, e event.Event) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, e); err != nil {
		slog.Error("event_publish_failed", "type", e.Type, "error", err)
	}
}

package events

import (
	"context"
	"log/slog"
	"sync"

	"makerspace/internal/domain/event"
)

// NoopPublisher logs events without delivering them. Used when no broker is configured.
type NoopPublisher struct{}

// NewNoopPublisher creates a new NoopPublisher.
func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

// Publish logs the event type at debug level.
func (p *NoopPublisher) Publish(_ context.Context, e event.Event) error {
	slog.Debug("noop_event_publish", "type", e.Type)
	return nil
}

// Recorder keeps published events in memory for tests and local inspection.
type Recorder struct {
	mu     sync.Mutex
	events []event.Event
	Err    error // returned from Publish when set
}

// Publish appends e, or returns Err without recording.
func (r *Recorder) Publish(_ context.Context, e event.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.events = append(r.events, e)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]event.Event(nil), r.events...)
}

// Types returns the routing keys recorded so far, in order.
func (r *Recorder) Types() []string {
	var out []string
	for _, e := range r.Events() {
		out = append(out, e.Type)
	}
	return out
}

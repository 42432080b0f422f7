package events

import (
	"context"

	"github.com/Skotchmaster/storefront/internal/logging"
)

const source = "storefront"

// Emit publishes best effort: a broker failure is logged, never returned,
// so a committed write is not reported as failed.
func Emit(ctx context.Context, p Publisher, topic, eventType, aggregateID string, data any) {
	if p == nil {
		return
	}
	l := logging.FromContext(ctx)
	ev, err := New(eventType, aggregateID, source, data)
	if err != nil {
		l.Error("event_encode_failed", "event_type", eventType, "error", err)
		return
	}
	if err := p.Publish(ctx, topic, ev); err != nil {
		l.Warn("event_publish_failed", "topic", topic, "event_type", eventType, "aggregate_id", aggregateID, "error", err)
	}
}

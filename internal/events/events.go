package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	TopicProducts = "storefront.products"
	TopicCarts    = "storefront.carts"
	TopicOrders   = "storefront.orders"
	TopicPayments = "storefront.payments"
)

const (
	ProductCreated         = "product_created"
	ProductUpdated         = "product_updated"
	ProductDeleted         = "product_deleted"
	CartItemAdded          = "cart_item_added"
	CartItemUpdated        = "cart_item_updated"
	CartItemRemoved        = "cart_item_removed"
	OrderPaid              = "order_paid"
	OrderStatusChanged     = "order_status_changed"
	PaymentRecorded        = "payment_recorded"
	ReconciliationRequired = "payment.reconciliation_required"
)

// Event is the envelope every storefront message is wrapped in.
type Event struct {
	EventID     string          `json:"event_id"`
	EventType   string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
	Data        json.RawMessage `json:"data"`
}

func New(eventType, aggregateID, source string, data any) (*Event, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Timestamp:   time.Now().UTC(),
		Source:      source,
		Data:        b,
	}, nil
}

type Publisher interface {
	Publish(ctx context.Context, topic string, ev *Event) error
	Close() error
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, *Event) error { return nil }
func (NopPublisher) Close() error                                   { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	Events map[string][]*Event
}

func NewRecorder() *Recorder {
	return &Recorder{Events: map[string][]*Event{}}
}

func (r *Recorder) Publish(_ context.Context, topic string, ev *Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events[topic] = append(r.Events[topic], ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Types(topic string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.Events[topic]))
	for _, ev := range r.Events[topic] {
		out = append(out, ev.EventType)
	}
	return out
}

package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
)

type WebhookService struct {
	Repo      *repo.GormRepo
	Processor payment.Processor
	Events    events.Publisher
}

type WebhookResult struct {
	EventID   string `json:"event_id"`
	Duplicate bool   `json:"duplicate"`
	Applied   bool   `json:"applied"`

	// NeedsReview is set when the order could not take the status the event
	// reports and the mismatch was handed to reconciliation.
	NeedsReview bool `json:"needs_review,omitempty"`
}

var webhookTransitions = map[string]models.OrderStatus{
	payment.EventCaptureRefunded: models.OrderStatusRefunded,
}

// Handle verifies a processor notification and applies it once. Events the
// storefront does not act on are still recorded so redelivery is a no-op.
func (s *WebhookService) Handle(ctx context.Context, headers http.Header, body []byte) (*WebhookResult, error) {
	l := logging.FromContext(ctx)

	ev, err := s.Processor.VerifyWebhook(ctx, headers, body)
	if err != nil {
		if errors.Is(err, payment.ErrNotVerified) {
			l.Warn("webhook_rejected", "error", err)
			return nil, apperr.Invalid("webhook signature could not be verified")
		}
		return nil, apperr.External(processorName, err)
	}

	next, ok := webhookTransitions[ev.EventType]
	captureID := ev.CaptureID
	if !ok {
		captureID = ""
	}

	out, err := s.Repo.ApplyWebhookEvent(ctx, &models.WebhookEvent{
		EventID:   ev.ID,
		EventType: ev.EventType,
	}, captureID, next)
	if err != nil {
		return nil, translate("webhook.apply", "order", err)
	}

	res := &WebhookResult{EventID: ev.ID, Duplicate: out.Duplicate, Applied: out.Changed}
	l.Info("webhook_processed", "event_id", ev.ID, "event_type", ev.EventType, "duplicate", res.Duplicate, "applied", res.Applied)
	switch {
	case out.Rejected != nil:
		// money moved at the processor but the order cannot follow; an
		// operator has to settle it
		res.NeedsReview = true
		o := out.Order
		l.Error("data_integrity_risk",
			"event_id", ev.ID,
			"event_type", ev.EventType,
			"order_id", o.ID,
			"order_status", o.Status,
			"processor_capture_id", captureID,
			"error", out.Rejected,
		)
		events.Emit(ctx, s.Events, events.TopicPayments, events.ReconciliationRequired, o.ID.String(), map[string]any{
			"order_id":             o.ID,
			"user_id":              o.UserID,
			"order_status":         o.Status,
			"processor_capture_id": captureID,
			"source_event":         ev.ID,
			"event_type":           ev.EventType,
			"reason":               out.Rejected.Error(),
		})
	case out.Changed:
		o := out.Order
		events.Emit(ctx, s.Events, events.TopicOrders, events.OrderStatusChanged, o.ID.String(),
			map[string]any{"order_id": o.ID, "status": o.Status, "source_event": ev.ID})
	}
	return res, nil
}

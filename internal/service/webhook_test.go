package service

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/models"
)

func refundEvent(id, captureID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"event_type": "PAYMENT.CAPTURE.REFUNDED",
		"resource_type": "refund",
		"resource": {
			"id": "REF-1",
			"links": [{"rel": "up", "href": "https://api.example.test/v2/payments/captures/%s"}]
		}
	}`, id, captureID))
}

func TestWebhook_RefundMovesOrderOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order, _ := placeOrder(t, e, "key-webhook-1")

	h := http.Header{}
	h.Set("PAYPAL-TRANSMISSION-SIG", e.processor.WebhookSecret)
	body := refundEvent("WH-1", order.ProcessorCaptureID)

	res, err := e.webhooks.Handle(ctx, h, body)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.False(t, res.Duplicate)

	got, err := e.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRefunded, got.Status)

	res, err = e.webhooks.Handle(ctx, h, body)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.False(t, res.Applied)
}

func TestWebhook_BadSignature(t *testing.T) {
	e := newEnv(t)

	_, err := e.webhooks.Handle(context.Background(), http.Header{}, refundEvent("WH-2", "CAP-X"))
	assert.Equal(t, "VALIDATION_FAILED", code(t, err))
}

func TestWebhook_UnknownCaptureIsRecorded(t *testing.T) {
	e := newEnv(t)
	h := http.Header{}
	h.Set("PAYPAL-TRANSMISSION-SIG", e.processor.WebhookSecret)

	res, err := e.webhooks.Handle(context.Background(), h, refundEvent("WH-3", "CAP-UNKNOWN"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.False(t, res.Duplicate)
}

func TestWebhook_RefundOfFulfilledOrderIsHandedToReconciliation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	order, _ := placeOrder(t, e, "key-webhook-2")
	_, err := e.repo.UpdateOrderStatus(ctx, order.ID, models.OrderStatusFulfilled)
	require.NoError(t, err)

	h := http.Header{}
	h.Set("PAYPAL-TRANSMISSION-SIG", e.processor.WebhookSecret)
	body := refundEvent("WH-4", order.ProcessorCaptureID)

	res, err := e.webhooks.Handle(ctx, h, body)
	require.NoError(t, err)
	assert.True(t, res.NeedsReview)
	assert.False(t, res.Applied)
	assert.Contains(t, e.events.Types(events.TopicPayments), events.ReconciliationRequired)

	got, err := e.repo.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFulfilled, got.Status)

	res, err = e.webhooks.Handle(ctx, h, body)
	require.NoError(t, err)
	assert.True(t, res.Duplicate)
	assert.False(t, res.NeedsReview)
}

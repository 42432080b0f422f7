package payment

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_CreateIsIdempotentPerKey(t *testing.T) {
	f := NewFake()
	req := CreateOrderRequest{IdempotencyKey: "k", Amount: decimal.NewFromInt(5), Currency: "USD"}

	a, err := f.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	b, err := f.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.ID, b.ID)
}

func TestFake_CaptureAndFailures(t *testing.T) {
	f := NewFake()
	o, err := f.CreateOrder(context.Background(), CreateOrderRequest{IdempotencyKey: "k", Amount: decimal.NewFromInt(5), Currency: "USD"})
	require.NoError(t, err)

	c, err := f.CaptureOrder(context.Background(), o.ID, "k")
	require.NoError(t, err)
	require.NoError(t, c.Verify(decimal.NewFromInt(5), "USD"))

	again, err := f.CaptureOrder(context.Background(), o.ID, "k")
	require.NoError(t, err)
	assert.Equal(t, c.CaptureID, again.CaptureID)

	f.FailCapture = errors.New("declined")
	_, err = f.CaptureOrder(context.Background(), o.ID, "k")
	require.Error(t, err)
	assert.Equal(t, 3, f.CaptureCalls)
}

func TestFake_PendingCaptureSettles(t *testing.T) {
	f := NewFake()
	ctx := context.Background()
	o, err := f.CreateOrder(ctx, CreateOrderRequest{IdempotencyKey: "k", Amount: decimal.NewFromInt(5), Currency: "USD"})
	require.NoError(t, err)

	f.CaptureStatus = StatusPending
	c, err := f.CaptureOrder(ctx, o.ID, "k")
	require.NoError(t, err)
	assert.ErrorIs(t, c.Verify(decimal.NewFromInt(5), "USD"), ErrNotVerified)

	got, err := f.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, StatusPending, got.Captured().Status)

	f.SettleCapture(o.ID)
	got, err = f.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	require.NoError(t, got.Captured().Verify(decimal.NewFromInt(5), "USD"))
}

func TestDecodeWebhookEvent(t *testing.T) {
	ev, err := DecodeWebhookEvent([]byte(`{"id":"E1","event_type":"PAYMENT.CAPTURE.COMPLETED","resource_type":"capture","resource":{"id":"CAP1"}}`))
	require.NoError(t, err)
	assert.Equal(t, "CAP1", ev.CaptureID)

	_, err = DecodeWebhookEvent([]byte(`{"resource":{}}`))
	require.Error(t, err)

	f := NewFake()
	h := http.Header{}
	h.Set("PAYPAL-TRANSMISSION-SIG", "nope")
	_, err = f.VerifyWebhook(context.Background(), h, []byte(`{"id":"E1","event_type":"X"}`))
	assert.ErrorIs(t, err, ErrNotVerified)
}

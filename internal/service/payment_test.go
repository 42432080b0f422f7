package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestPayment_RecordIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	po, err := e.processor.CreateOrder(ctx, payment.CreateOrderRequest{
		IdempotencyKey: "pay-1",
		Amount:         decimal.RequireFromString("25.00"),
		Currency:       "USD",
	})
	require.NoError(t, err)
	_, err = e.processor.CaptureOrder(ctx, po.ID, "pay-1")
	require.NoError(t, err)

	req := transport.PaymentRequest{
		Name:    "Grace Hopper",
		Email:   "grace@example.test",
		Amount:  decimal.RequireFromString("25"),
		OrderID: po.ID,
	}
	rec, created, err := e.payments.Record(ctx, req)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, po.ID, rec.ProcessorOrderID)
	assert.Equal(t, "25.00", rec.Amount.StringFixed(2))

	again, created, err := e.payments.Record(ctx, req)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, rec.ID, again.ID)
	assert.Equal(t, []string{events.PaymentRecorded}, e.events.Types(events.TopicPayments))
}

func TestPayment_RecordRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	po, err := e.processor.CreateOrder(ctx, payment.CreateOrderRequest{
		IdempotencyKey: "pay-2",
		Amount:         decimal.RequireFromString("25.00"),
		Currency:       "USD",
	})
	require.NoError(t, err)
	_, err = e.processor.CaptureOrder(ctx, po.ID, "pay-2")
	require.NoError(t, err)
	uncaptured, err := e.processor.CreateOrder(ctx, payment.CreateOrderRequest{
		IdempotencyKey: "pay-3",
		Amount:         decimal.RequireFromString("25.00"),
		Currency:       "USD",
	})
	require.NoError(t, err)

	pending, err := e.processor.CreateOrder(ctx, payment.CreateOrderRequest{
		IdempotencyKey: "pay-4",
		Amount:         decimal.RequireFromString("25.00"),
		Currency:       "USD",
	})
	require.NoError(t, err)
	e.processor.CaptureStatus = payment.StatusPending
	_, err = e.processor.CaptureOrder(ctx, pending.ID, "pay-4")
	require.NoError(t, err)
	e.processor.CaptureStatus = ""

	short, err := e.processor.CreateOrder(ctx, payment.CreateOrderRequest{
		IdempotencyKey: "pay-5",
		Amount:         decimal.RequireFromString("25.00"),
		Currency:       "USD",
	})
	require.NoError(t, err)
	cents := decimal.RequireFromString("0.01")
	e.processor.CaptureAmount = &cents
	_, err = e.processor.CaptureOrder(ctx, short.ID, "pay-5")
	require.NoError(t, err)
	e.processor.CaptureAmount = nil

	tests := []struct {
		name string
		req  transport.PaymentRequest
		want string
	}{
		{"missing email", transport.PaymentRequest{Name: "x", Amount: decimal.NewFromInt(25), OrderID: po.ID}, "VALIDATION_FAILED"},
		{"bad email", transport.PaymentRequest{Name: "x", Email: "nope", Amount: decimal.NewFromInt(25), OrderID: po.ID}, "VALIDATION_FAILED"},
		{"zero amount", transport.PaymentRequest{Name: "x", Email: "a@b.test", Amount: decimal.Zero, OrderID: po.ID}, "VALIDATION_FAILED"},
		{"wrong amount", transport.PaymentRequest{Name: "x", Email: "a@b.test", Amount: decimal.NewFromInt(1), OrderID: po.ID}, "VALIDATION_FAILED"},
		{"not captured", transport.PaymentRequest{Name: "x", Email: "a@b.test", Amount: decimal.NewFromInt(25), OrderID: uncaptured.ID}, "VALIDATION_FAILED"},
		{"capture pending", transport.PaymentRequest{Name: "x", Email: "a@b.test", Amount: decimal.NewFromInt(25), OrderID: pending.ID}, "VALIDATION_FAILED"},
		{"short capture at order amount", transport.PaymentRequest{Name: "x", Email: "a@b.test", Amount: decimal.NewFromInt(25), OrderID: short.ID}, "VALIDATION_FAILED"},
		{"short capture at captured amount", transport.PaymentRequest{Name: "x", Email: "a@b.test", Amount: cents, OrderID: short.ID}, "VALIDATION_FAILED"},
		{"unknown order", transport.PaymentRequest{Name: "x", Email: "a@b.test", Amount: decimal.NewFromInt(25), OrderID: "NOPE"}, "EXTERNAL_SERVICE_FAILURE"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := e.payments.Record(ctx, tt.req)
			assert.Equal(t, tt.want, code(t, err))
		})
	}

	_, err = e.repo.GetPaymentRecord(ctx, short.ID)
	assert.Error(t, err)
}

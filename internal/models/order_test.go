package models

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderTransition(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusCreated, OrderStatusPaid, true},
		{OrderStatusCreated, OrderStatusFailed, true},
		{OrderStatusPaid, OrderStatusFulfilled, true},
		{OrderStatusPaid, OrderStatusRefunded, true},
		{OrderStatusCreated, OrderStatusFulfilled, false},
		{OrderStatusPaid, OrderStatusCreated, false},
		{OrderStatusFulfilled, OrderStatusRefunded, false},
		{OrderStatusRefunded, OrderStatusPaid, false},
		{OrderStatusFailed, OrderStatusPaid, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			o := &Order{Status: tt.from}
			err := o.Transition(tt.to)
			if tt.ok {
				require.NoError(t, err)
				assert.Equal(t, tt.to, o.Status)
				return
			}
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, tt.from, o.Status)
		})
	}
}

func TestOrderStatusTerminal(t *testing.T) {
	assert.False(t, OrderStatusCreated.Terminal())
	assert.False(t, OrderStatusPaid.Terminal())
	assert.True(t, OrderStatusFulfilled.Terminal())
	assert.True(t, OrderStatusRefunded.Terminal())
	assert.True(t, OrderStatusFailed.Terminal())
	assert.False(t, OrderStatus("shipped").Valid())
}

func TestCheckoutLines(t *testing.T) {
	cart := uuid.New()
	s := &CheckoutSession{}
	require.NoError(t, s.SetLines([]CheckoutLine{{
		CartItemID: cart,
		ProductID:  uuid.New(),
		Name:       "Mug",
		Quantity:   3,
		UnitPrice:  decimal.RequireFromString("2.50"),
	}}))

	lines, err := s.DecodeLines()
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, "7.50", lines[0].Total().StringFixed(2))

	ids, err := s.CartItemIDs()
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{cart}, ids)

	_, err = (&CheckoutSession{Lines: "not json"}).DecodeLines()
	assert.Error(t, err)
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/transport"
)

func TestCart_AddAccumulates(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := uuid.New()
	p := e.product(t, "2.50", 10)

	first := e.addToCart(t, user, p, 2)
	second := e.addToCart(t, user, p, 3)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)

	view, err := e.cart.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 5, view.ItemCount)
	assert.Equal(t, "12.50", view.Subtotal.StringFixed(2))
	assert.Equal(t, []string{events.CartItemAdded, events.CartItemAdded}, e.events.Types(events.TopicCarts))
}

func TestCart_AddDefaultsToOne(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "1.00", 5)

	item, err := e.cart.Add(context.Background(), uuid.New(), transport.AddCartItemRequest{ProductID: p.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, item.Quantity)
}

func TestCart_AddClampsToStock(t *testing.T) {
	e := newEnv(t)
	user := uuid.New()
	p := e.product(t, "1.00", 3)

	item := e.addToCart(t, user, p, 2)
	assert.Equal(t, 2, item.Quantity)
	item = e.addToCart(t, user, p, 5)
	assert.Equal(t, 3, item.Quantity)
}

func TestCart_RejectsNonPositiveQuantity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := uuid.New()
	p := e.product(t, "1.00", 3)
	item := e.addToCart(t, user, p, 1)

	for _, q := range []int{0, -1} {
		_, err := e.cart.Add(ctx, user, transport.AddCartItemRequest{ProductID: p.ID, Quantity: &q})
		assert.Equal(t, "VALIDATION_FAILED", code(t, err))

		_, err = e.cart.UpdateQuantity(ctx, item.ID, user, transport.UpdateCartItemRequest{Quantity: q})
		assert.Equal(t, "VALIDATION_FAILED", code(t, err))
	}
}

func TestCart_OutOfStock(t *testing.T) {
	e := newEnv(t)
	p := e.product(t, "1.00", 0)
	one := 1

	_, err := e.cart.Add(context.Background(), uuid.New(), transport.AddCartItemRequest{ProductID: p.ID, Quantity: &one})
	assert.Equal(t, "VALIDATION_FAILED", code(t, err))
}

func TestCart_UpdateQuantity(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := uuid.New()
	p := e.product(t, "1.00", 4)
	item := e.addToCart(t, user, p, 1)

	updated, err := e.cart.UpdateQuantity(ctx, item.ID, user, transport.UpdateCartItemRequest{Quantity: 9})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Quantity, "clamped to stock")
	assert.Greater(t, updated.Version, item.Version)

	stale := item.Version
	_, err = e.cart.UpdateQuantity(ctx, item.ID, user, transport.UpdateCartItemRequest{Quantity: 2, Version: &stale})
	assert.Equal(t, "CONFLICT", code(t, err))

	_, err = e.cart.UpdateQuantity(ctx, item.ID, uuid.New(), transport.UpdateCartItemRequest{Quantity: 2})
	assert.Equal(t, "AUTHORIZATION_DENIED", code(t, err))
}

func TestCart_ConcurrentUpdatesLandOnASentValue(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := uuid.New()
	p := e.product(t, "1.00", 100)
	item := e.addToCart(t, user, p, 1)

	sent := []int{2, 3, 5, 7, 11, 13}
	var wg sync.WaitGroup
	for _, q := range sent {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			_, err := e.cart.UpdateQuantity(ctx, item.ID, user, transport.UpdateCartItemRequest{Quantity: q})
			assert.NoError(t, err)
		}(q)
	}
	wg.Wait()

	view, err := e.cart.List(ctx, user)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Contains(t, sent, view.Items[0].Quantity)
	assert.Equal(t, 1+len(sent), view.Items[0].Version)
}

func TestCart_Remove(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	user := uuid.New()
	item := e.addToCart(t, user, e.product(t, "1.00", 2), 1)

	_, err := e.cart.Remove(ctx, item.ID, uuid.New())
	assert.Equal(t, "AUTHORIZATION_DENIED", code(t, err))

	_, err = e.cart.Remove(ctx, item.ID, user)
	require.NoError(t, err)

	view, err := e.cart.List(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
}

func TestCart_AnonymousListIsEmpty(t *testing.T) {
	e := newEnv(t)

	view, err := e.cart.List(context.Background(), uuid.Nil)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Zero(t, view.ItemCount)
}

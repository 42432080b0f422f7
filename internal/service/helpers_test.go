package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/dbtest"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

type env struct {
	repo      *repo.GormRepo
	events    *events.Recorder
	processor *payment.Fake
	access    *AccessService
	addresses *AddressService
	cart      *CartService
	catalog   *CatalogService
	orders    *OrderService
	checkout  *CheckoutService
	payments  *PaymentService
	webhooks  *WebhookService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	r := &repo.GormRepo{DB: dbtest.Open(t)}
	rec := events.NewRecorder()
	fake := payment.NewFake()

	e := &env{repo: r, events: rec, processor: fake}
	e.access = &AccessService{Repo: r}
	e.addresses = &AddressService{Repo: r}
	e.cart = &CartService{Repo: r, Events: rec}
	e.catalog = &CatalogService{Repo: r, Events: rec}
	e.orders = &OrderService{Repo: r, Access: e.access, Events: rec}
	e.checkout = &CheckoutService{
		Repo:      r,
		Addresses: e.addresses,
		Processor: fake,
		Locker:    lock.NopLocker{},
		Events:    rec,
		Currency:  "USD",
		LockTTL:   time.Second,
	}
	e.payments = &PaymentService{Repo: r, Processor: fake, Events: rec}
	e.webhooks = &WebhookService{Repo: r, Processor: fake, Events: rec}
	return e
}

func principal() identity.Principal {
	id := uuid.New()
	return identity.Principal{ID: id, Email: id.String()[:8] + "@example.test", Name: "Shopper"}
}

func (e *env) product(t *testing.T, price string, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		UserID:      uuid.New(),
		Name:        "Widget " + uuid.NewString()[:6],
		Description: "a widget",
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Category:    "widgets",
	}
	require.NoError(t, e.repo.CreateProduct(context.Background(), p))
	return p
}

func (e *env) address(t *testing.T, userID uuid.UUID) *models.ShippingAddress {
	t.Helper()
	a, err := e.addresses.Add(context.Background(), userID, transport.AddressRequest{
		FullName: "Ada Lovelace",
		Address1: "1 Analytical Way",
		City:     "London",
		State:    "LDN",
		ZipCode:  "N1 9GU",
		Country:  "GB",
	})
	require.NoError(t, err)
	return a
}

func (e *env) addToCart(t *testing.T, userID uuid.UUID, p *models.Product, qty int) *models.CartItem {
	t.Helper()
	item, err := e.cart.Add(context.Background(), userID, transport.AddCartItemRequest{ProductID: p.ID, Quantity: &qty})
	require.NoError(t, err)
	return item
}

func code(t *testing.T, err error) string {
	t.Helper()
	require.Error(t, err)
	return apperr.As(err).Code
}

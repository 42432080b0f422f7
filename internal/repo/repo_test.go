package repo

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/dbtest"
	"github.com/Skotchmaster/storefront/internal/models"
)

func newRepo(t *testing.T) *GormRepo {
	t.Helper()
	return &GormRepo{DB: dbtest.Open(t)}
}

func seedProduct(t *testing.T, r *GormRepo, stock int) *models.Product {
	t.Helper()
	p := &models.Product{
		UserID:   uuid.New(),
		Name:     "Mug",
		Price:    decimal.RequireFromString("12.50"),
		Stock:    stock,
		Category: "kitchen",
	}
	require.NoError(t, r.CreateProduct(context.Background(), p))
	return p
}

func TestAddToCart_MergesAndClampsToStock(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()
	p := seedProduct(t, r, 5)

	first, err := r.AddToCart(ctx, user, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 3, first.Quantity)
	assert.Equal(t, 1, first.Version)

	second, err := r.AddToCart(ctx, user, p.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.Quantity)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, "Mug", second.Product.Name)

	n, err := r.CountCart(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestAddToCart_OutOfStock(t *testing.T) {
	r := newRepo(t)
	p := seedProduct(t, r, 0)

	_, err := r.AddToCart(context.Background(), uuid.New(), p.ID, 1)
	assert.ErrorIs(t, err, ErrOutOfStock)
}

func TestUpdateCartQuantity_VersionAndOwner(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()
	p := seedProduct(t, r, 10)

	item, err := r.AddToCart(ctx, user, p.ID, 1)
	require.NoError(t, err)

	_, err = r.UpdateCartQuantity(ctx, item.ID, uuid.New(), 2, nil)
	assert.ErrorIs(t, err, ErrNotOwner)

	stale := item.Version + 7
	_, err = r.UpdateCartQuantity(ctx, item.ID, user, 2, &stale)
	assert.ErrorIs(t, err, ErrVersionMismatch)

	cur := item.Version
	updated, err := r.UpdateCartQuantity(ctx, item.ID, user, 40, &cur)
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Quantity)
	assert.Equal(t, cur+1, updated.Version)
}

func TestRemoveCartItem(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()
	p := seedProduct(t, r, 3)

	item, err := r.AddToCart(ctx, user, p.ID, 1)
	require.NoError(t, err)

	_, err = r.RemoveCartItem(ctx, item.ID, uuid.New())
	assert.ErrorIs(t, err, ErrNotOwner)

	_, err = r.RemoveCartItem(ctx, item.ID, user)
	require.NoError(t, err)

	_, err = r.RemoveCartItem(ctx, item.ID, user)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func seedSession(t *testing.T, r *GormRepo, user uuid.UUID) *models.CheckoutSession {
	t.Helper()
	s := &models.CheckoutSession{
		UserID:            user,
		IdempotencyKey:    uuid.NewString(),
		ShippingAddressID: uuid.New(),
		Lines:             "[]",
		Total:             decimal.RequireFromString("25.00"),
		Currency:          "USD",
		Status:            models.CheckoutPending,
		ProcessorOrderID:  "PO-" + uuid.NewString()[:8],
	}
	require.NoError(t, r.CreateCheckoutSession(context.Background(), s))
	return s
}

func orderFor(sess *models.CheckoutSession, p *models.Product, qty int) *models.Order {
	line := p.Price.Mul(decimal.NewFromInt(int64(qty)))
	return &models.Order{
		UserID:             sess.UserID,
		Email:              "buyer@example.com",
		ShippingAddressID:  sess.ShippingAddressID,
		Total:              line,
		Currency:           sess.Currency,
		Status:             models.OrderStatusPaid,
		IdempotencyKey:     sess.IdempotencyKey,
		ProcessorOrderID:   sess.ProcessorOrderID,
		ProcessorCaptureID: "CAP-" + sess.ID.String()[:8],
		Items: []models.OrderItem{{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  qty,
			UnitPrice: p.Price,
			LineTotal: line,
		}},
	}
}

func TestMaterializeOrder(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()
	p := seedProduct(t, r, 4)

	item, err := r.AddToCart(ctx, user, p.ID, 2)
	require.NoError(t, err)
	sess := seedSession(t, r, user)

	order := orderFor(sess, p, 2)
	require.NoError(t, r.MaterializeOrder(ctx, sess.ID, []uuid.UUID{item.ID}, order))

	stored, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Stock)

	n, err := r.CountCart(ctx, user)
	require.NoError(t, err)
	assert.Zero(t, n)

	got, err := r.GetCheckoutSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutCompleted, got.Status)
	require.NotNil(t, got.OrderID)
	assert.Equal(t, order.ID, *got.OrderID)

	again := orderFor(sess, p, 1)
	again.IdempotencyKey = uuid.NewString()
	again.ProcessorCaptureID = "CAP-other"
	err = r.MaterializeOrder(ctx, sess.ID, nil, again)
	assert.ErrorIs(t, err, ErrAlreadyDone)
}

func TestMaterializeOrder_RollsBackWhenStockIsShort(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()
	p := seedProduct(t, r, 1)

	item, err := r.AddToCart(ctx, user, p.ID, 1)
	require.NoError(t, err)
	sess := seedSession(t, r, user)

	err = r.MaterializeOrder(ctx, sess.ID, []uuid.UUID{item.ID}, orderFor(sess, p, 3))
	assert.ErrorIs(t, err, ErrOutOfStock)

	orders, err := r.ListUserOrders(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, orders)

	stored, err := r.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock)

	n, err := r.CountCart(ctx, user)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := r.GetCheckoutSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CheckoutPending, got.Status)
}

func TestCreatePaymentRecord_Idempotent(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()

	rec := &models.PaymentRecord{
		ProcessorOrderID: "PO-1",
		PayerName:        "Ada",
		PayerEmail:       "ada@example.com",
		Amount:           decimal.RequireFromString("10.00"),
		Currency:         "USD",
		Status:           "COMPLETED",
	}
	first, created, err := r.CreatePaymentRecord(ctx, rec)
	require.NoError(t, err)
	assert.True(t, created)

	dup := *rec
	dup.ID = uuid.Nil
	dup.PayerName = "Someone else"
	second, created, err := r.CreatePaymentRecord(ctx, &dup)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Ada", second.PayerName)
}

func TestApplyWebhookEvent(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()
	p := seedProduct(t, r, 2)
	sess := seedSession(t, r, user)
	order := orderFor(sess, p, 1)
	require.NoError(t, r.MaterializeOrder(ctx, sess.ID, nil, order))

	ev := &models.WebhookEvent{EventID: "WH-1", EventType: "PAYMENT.CAPTURE.REFUNDED"}
	out, err := r.ApplyWebhookEvent(ctx, ev, order.ProcessorCaptureID, models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.True(t, out.Changed)
	require.NotNil(t, out.Order)
	assert.Equal(t, models.OrderStatusRefunded, out.Order.Status)

	out, err = r.ApplyWebhookEvent(ctx, &models.WebhookEvent{EventID: "WH-1", EventType: ev.EventType}, order.ProcessorCaptureID, models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
	assert.Nil(t, out.Order)

	out, err = r.ApplyWebhookEvent(ctx, &models.WebhookEvent{EventID: "WH-2", EventType: ev.EventType}, "CAP-unknown", models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.False(t, out.Duplicate)
	assert.Nil(t, out.Order)
}

func TestApplyWebhookEvent_RejectedTransitionIsRecorded(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := seedProduct(t, r, 2)
	sess := seedSession(t, r, uuid.New())
	order := orderFor(sess, p, 1)
	order.Status = models.OrderStatusFailed
	require.NoError(t, r.MaterializeOrder(ctx, sess.ID, nil, order))

	ev := models.WebhookEvent{EventID: "WH-9", EventType: "PAYMENT.CAPTURE.REFUNDED"}
	first := ev
	out, err := r.ApplyWebhookEvent(ctx, &first, order.ProcessorCaptureID, models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.ErrorIs(t, out.Rejected, models.ErrInvalidTransition)
	assert.False(t, out.Changed)

	got, err := r.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusFailed, got.Status)

	again := ev
	out, err = r.ApplyWebhookEvent(ctx, &again, order.ProcessorCaptureID, models.OrderStatusRefunded)
	require.NoError(t, err)
	assert.True(t, out.Duplicate)
}

func TestRoles(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	user := uuid.New()

	require.NoError(t, r.GrantRole(ctx, &models.UserRole{UserID: user, Role: "admin"}))
	require.NoError(t, r.GrantRole(ctx, &models.UserRole{UserID: user, Role: "admin"}))

	roles, err := r.ListRoles(ctx, user)
	require.NoError(t, err)
	assert.Equal(t, []string{"admin"}, roles)

	roles, err = r.ListRoles(ctx, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, roles)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/Skotchmaster/storefront/internal/apperr"
	"github.com/Skotchmaster/storefront/internal/events"
	"github.com/Skotchmaster/storefront/internal/identity"
	"github.com/Skotchmaster/storefront/internal/lock"
	"github.com/Skotchmaster/storefront/internal/logging"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/models"
	"github.com/Skotchmaster/storefront/internal/payment"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/transport"
)

const (
	PromptAddShippingAddress = "add_shipping_address"
	PromptEmptyCart          = "empty_cart"

	CodeShippingAddressRequired = "SHIPPING_ADDRESS_REQUIRED"
)

const processorName = "payment processor"

type CheckoutService struct {
	Repo      *repo.GormRepo
	Addresses *AddressService
	Processor payment.Processor
	Locker    lock.Locker
	Events    events.Publisher
	Currency  string
	LockTTL   time.Duration
}

type Readiness struct {
	HasAddress bool   `json:"has_address"`
	ItemCount  int64  `json:"item_count"`
	Ready      bool   `json:"ready"`
	Prompt     string `json:"prompt,omitempty"`
}

type CaptureResult struct {
	Order    *models.Order
	Replayed bool
}

// Readiness tells the storefront whether the payment step may be shown.
// A missing shipping address is reported before an empty cart.
func (s *CheckoutService) Readiness(ctx context.Context, userID uuid.UUID) (*Readiness, error) {
	if userID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to check out")
	}
	has, err := s.Addresses.HasAddress(ctx, userID)
	if err != nil {
		return nil, err
	}
	n, err := s.Repo.CountCart(ctx, userID)
	if err != nil {
		return nil, translate("checkout.readiness", "cart", err)
	}

	r := &Readiness{HasAddress: has, ItemCount: n}
	switch {
	case !has:
		r.Prompt = PromptAddShippingAddress
	case n == 0:
		r.Prompt = PromptEmptyCart
	default:
		r.Ready = true
	}
	return r, nil
}

// quote prices the selected lines of the caller's cart from current product
// prices and stock.
func (s *CheckoutService) quote(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) ([]models.CheckoutLine, decimal.Decimal, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	uniq := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			uniq = append(uniq, id)
		}
	}

	items, err := s.Repo.GetCartItems(ctx, userID, uniq)
	if err != nil {
		return nil, decimal.Zero, translate("checkout.quote", "cart", err)
	}
	if len(items) != len(uniq) {
		return nil, decimal.Zero, apperr.Invalid("selection contains items that are not in your cart")
	}

	total := decimal.Zero
	lines := make([]models.CheckoutLine, 0, len(items))
	for _, it := range items {
		if it.Product.Stock < it.Quantity {
			return nil, decimal.Zero, apperr.Conflict(fmt.Sprintf("only %d of %q left in stock", it.Product.Stock, it.Product.Name))
		}
		l := models.CheckoutLine{
			CartItemID: it.ID,
			ProductID:  it.ProductID,
			Name:       it.Product.Name,
			Quantity:   it.Quantity,
			UnitPrice:  it.Product.Price,
		}
		lines = append(lines, l)
		total = total.Add(l.Total())
	}
	if !total.IsPositive() {
		return nil, decimal.Zero, apperr.Invalid("order total must be greater than zero")
	}
	return lines, total.Round(2), nil
}

// Begin prices the selection and opens a processor order for it. Calling
// Begin again with the same idempotency key returns the original session.
func (s *CheckoutService) Begin(ctx context.Context, p identity.Principal, req transport.BeginCheckoutRequest) (*models.CheckoutSession, bool, error) {
	if p.ID == uuid.Nil {
		return nil, false, apperr.Unauthenticated("sign in to check out")
	}
	has, err := s.Addresses.HasAddress(ctx, p.ID)
	if err != nil {
		return nil, false, err
	}
	if !has {
		return nil, false, apperr.InvalidCode(CodeShippingAddressRequired, "add a shipping address before checking out")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, false, err
	}

	if existing, err := s.Repo.GetCheckoutSessionByKey(ctx, req.IdempotencyKey); err == nil {
		if existing.UserID != p.ID {
			return nil, false, apperr.Conflict("idempotency key already used")
		}
		return existing, true, nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, translate("checkout.begin", "checkout", err)
	}

	addrID, err := s.shippingAddress(ctx, p.ID, req.AddressID)
	if err != nil {
		return nil, false, err
	}

	lines, total, err := s.quote(ctx, p.ID, req.CartItemIDs)
	if err != nil {
		return nil, false, err
	}

	po, err := s.Processor.CreateOrder(ctx, payment.CreateOrderRequest{
		IdempotencyKey: req.IdempotencyKey,
		ReferenceID:    p.ID.String(),
		Amount:         total,
		Currency:       s.Currency,
	})
	if err != nil {
		return nil, false, apperr.External(processorName, err)
	}

	sess := &models.CheckoutSession{
		UserID:            p.ID,
		Email:             p.Email,
		IdempotencyKey:    req.IdempotencyKey,
		ShippingAddressID: addrID,
		Total:             total,
		Currency:          s.Currency,
		Status:            models.CheckoutPending,
		ProcessorOrderID:  po.ID,
		ApprovalURL:       po.ApprovalURL,
	}
	if err := sess.SetLines(lines); err != nil {
		return nil, false, err
	}
	if err := s.Repo.CreateCheckoutSession(ctx, sess); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, gerr := s.Repo.GetCheckoutSessionByKey(ctx, req.IdempotencyKey)
			if gerr == nil && existing.UserID == p.ID {
				return existing, true, nil
			}
		}
		return nil, false, translate("checkout.begin", "checkout", err)
	}
	return sess, false, nil
}

func (s *CheckoutService) shippingAddress(ctx context.Context, userID uuid.UUID, id *uuid.UUID) (uuid.UUID, error) {
	if id != nil {
		addr, err := s.Addresses.Get(ctx, *id, userID)
		if err != nil {
			return uuid.Nil, err
		}
		return addr.ID, nil
	}
	addrs, err := s.Addresses.List(ctx, userID)
	if err != nil {
		return uuid.Nil, err
	}
	if len(addrs) == 0 {
		return uuid.Nil, apperr.InvalidCode(CodeShippingAddressRequired, "add a shipping address before checking out")
	}
	return addrs[0].ID, nil
}

// Capture finalizes an approved checkout: it re-prices the cart, captures
// the processor order, verifies the capture and materializes the order.
func (s *CheckoutService) Capture(ctx context.Context, p identity.Principal, sessionID uuid.UUID, req transport.CaptureRequest) (*CaptureResult, error) {
	if p.ID == uuid.Nil {
		return nil, apperr.Unauthenticated("sign in to check out")
	}
	if err := transport.Validate(&req); err != nil {
		return nil, err
	}
	ctx = logging.With(ctx, "checkout_id", sessionID)
	l := logging.FromContext(ctx)

	release, err := s.Locker.Acquire(ctx, "checkout:"+sessionID.String(), s.LockTTL)
	switch {
	case errors.Is(err, lock.ErrHeld):
		return nil, apperr.Conflict("this checkout is already being processed")
	case err != nil:
		l.Warn("checkout_lock_unavailable", "error", err)
	default:
		defer func() {
			if rerr := release(context.WithoutCancel(ctx)); rerr != nil {
				l.Warn("checkout_lock_release_failed", "error", rerr)
			}
		}()
	}

	sess, err := s.Repo.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, translate("checkout.capture", "checkout", err)
	}
	if sess.UserID != p.ID {
		return nil, apperr.Forbidden("checkout belongs to another user")
	}
	if sess.ProcessorOrderID != req.ProcessorOrderID {
		return nil, apperr.Invalid("processor order does not match this checkout")
	}

	switch sess.Status {
	case models.CheckoutCompleted:
		metrics.CheckoutOutcomes.WithLabelValues("replayed").Inc()
		return s.completedResult(ctx, sess)
	case models.CheckoutReconcileRequired:
		if err := s.reconcile(ctx, sess); err != nil {
			return nil, apperr.IntegrityRisk("payment received, your order is being finalized", err)
		}
		return s.completedResult(ctx, sess)
	}

	ids, err := sess.CartItemIDs()
	if err != nil {
		return nil, err
	}
	lines, total, err := s.quote(ctx, p.ID, ids)
	if err != nil {
		return nil, err
	}
	if !total.Equal(sess.Total) {
		metrics.CheckoutOutcomes.WithLabelValues("price_changed").Inc()
		if uerr := s.Repo.UpdateCheckoutSession(ctx, sess, map[string]any{
			"status":         models.CheckoutFailed,
			"failure_reason": "cart total changed",
		}); uerr != nil {
			l.Error("checkout_mark_failed_failed", "error", uerr)
		}
		return nil, apperr.Conflict(fmt.Sprintf("cart total changed from %s to %s, review your cart and check out again",
			sess.Total.StringFixed(2), total.StringFixed(2)))
	}
	if err := sess.SetLines(lines); err != nil {
		return nil, err
	}
	if err := s.Repo.UpdateCheckoutSession(ctx, sess, map[string]any{
		"lines":    sess.Lines,
		"attempts": sess.Attempts + 1,
	}); err != nil {
		return nil, translate("checkout.capture", "checkout", err)
	}

	capture, err := s.Processor.CaptureOrder(ctx, sess.ProcessorOrderID, sess.IdempotencyKey)
	if err != nil {
		metrics.CheckoutOutcomes.WithLabelValues("processor_failed").Inc()
		l.Warn("checkout_capture_failed", "processor_order_id", sess.ProcessorOrderID, "error", err)
		if uerr := s.Repo.UpdateCheckoutSession(context.WithoutCancel(ctx), sess, map[string]any{
			"status":         models.CheckoutFailed,
			"failure_reason": truncate(err.Error(), 500),
		}); uerr != nil {
			l.Error("checkout_mark_failed_failed", "error", uerr)
		}
		return nil, apperr.External(processorName, err)
	}

	if err := capture.Verify(sess.Total, sess.Currency); err != nil {
		return nil, s.needsReconcile(ctx, sess, capture.CaptureID, err)
	}

	order, err := s.materialize(ctx, sess, capture.CaptureID, capture.PayerEmail)
	if err != nil {
		if errors.Is(err, repo.ErrAlreadyDone) {
			fresh, gerr := s.Repo.GetCheckoutSession(ctx, sess.ID)
			if gerr != nil {
				return nil, translate("checkout.capture", "checkout", gerr)
			}
			return s.completedResult(ctx, fresh)
		}
		return nil, s.needsReconcile(ctx, sess, capture.CaptureID, err)
	}

	metrics.CheckoutOutcomes.WithLabelValues("completed").Inc()
	events.Emit(ctx, s.Events, events.TopicOrders, events.OrderPaid, order.ID.String(), map[string]any{
		"order_id":           order.ID,
		"user_id":            order.UserID,
		"total":              order.Total,
		"currency":           order.Currency,
		"processor_order_id": order.ProcessorOrderID,
	})
	return &CaptureResult{Order: order}, nil
}

func (s *CheckoutService) completedResult(ctx context.Context, sess *models.CheckoutSession) (*CaptureResult, error) {
	if sess.OrderID == nil {
		return nil, fmt.Errorf("checkout %s completed without an order", sess.ID)
	}
	o, err := s.Repo.GetOrder(ctx, *sess.OrderID)
	if err != nil {
		return nil, translate("checkout.completed", "order", err)
	}
	return &CaptureResult{Order: o, Replayed: true}, nil
}

// materialize writes the order for a verified capture. Order, items, stock,
// cart and session change in one transaction.
func (s *CheckoutService) materialize(ctx context.Context, sess *models.CheckoutSession, captureID, payerEmail string) (*models.Order, error) {
	lines, err := sess.DecodeLines()
	if err != nil {
		return nil, err
	}

	email := sess.Email
	if email == "" {
		email = payerEmail
	}
	order := &models.Order{
		UserID:             sess.UserID,
		Email:              email,
		ShippingAddressID:  sess.ShippingAddressID,
		Total:              sess.Total,
		Currency:           sess.Currency,
		Status:             models.OrderStatusCreated,
		IdempotencyKey:     sess.IdempotencyKey,
		ProcessorOrderID:   sess.ProcessorOrderID,
		ProcessorCaptureID: captureID,
	}
	if err := order.Transition(models.OrderStatusPaid); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		order.Items = append(order.Items, models.OrderItem{
			ProductID: line.ProductID,
			Name:      line.Name,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			LineTotal: line.Total(),
		})
		ids = append(ids, line.CartItemID)
	}

	if err := s.Repo.MaterializeOrder(ctx, sess.ID, ids, order); err != nil {
		return nil, err
	}
	return order, nil
}

// needsReconcile records that money was captured without an order. The
// session keeps the capture id so the reconciler can finish the work.
func (s *CheckoutService) needsReconcile(ctx context.Context, sess *models.CheckoutSession, captureID string, cause error) error {
	ctx = context.WithoutCancel(ctx)
	l := logging.FromContext(ctx)
	metrics.CheckoutOutcomes.WithLabelValues("reconcile_required").Inc()

	l.Error("data_integrity_risk",
		"user_id", sess.UserID,
		"idempotency_key", sess.IdempotencyKey,
		"processor_order_id", sess.ProcessorOrderID,
		"processor_capture_id", captureID,
		"total", sess.Total.StringFixed(2),
		"error", cause,
	)

	if err := s.Repo.UpdateCheckoutSession(ctx, sess, map[string]any{
		"status":               models.CheckoutReconcileRequired,
		"processor_capture_id": captureID,
		"failure_reason":       truncate(cause.Error(), 500),
	}); err != nil {
		l.Error("data_integrity_risk_unrecorded", "processor_capture_id", captureID, "error", err)
	}

	events.Emit(ctx, s.Events, events.TopicPayments, events.ReconciliationRequired, sess.ID.String(), map[string]any{
		"checkout_id":          sess.ID,
		"user_id":              sess.UserID,
		"processor_order_id":   sess.ProcessorOrderID,
		"processor_capture_id": captureID,
		"total":                sess.Total,
		"currency":             sess.Currency,
		"reason":               cause.Error(),
	})
	return apperr.IntegrityRisk("payment received, your order is being finalized", cause)
}

// reconcile re-verifies a captured session with the processor and retries
// materializing its order.
func (s *CheckoutService) reconcile(ctx context.Context, sess *models.CheckoutSession) error {
	po, err := s.Processor.GetOrder(ctx, sess.ProcessorOrderID)
	if err != nil {
		return fmt.Errorf("fetch processor order: %w", err)
	}
	c := po.Captured()
	if c == nil {
		return fmt.Errorf("%w: processor order %s has no capture", payment.ErrNotVerified, po.ID)
	}
	if sess.ProcessorCaptureID != "" && c.CaptureID != sess.ProcessorCaptureID {
		err := fmt.Errorf("%w: processor reports capture %s, checkout recorded %s", payment.ErrNotVerified, c.CaptureID, sess.ProcessorCaptureID)
		s.recordAttempt(ctx, sess, err)
		return err
	}
	if err := c.Verify(sess.Total, sess.Currency); err != nil {
		s.recordAttempt(ctx, sess, err)
		return err
	}

	order, err := s.materialize(ctx, sess, c.CaptureID, po.PayerEmail)
	if err != nil && !errors.Is(err, repo.ErrAlreadyDone) {
		s.recordAttempt(ctx, sess, err)
		return err
	}

	fresh, gerr := s.Repo.GetCheckoutSession(ctx, sess.ID)
	if gerr != nil {
		return gerr
	}
	*sess = *fresh
	if order != nil {
		events.Emit(ctx, s.Events, events.TopicOrders, events.OrderPaid, order.ID.String(), map[string]any{
			"order_id":   order.ID,
			"user_id":    order.UserID,
			"total":      order.Total,
			"currency":   order.Currency,
			"reconciled": true,
		})
	}
	return nil
}

// recordAttempt notes a failed reconcile attempt on the session. The session
// keeps its status.
func (s *CheckoutService) recordAttempt(ctx context.Context, sess *models.CheckoutSession, cause error) {
	if err := s.Repo.UpdateCheckoutSession(context.WithoutCancel(ctx), sess, map[string]any{
		"attempts":       sess.Attempts + 1,
		"failure_reason": truncate(cause.Error(), 500),
	}); err != nil {
		logging.FromContext(ctx).Error("checkout_record_attempt_failed", "error", err)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

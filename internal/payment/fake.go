package payment

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Fake is an in-memory Processor for local development and tests. Orders
// are approved on creation; hooks let tests inject failures.
type Fake struct {
	mu       sync.Mutex
	seq      int
	orders   map[string]*Order
	requests map[string]string

	// FailCreate and FailCapture, when set, are returned by the next calls.
	FailCreate  error
	FailCapture error
	// CaptureAmount and CaptureStatus, when set, override what the first
	// capture of an order records.
	CaptureAmount *decimal.Decimal
	CaptureStatus string
	// WebhookSecret must equal the PAYPAL-TRANSMISSION-SIG header for
	// VerifyWebhook to accept a notification. NewFake makes a random one.
	WebhookSecret string

	CaptureCalls int
}

func NewFake() *Fake {
	return &Fake{orders: map[string]*Order{}, requests: map[string]string{}, WebhookSecret: uuid.NewString()}
}

func (f *Fake) CreateOrder(ctx context.Context, r CreateOrderRequest) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.FailCreate != nil {
		return nil, f.FailCreate
	}
	if id, ok := f.requests[r.IdempotencyKey]; ok && r.IdempotencyKey != "" {
		o := *f.orders[id]
		return &o, nil
	}

	f.seq++
	id := fmt.Sprintf("FAKE-%06d", f.seq)
	o := &Order{
		ID:          id,
		Status:      StatusApproved,
		Amount:      r.Amount,
		Currency:    r.Currency,
		ApprovalURL: "https://example.test/checkoutnow?token=" + id,
		PayerEmail:  "payer@example.test",
		PayerName:   "Test Payer",
	}
	f.orders[id] = o
	f.requests[r.IdempotencyKey] = id
	out := *o
	return &out, nil
}

func (f *Fake) CaptureOrder(ctx context.Context, orderID, idempotencyKey string) (*Capture, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CaptureCalls++
	if f.FailCapture != nil {
		return nil, f.FailCapture
	}
	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("fake processor: order %s not found", orderID)
	}
	if o.CaptureID == "" {
		o.Status = StatusCompleted
		o.CaptureID = "CAP-" + orderID
		o.CaptureStatus = StatusCompleted
		if f.CaptureStatus != "" {
			o.CaptureStatus = f.CaptureStatus
		}
		o.CaptureAmount = o.Amount
		if f.CaptureAmount != nil {
			o.CaptureAmount = *f.CaptureAmount
		}
		o.CaptureCurrency = o.Currency
	}
	return o.Captured(), nil
}

// SettleCapture marks a pending capture completed, the way the processor
// later clears a held payment.
func (f *Fake) SettleCapture(orderID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if o, ok := f.orders[orderID]; ok && o.CaptureID != "" {
		o.CaptureStatus = StatusCompleted
	}
}

func (f *Fake) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	o, ok := f.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("fake processor: order %s not found", orderID)
	}
	out := *o
	return &out, nil
}

func (f *Fake) VerifyWebhook(ctx context.Context, h http.Header, body []byte) (*WebhookEvent, error) {
	if h.Get("PAYPAL-TRANSMISSION-SIG") != f.WebhookSecret {
		return nil, fmt.Errorf("%w: bad signature", ErrNotVerified)
	}
	return DecodeWebhookEvent(body)
}

// Package payment integrates the external payment processor. The storefront
// creates a processor order for a server-computed amount, lets the payer
// approve it in the processor's hosted UI, and then captures it server side.
package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"

	"github.com/shopspring/decimal"
)

const (
	StatusCreated   = "CREATED"
	StatusApproved  = "APPROVED"
	StatusCompleted = "COMPLETED"
	StatusPending   = "PENDING"
	StatusVoided    = "VOIDED"
	StatusDeclined  = "DECLINED"

	EventCaptureRefunded  = "PAYMENT.CAPTURE.REFUNDED"
	EventCaptureCompleted = "PAYMENT.CAPTURE.COMPLETED"
)

var ErrNotVerified = errors.New("processor did not verify the payment")

type CreateOrderRequest struct {
	IdempotencyKey string
	ReferenceID    string
	Amount         decimal.Decimal
	Currency       string
}

type Order struct {
	ID          string
	Status      string
	Amount      decimal.Decimal
	Currency    string
	ApprovalURL string
	PayerEmail  string
	PayerName   string

	// Capture fields describe the order's first capture, as the processor
	// reports it. They are empty until the order is captured.
	CaptureID       string
	CaptureStatus   string
	CaptureAmount   decimal.Decimal
	CaptureCurrency string
}

// Captured returns the order's capture, or nil when it has none. Payments are
// verified against it, never against the order-level status or amount.
func (o *Order) Captured() *Capture {
	if o.CaptureID == "" {
		return nil
	}
	return &Capture{
		OrderID:    o.ID,
		CaptureID:  o.CaptureID,
		Status:     o.CaptureStatus,
		Amount:     o.CaptureAmount,
		Currency:   o.CaptureCurrency,
		PayerEmail: o.PayerEmail,
	}
}

type Capture struct {
	OrderID    string
	CaptureID  string
	Status     string
	Amount     decimal.Decimal
	Currency   string
	PayerEmail string
}

// WebhookEvent is the part of a processor notification the storefront acts on.
type WebhookEvent struct {
	ID           string
	EventType    string
	ResourceID   string
	ResourceType string
	// CaptureID is the capture the event concerns. For refunds the resource
	// is the refund, and the capture is found through its "up" link.
	CaptureID string
}

func DecodeWebhookEvent(body []byte) (*WebhookEvent, error) {
	var raw struct {
		ID           string `json:"id"`
		EventType    string `json:"event_type"`
		ResourceType string `json:"resource_type"`
		Resource     struct {
			ID    string `json:"id"`
			Links []struct {
				Href string `json:"href"`
				Rel  string `json:"rel"`
			} `json:"links"`
		} `json:"resource"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if raw.ID == "" || raw.EventType == "" {
		return nil, errors.New("webhook event without id or type")
	}

	ev := &WebhookEvent{
		ID:           raw.ID,
		EventType:    raw.EventType,
		ResourceID:   raw.Resource.ID,
		ResourceType: raw.ResourceType,
	}
	switch raw.ResourceType {
	case "capture":
		ev.CaptureID = raw.Resource.ID
	case "refund":
		for _, l := range raw.Resource.Links {
			if l.Rel == "up" {
				ev.CaptureID = path.Base(l.Href)
			}
		}
	}
	return ev, nil
}

type Processor interface {
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error)
	// CaptureOrder finalizes an approved order. Capturing an already
	// captured order returns the existing capture.
	CaptureOrder(ctx context.Context, orderID, idempotencyKey string) (*Capture, error)
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	// VerifyWebhook checks the notification signature with the processor
	// and returns the decoded event.
	VerifyWebhook(ctx context.Context, headers http.Header, body []byte) (*WebhookEvent, error)
}

// Verify checks that a capture is complete for exactly amount in currency.
func (c *Capture) Verify(amount decimal.Decimal, currency string) error {
	if c.Status != StatusCompleted {
		return fmt.Errorf("%w: capture status %s", ErrNotVerified, c.Status)
	}
	if !c.Amount.Equal(amount) || c.Currency != currency {
		return fmt.Errorf("%w: captured %s %s, expected %s %s", ErrNotVerified,
			c.Amount.StringFixed(2), c.Currency, amount.StringFixed(2), currency)
	}
	return nil
}

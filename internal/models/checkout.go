package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CheckoutStatus string

const (
	CheckoutPending           CheckoutStatus = "pending"
	CheckoutCompleted         CheckoutStatus = "completed"
	CheckoutFailed            CheckoutStatus = "failed"
	CheckoutReconcileRequired CheckoutStatus = "reconcile_required"
)

// CheckoutSession pins one checkout attempt to its idempotency key. It holds
// the selection and the server-computed total the processor order was created for.
type CheckoutSession struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"         json:"id"`
	UserID             uuid.UUID       `gorm:"type:uuid;index;not null"     json:"user_id"`
	Email              string          `gorm:"not null"                     json:"-"`
	IdempotencyKey     string          `gorm:"size:64;uniqueIndex;not null" json:"idempotency_key"`
	ShippingAddressID  uuid.UUID       `gorm:"type:uuid;not null"           json:"shipping_address_id"`
	Lines              string          `gorm:"type:text;not null"           json:"-"`
	Total              decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"total"`
	Currency           string          `gorm:"size:3;not null"              json:"currency"`
	Status             CheckoutStatus  `gorm:"size:24;index;not null"       json:"status"`
	ProcessorOrderID   string          `gorm:"size:64;index"                json:"processor_order_id"`
	ProcessorCaptureID string          `gorm:"size:64"                      json:"-"`
	ApprovalURL        string          `                                    json:"approval_url,omitempty"`
	FailureReason      string          `                                    json:"failure_reason,omitempty"`
	OrderID            *uuid.UUID      `gorm:"type:uuid"                    json:"order_id,omitempty"`
	Attempts           int             `gorm:"not null;default:0"           json:"-"`
	CreatedAt          time.Time       `                                    json:"created_at"`
	UpdatedAt          time.Time       `                                    json:"updated_at"`
}

func (s *CheckoutSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// CheckoutLine is one priced cart line of a checkout.
type CheckoutLine struct {
	CartItemID uuid.UUID       `json:"cart_item_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Quantity   int             `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
}

func (l CheckoutLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (s *CheckoutSession) SetLines(lines []CheckoutLine) error {
	b, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("encode checkout lines: %w", err)
	}
	s.Lines = string(b)
	return nil
}

func (s *CheckoutSession) DecodeLines() ([]CheckoutLine, error) {
	var lines []CheckoutLine
	if err := json.Unmarshal([]byte(s.Lines), &lines); err != nil {
		return nil, fmt.Errorf("decode checkout lines: %w", err)
	}
	return lines, nil
}

func (s *CheckoutSession) CartItemIDs() ([]uuid.UUID, error) {
	lines, err := s.DecodeLines()
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.CartItemID
	}
	return ids, nil
}

// PaymentRecord is the bookkeeping row written after the payer approved a
// processor order.
type PaymentRecord struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"         json:"id"`
	ProcessorOrderID string          `gorm:"size:64;uniqueIndex;not null" json:"order_id"`
	PayerName        string          `gorm:"not null"                     json:"name"`
	PayerEmail       string          `gorm:"not null"                     json:"email"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null"  json:"amount"`
	Currency         string          `gorm:"size:3;not null"              json:"currency"`
	Status           string          `gorm:"size:24;not null"             json:"status"`
	CreatedAt        time.Time       `                                    json:"created_at"`
}

func (p *PaymentRecord) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type WebhookEvent struct {
	EventID     string    `gorm:"primaryKey;size:128" json:"event_id"`
	EventType   string    `gorm:"size:64;index"       json:"event_type"`
	ProcessedAt time.Time `                           json:"processed_at"`
}

// All lists every table the storefront migrates.
func All() []any {
	return []any{
		&ShippingAddress{},
		&Product{},
		&CartItem{},
		&UserRole{},
		&Order{},
		&OrderItem{},
		&CheckoutSession{},
		&PaymentRecord{},
		&WebhookEvent{},
	}
}

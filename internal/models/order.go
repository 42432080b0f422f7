package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusFulfilled OrderStatus = "fulfilled"
	OrderStatusRefunded  OrderStatus = "refunded"
	OrderStatusFailed    OrderStatus = "failed"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPaid, OrderStatusFailed},
	OrderStatusPaid:    {OrderStatusFulfilled, OrderStatusRefunded},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusCreated, OrderStatusPaid, OrderStatusFulfilled, OrderStatusRefunded, OrderStatusFailed:
		return true
	}
	return false
}

func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFulfilled || s == OrderStatusRefunded || s == OrderStatusFailed
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var ErrInvalidTransition = errors.New("invalid order status transition")

type Order struct {
	ID                 uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID             uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Email              string          `gorm:"not null"                 json:"email,omitempty"`
	ShippingAddressID  uuid.UUID       `gorm:"type:uuid"                json:"shipping_address_id"`
	Total              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total"`
	Currency           string          `gorm:"size:3;not null"          json:"currency"`
	Status             OrderStatus     `gorm:"size:16;index;not null"   json:"status"`
	IdempotencyKey     string          `gorm:"size:64;uniqueIndex;not null" json:"-"`
	ProcessorOrderID   string          `gorm:"size:64;index"            json:"processor_order_id"`
	ProcessorCaptureID string          `gorm:"size:64;uniqueIndex"      json:"-"`
	Items              []OrderItem     `gorm:"constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt          time.Time       `gorm:"index"                    json:"created_at"`
	UpdatedAt          time.Time       `                                json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Transition moves the order to next, refusing anything the lifecycle
// created -> paid -> fulfilled|refunded (or created -> failed) does not allow.
func (o *Order) Transition(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, next)
	}
	o.Status = next
	return nil
}

type OrderItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	OrderID   uuid.UUID       `gorm:"type:uuid;index;not null" json:"order_id"`
	ProductID uuid.UUID       `gorm:"type:uuid;index;not null" json:"product_id"`
	Name      string          `gorm:"not null"                 json:"name"`
	Quantity  int             `gorm:"not null;check:quantity > 0" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`
	LineTotal decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"line_total"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

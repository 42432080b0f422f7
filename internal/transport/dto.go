package transport

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type AddressRequest struct {
	FullName string  `json:"full_name" validate:"required,max=200"`
	Address1 string  `json:"address1"  validate:"required,max=200"`
	Address2 *string `json:"address2"  validate:"omitempty,max=200"`
	City     string  `json:"city"      validate:"required,max=100"`
	State    string  `json:"state"     validate:"required,max=100"`
	ZipCode  string  `json:"zip_code"  validate:"required,max=20"`
	Country  string  `json:"country"   validate:"required,max=100"`
	Phone    *string `json:"phone"     validate:"omitempty,max=32"`
}

type CreateProductRequest struct {
	Name        string          `json:"name"         validate:"required,max=200"`
	Description string          `json:"description"  validate:"required,max=5000"`
	Price       decimal.Decimal `json:"price"        validate:"gte=0"`
	Stock       int             `json:"stock"        validate:"gte=0"`
	Category    string          `json:"category"     validate:"required,max=100"`
	ImageURL    *string         `json:"image_url"    validate:"omitempty,url"`
	DownloadURL *string         `json:"download_url" validate:"omitempty,url"`
}

type PatchProductRequest struct {
	Name        *string          `json:"name"         validate:"omitempty,min=1,max=200"`
	Description *string          `json:"description"  validate:"omitempty,min=1,max=5000"`
	Price       *decimal.Decimal `json:"price"        validate:"omitempty,gte=0"`
	Stock       *int             `json:"stock"        validate:"omitempty,gte=0"`
	Category    *string          `json:"category"     validate:"omitempty,min=1,max=100"`
	ImageURL    *string          `json:"image_url"    validate:"omitempty,url"`
	DownloadURL *string          `json:"download_url" validate:"omitempty,url"`
}

type AddCartItemRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  *int      `json:"quantity"   validate:"omitempty,gte=1"`
}

type UpdateCartItemRequest struct {
	Quantity int  `json:"quantity" validate:"gte=1"`
	Version  *int `json:"version"  validate:"omitempty,gte=1"`
}

type BeginCheckoutRequest struct {
	CartItemIDs    []uuid.UUID `json:"cart_item_ids"   validate:"required,min=1,max=100"`
	AddressID      *uuid.UUID  `json:"address_id"`
	IdempotencyKey string      `json:"idempotency_key" validate:"required,min=8,max=64"`
}

type CaptureRequest struct {
	ProcessorOrderID string `json:"processor_order_id" validate:"required,max=64"`
}

// PaymentRequest is posted by the storefront after the payer approved the
// processor order in the hosted widget.
type PaymentRequest struct {
	Name    string          `json:"name"    validate:"required,max=200"`
	Email   string          `json:"email"   validate:"required,email"`
	Amount  decimal.Decimal `json:"amount"  validate:"gt=0"`
	OrderID string          `json:"orderID" validate:"required,max=64"`
}

type UpdateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid fulfilled refunded failed"`
}

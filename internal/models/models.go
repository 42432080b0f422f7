package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type ShippingAddress struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"user_id"`
	FullName  string    `gorm:"not null"                 json:"full_name"`
	Address1  string    `gorm:"not null"                 json:"address1"`
	Address2  *string   `                                json:"address2,omitempty"`
	City      string    `gorm:"not null"                 json:"city"`
	State     string    `gorm:"not null"                 json:"state"`
	ZipCode   string    `gorm:"not null"                 json:"zip_code"`
	Country   string    `gorm:"not null"                 json:"country"`
	Phone     *string   `                                json:"phone,omitempty"`
	CreatedAt time.Time `                                json:"created_at"`
	UpdatedAt time.Time `gorm:"index"                    json:"updated_at"`
}

func (a *ShippingAddress) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey"     json:"id"`
	UserID      uuid.UUID       `gorm:"type:uuid;index;not null" json:"user_id"`
	Name        string          `gorm:"not null"                 json:"name"`
	Description string          `gorm:"not null"                 json:"description"`
	Price       decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0;check:stock >= 0" json:"stock"`
	Category    string          `gorm:"index;not null"           json:"category"`
	ImageURL    *string         `                                json:"image_url,omitempty"`
	DownloadURL *string         `                                json:"download_url,omitempty"`
	CreatedAt   time.Time       `                                json:"created_at"`
	UpdatedAt   time.Time       `                                json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type CartItem struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"                                json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product;not null" json:"user_id"`
	ProductID uuid.UUID `gorm:"type:uuid;uniqueIndex:idx_cart_user_product;not null" json:"product_id"`
	Quantity  int       `gorm:"not null;default:1;check:quantity > 0"               json:"quantity"`
	Version   int       `gorm:"not null;default:1"                                   json:"version"`
	Product   Product   `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"     json:"product"`
	CreatedAt time.Time `                                                            json:"created_at"`
	UpdatedAt time.Time `                                                            json:"updated_at"`
}

func (c *CartItem) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

func (CartItem) TableName() string {
	return "cart_items"
}

type UserRole struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey" json:"user_id"`
	Role      string    `gorm:"primaryKey"           json:"role"`
	Email     string    `                            json:"email"`
	CreatedAt time.Time `                            json:"created_at"`
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductVariant is a size, flavour or other option of a product with its own price and
// stock. Orders are placed against the product itself.
type ProductVariant struct {
	ID        uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	ProductID uuid.UUID       `json:"product_id" gorm:"type:char(36);not null;index"`
	Name      string          `json:"name" gorm:"size:255;not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	Stock     int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	Active    bool            `json:"active" gorm:"not null"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (v *ProductVariant) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}

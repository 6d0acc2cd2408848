package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stocked item sold by a provider shop. Stock never goes negative and is
// only decremented by order creation.
type Product struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	ProviderID  uuid.UUID       `json:"provider_id" gorm:"type:char(36);not null;index"`
	CategoryID  *uuid.UUID      `json:"category_id,omitempty" gorm:"type:char(36);index"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	Stock       int             `json:"stock" gorm:"not null;default:0;check:stock >= 0"`
	Active      bool            `json:"active" gorm:"not null;index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	Provider Provider         `json:"-" gorm:"foreignKey:ProviderID"`
	Variants []ProductVariant `json:"variants,omitempty" gorm:"foreignKey:ProductID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

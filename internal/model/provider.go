package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProviderStatus represents the listing status of a provider.
type ProviderStatus string

const (
	ProviderStatusActive   ProviderStatus = "active"
	ProviderStatusInactive ProviderStatus = "inactive"
	ProviderStatusPending  ProviderStatus = "pending"
)

// Valid reports whether s is a known provider status.
func (s ProviderStatus) Valid() bool {
	switch s {
	case ProviderStatusActive, ProviderStatusInactive, ProviderStatusPending:
		return true
	}
	return false
}

// Provider is a business or individual offering services or selling products.
type Provider struct {
	ID         uuid.UUID        `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     *uuid.UUID       `json:"user_id,omitempty" gorm:"type:char(36);index"`
	CategoryID *uuid.UUID       `json:"category_id,omitempty" gorm:"type:char(36);index"`
	Name       string           `json:"name" gorm:"size:255;not null"`
	Bio        string           `json:"bio,omitempty" gorm:"type:text"`
	Address    string           `json:"address,omitempty" gorm:"type:text"`
	Phone      string           `json:"phone,omitempty" gorm:"size:32"`
	Email      string           `json:"email,omitempty" gorm:"size:255"`
	HourlyRate *decimal.Decimal `json:"hourly_rate,omitempty" gorm:"type:decimal(12,2)"`
	Status     ProviderStatus   `json:"status" gorm:"type:varchar(16);not null;default:'active';index"`
	Rating     float64          `json:"rating" gorm:"not null;default:0"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	DeletedAt  gorm.DeletedAt   `json:"-" gorm:"index"`

	// Relations
	Category *Category `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
}

// BeforeCreate sets UUID before creating the record.
func (p *Provider) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = ProviderStatusActive
	}
	return nil
}

// OwnedBy reports whether the provider is operated by userID.
func (p *Provider) OwnedBy(userID uuid.UUID) bool {
	return p.UserID != nil && *p.UserID == userID
}

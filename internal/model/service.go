package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is a bookable offering of a provider. Services referenced by bookings are
// disabled through Active rather than removed.
type Service struct {
	ID              uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	ProviderID      uuid.UUID       `json:"provider_id" gorm:"type:char(36);not null;index"`
	CategoryID      *uuid.UUID      `json:"category_id,omitempty" gorm:"type:char(36);index"`
	Name            string          `json:"name" gorm:"size:255;not null"`
	Description     string          `json:"description,omitempty" gorm:"type:text"`
	Price           decimal.Decimal `json:"price" gorm:"type:decimal(12,2);not null;default:0"`
	DurationMinutes int             `json:"duration_minutes" gorm:"not null;default:0"`
	Active          bool            `json:"active" gorm:"not null;index"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	DeletedAt       gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	Provider Provider `json:"-" gorm:"foreignKey:ProviderID"`
}

// BeforeCreate sets UUID before creating the record.
func (s *Service) BeforeCreate(tx *gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BookingStatus represents the lifecycle state of a booking.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a scheduled service engagement between a user and a provider.
type Booking struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	UserID      uuid.UUID       `json:"user_id" gorm:"type:char(36);not null;index"`
	ProviderID  uuid.UUID       `json:"provider_id" gorm:"type:char(36);not null;index"`
	ServiceID   *uuid.UUID      `json:"service_id,omitempty" gorm:"type:char(36);index"`
	ScheduledAt time.Time       `json:"scheduled_at" gorm:"not null;index"`
	Description string          `json:"description,omitempty" gorm:"type:text"`
	TotalAmount decimal.Decimal `json:"total_amount" gorm:"type:decimal(12,2);not null;default:0"`
	Status      BookingStatus   `json:"status" gorm:"type:varchar(16);not null;default:'pending';index"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `json:"-" gorm:"index"`

	// Relations
	User     User     `json:"-" gorm:"foreignKey:UserID"`
	Provider Provider `json:"-" gorm:"foreignKey:ProviderID"`
	Service  *Service `json:"-" gorm:"foreignKey:ServiceID"`
}

// BeforeCreate sets UUID before creating the record.
func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BookingView is a booking joined with the names a listing needs.
type BookingView struct {
	Booking
	UserName     string `json:"user_name"`
	UserEmail    string `json:"user_email"`
	ServiceName  string `json:"service_name,omitempty"`
	ProviderName string `json:"provider_name"`
}

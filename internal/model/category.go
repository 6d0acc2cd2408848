package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CategoryKind separates bookable service trades from shop categories.
type CategoryKind string

const (
	CategoryKindService CategoryKind = "service"
	CategoryKindShop    CategoryKind = "shop"
)

// Category groups providers, services and products (plumbing, grocery, medicine...).
type Category struct {
	ID        uuid.UUID    `json:"id" gorm:"type:char(36);primaryKey"`
	Name      string       `json:"name" gorm:"size:128;not null;uniqueIndex"`
	Slug      string       `json:"slug" gorm:"size:128;not null;uniqueIndex"`
	Kind      CategoryKind `json:"kind" gorm:"type:varchar(16);not null;default:'service'"`
	CreatedAt time.Time    `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (c *Category) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

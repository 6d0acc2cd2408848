package repository

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	defaultPageLimit = 20
	maxPageLimit     = 100
)

// Page selects a window of a listing. Zero values mean the first page with the default size.
type Page struct {
	Page  int
	Limit int
}

// Normalize clamps page and limit to sane bounds.
func (p Page) Normalize() Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = defaultPageLimit
	}
	if p.Limit > maxPageLimit {
		p.Limit = maxPageLimit
	}
	return p
}

// Offset is the number of rows skipped before the page.
func (p Page) Offset() int {
	p = p.Normalize()
	return (p.Page - 1) * p.Limit
}

func (p Page) apply(db *gorm.DB) *gorm.DB {
	p = p.Normalize()
	return db.Offset(p.Offset()).Limit(p.Limit)
}

// Scope restricts which owned rows a query can see. The zero Scope sees every row and is
// only built for admins. When both fields are set a row matching either is visible.
type Scope struct {
	// OwnerID limits rows to those whose user_id is the caller.
	OwnerID *uuid.UUID
	// ProviderUserID limits rows to those booked with providers operated by the caller.
	ProviderUserID *uuid.UUID
}

// OwnedBy returns a scope visible only to userID.
func OwnedBy(userID uuid.UUID) Scope {
	return Scope{OwnerID: &userID}
}

// OperatedBy returns a scope covering rows of providers operated by userID.
func OperatedBy(userID uuid.UUID) Scope {
	return Scope{ProviderUserID: &userID}
}

// Participant returns a scope covering rows userID owns or operates as a provider.
func Participant(userID uuid.UUID) Scope {
	return Scope{OwnerID: &userID, ProviderUserID: &userID}
}

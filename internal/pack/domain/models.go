// Package domain defines the purchasable packs recruiters subscribe to.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	PackBasic    = "basic"
	PackStandard = "standard"
	PackPremium  = "premium"
)

// Pack is a purchasable tier. Packs are reference data: the core only reads them.
type Pack struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	Name           string          `json:"name" gorm:"type:varchar(32);not null;uniqueIndex"`
	Price          decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	ProfileLimit   int             `json:"profile_limit" gorm:"not null"`
	VisibilityDays int             `json:"visibility_days" gorm:"not null"`
	Description    string          `json:"description,omitempty" gorm:"type:text"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"not null"`
}

func (Pack) TableName() string { return "packs" }

func IsKnownName(name string) bool {
	switch name {
	case PackBasic, PackStandard, PackPremium:
		return true
	default:
		return false
	}
}

func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func (p Pack) Validate() error {
	if !IsKnownName(p.Name) {
		return ErrInvalidPackName
	}
	if !p.Price.IsPositive() {
		return ErrInvalidPrice
	}
	if p.Price.Exponent() < -2 {
		return ErrInvalidPrice
	}
	if p.ProfileLimit <= 0 {
		return ErrInvalidProfileLimit
	}
	if p.VisibilityDays <= 0 {
		return ErrInvalidVisibilityDays
	}
	return nil
}

// Window returns the visibility window opened by a purchase at start.
func (p Pack) Window(start time.Time) (time.Time, time.Time) {
	start = start.UTC()
	return start, start.AddDate(0, 0, p.VisibilityDays)
}

// Package domain contains the time-boxed grants that recruiters buy.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type SubscriptionStatus string

const (
	SubscriptionStatusActive    SubscriptionStatus = "ACTIVE"
	SubscriptionStatusExpired   SubscriptionStatus = "EXPIRED"
	SubscriptionStatusCancelled SubscriptionStatus = "CANCELLED"
)

// Subscription grants a recruiter the quota of one pack between StartAt and
// EndAt. A recruiter may hold many rows over time.
type Subscription struct {
	ID          snowflake.ID       `json:"id" gorm:"primaryKey"`
	RecruiterID int64              `json:"recruiter_id" gorm:"not null;index"`
	PackID      snowflake.ID       `json:"pack_id" gorm:"not null"`
	StartAt     time.Time          `json:"start_at" gorm:"not null"`
	EndAt       time.Time          `json:"end_at" gorm:"not null"`
	Status      SubscriptionStatus `json:"status" gorm:"type:text;not null"`
	CreatedAt   time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt   time.Time          `json:"updated_at" gorm:"not null"`
}

func (Subscription) TableName() string { return "subscriptions" }

// EffectiveStatus derives expiry at read time. Stored ACTIVE rows whose
// window has closed report EXPIRED; nothing is written back.
func (s Subscription) EffectiveStatus(now time.Time) SubscriptionStatus {
	if s.Status == SubscriptionStatusActive && !now.Before(s.EndAt) {
		return SubscriptionStatusExpired
	}
	return s.Status
}

// IsActiveAt reports whether the subscription grants quota at now.
func (s Subscription) IsActiveAt(now time.Time) bool {
	return s.Status == SubscriptionStatusActive && now.Before(s.EndAt)
}

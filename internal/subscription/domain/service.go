package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type CreateSubscriptionRequest struct {
	// ID is optional. Callers that must reference the row before it exists
	// pre-generate it.
	ID          snowflake.ID
	RecruiterID int64
	PackID      snowflake.ID
	StartAt     time.Time
	EndAt       time.Time
}

// SubscriptionView is a subscription with its status evaluated at read time.
type SubscriptionView struct {
	Subscription
	EffectiveStatus SubscriptionStatus `json:"effective_status"`
}

type Service interface {
	// GetActiveSubscription returns nil, nil when the recruiter has no
	// subscription granting quota right now.
	GetActiveSubscription(ctx context.Context, recruiterID int64) (*Subscription, error)
	// CreateSubscription runs on tx when non-nil.
	CreateSubscription(ctx context.Context, tx *gorm.DB, req CreateSubscriptionRequest) (Subscription, error)
	GetByID(ctx context.Context, id snowflake.ID) (SubscriptionView, error)
	ListByRecruiter(ctx context.Context, recruiterID int64) ([]SubscriptionView, error)
	CountActive(ctx context.Context) (int64, error)
	WithTx(tx *gorm.DB) Service
}

var (
	ErrInvalidRecruiter     = errors.New("invalid_recruiter")
	ErrInvalidSubscription  = errors.New("invalid_subscription")
	ErrInvalidPeriod        = errors.New("invalid_period")
	ErrInvalidPack          = errors.New("invalid_pack")
	ErrSubscriptionNotFound = errors.New("subscription_not_found")
)

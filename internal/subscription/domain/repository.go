package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, subscription *Subscription) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Subscription, error)
	// FindActive returns the ACTIVE row with end_at after now, preferring the
	// latest end_at, then the latest created_at, then the highest id.
	FindActive(ctx context.Context, db *gorm.DB, recruiterID int64, now time.Time) (*Subscription, error)
	ListByRecruiter(ctx context.Context, db *gorm.DB, recruiterID int64) ([]Subscription, error)
	CountActive(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Exists(ctx context.Context, db *gorm.DB, recruiterID, candidateID int64) (bool, error)
	CountByRecruiter(ctx context.Context, db *gorm.DB, recruiterID int64) (int64, error)
	Find(ctx context.Context, db *gorm.DB, recruiterID, candidateID int64) (*Entry, error)
	// InsertIfAbsent reports false when (recruiter_id, candidate_id) already exists.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, entry *Entry) (bool, error)
	// ListByRecruiter returns entries newest first, strictly before beforeID when non-zero.
	ListByRecruiter(ctx context.Context, db *gorm.DB, recruiterID int64, beforeID snowflake.ID, limit int) ([]Entry, error)
}

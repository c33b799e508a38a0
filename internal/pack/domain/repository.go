package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Pack, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Pack, error)
	List(ctx context.Context, db *gorm.DB) ([]Pack, error)
	// InsertIfAbsent inserts p unless a pack with the same name exists.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, p *Pack) (bool, error)
}

package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Service interface {
	GetPack(ctx context.Context, id snowflake.ID) (Pack, error)
	GetByName(ctx context.Context, name string) (Pack, error)
	List(ctx context.Context) ([]Pack, error)
	// WithTx binds the service to tx so lookups reuse its connection.
	WithTx(tx *gorm.DB) Service
}

var (
	ErrPackNotFound          = errors.New("pack_not_found")
	ErrInvalidPackID         = errors.New("invalid_pack_id")
	ErrInvalidPackName       = errors.New("invalid_pack_name")
	ErrInvalidPrice          = errors.New("invalid_price")
	ErrInvalidProfileLimit   = errors.New("invalid_profile_limit")
	ErrInvalidVisibilityDays = errors.New("invalid_visibility_days")
)

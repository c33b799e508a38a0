package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() packdomain.Repository {
	return &repo{}
}

const packColumns = `id, name, price, profile_limit, visibility_days, description, created_at, updated_at`

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*packdomain.Pack, error) {
	var item packdomain.Pack
	err := db.WithContext(ctx).Raw(
		`SELECT `+packColumns+`
		 FROM packs
		 WHERE id = ?
		 LIMIT 1`,
		id,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) FindByName(ctx context.Context, db *gorm.DB, name string) (*packdomain.Pack, error) {
	var item packdomain.Pack
	err := db.WithContext(ctx).Raw(
		`SELECT `+packColumns+`
		 FROM packs
		 WHERE name = ?
		 LIMIT 1`,
		name,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB) ([]packdomain.Pack, error) {
	var items []packdomain.Pack
	err := db.WithContext(ctx).Raw(
		`SELECT ` + packColumns + `
		 FROM packs
		 ORDER BY price ASC, id ASC`,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, p *packdomain.Pack) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(p)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

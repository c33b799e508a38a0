package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() ledgerdomain.Repository {
	return &repo{}
}

func (r *repo) Exists(ctx context.Context, db *gorm.DB, recruiterID, candidateID int64) (bool, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM credit_ledger_entries
		 WHERE recruiter_id = ? AND candidate_id = ?`,
		recruiterID,
		candidateID,
	).Scan(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repo) CountByRecruiter(ctx context.Context, db *gorm.DB, recruiterID int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Raw(
		`SELECT COUNT(1)
		 FROM credit_ledger_entries
		 WHERE recruiter_id = ?`,
		recruiterID,
	).Scan(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, recruiterID, candidateID int64) (*ledgerdomain.Entry, error) {
	var item ledgerdomain.Entry
	err := db.WithContext(ctx).Raw(
		`SELECT id, recruiter_id, candidate_id, subscription_id, unlocked_at
		 FROM credit_ledger_entries
		 WHERE recruiter_id = ? AND candidate_id = ?
		 LIMIT 1`,
		recruiterID,
		candidateID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, entry *ledgerdomain.Entry) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "recruiter_id"}, {Name: "candidate_id"}},
			DoNothing: true,
		}).
		Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListByRecruiter(ctx context.Context, db *gorm.DB, recruiterID int64, beforeID snowflake.ID, limit int) ([]ledgerdomain.Entry, error) {
	query := db.WithContext(ctx).
		Table("credit_ledger_entries").
		Select("id, recruiter_id, candidate_id, subscription_id, unlocked_at").
		Where("recruiter_id = ?", recruiterID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}

	var items []ledgerdomain.Entry
	if err := query.Order("id DESC").Limit(limit).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

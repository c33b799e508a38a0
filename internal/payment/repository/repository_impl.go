package repository

import (
	"context"

	"github.com/smallbiznis/hireledger/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, db *gorm.DB, payment *domain.Payment) (bool, error) {
	res := db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(payment)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*domain.Payment, error) {
	var item domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, recruiter_id, pack_id, subscription_id, amount, currency,
			payment_method, transaction_id, status, provider, paid_at, created_at
		 FROM payments
		 WHERE transaction_id = ?
		 LIMIT 1`,
		transactionID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) ListByRecruiter(ctx context.Context, db *gorm.DB, recruiterID int64) ([]domain.Payment, error) {
	var items []domain.Payment
	err := db.WithContext(ctx).Raw(
		`SELECT id, recruiter_id, pack_id, subscription_id, amount, currency,
			payment_method, transaction_id, status, provider, paid_at, created_at
		 FROM payments
		 WHERE recruiter_id = ?
		 ORDER BY paid_at DESC, id DESC`,
		recruiterID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

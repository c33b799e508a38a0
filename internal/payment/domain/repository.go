package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertIfAbsent reports false when the transaction id is already recorded.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	FindByTransactionID(ctx context.Context, db *gorm.DB, transactionID string) (*Payment, error)
	ListByRecruiter(ctx context.Context, db *gorm.DB, recruiterID int64) ([]Payment, error)
}

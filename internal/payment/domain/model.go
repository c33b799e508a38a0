// Package domain covers confirmed payments and their reconciliation into
// subscriptions.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const PaymentStatusCompleted PaymentStatus = "COMPLETED"

// Payment is the ledger row of one confirmed external transaction. Rows are
// never updated; transaction_id is unique.
type Payment struct {
	ID             snowflake.ID    `json:"id" gorm:"primaryKey"`
	RecruiterID    int64           `json:"recruiter_id" gorm:"not null;index"`
	PackID         snowflake.ID    `json:"pack_id" gorm:"not null"`
	SubscriptionID snowflake.ID    `json:"subscription_id" gorm:"not null"`
	Amount         decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Currency       string          `json:"currency" gorm:"type:text;not null"`
	PaymentMethod  string          `json:"payment_method" gorm:"type:text;not null"`
	TransactionID  string          `json:"transaction_id" gorm:"type:varchar(255);not null;uniqueIndex:ux_payments_transaction_id"`
	Status         PaymentStatus   `json:"status" gorm:"type:text;not null"`
	Provider       *string         `json:"provider,omitempty" gorm:"type:text"`
	PaidAt         time.Time       `json:"paid_at" gorm:"not null"`
	CreatedAt      time.Time       `json:"created_at" gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

const (
	DefaultCurrency      = "USD"
	DefaultPaymentMethod = "unknown"
)

// ReconcileRequest is a trusted payment confirmation.
type ReconcileRequest struct {
	TransactionID string          `json:"transaction_id"`
	RecruiterID   int64           `json:"recruiter_id"`
	PackID        snowflake.ID    `json:"pack_id"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	PaymentMethod string          `json:"payment_method"`
	PaidAt        time.Time       `json:"paid_at"`
	// Provider and DeliveryID are set when the confirmation came from a webhook.
	Provider   string `json:"provider,omitempty"`
	DeliveryID string `json:"delivery_id,omitempty"`
}

func (r ReconcileRequest) Validate() error {
	if strings.TrimSpace(r.TransactionID) == "" {
		return ErrInvalidTransactionID
	}
	if r.RecruiterID <= 0 {
		return ErrInvalidRecruiter
	}
	if r.PackID <= 0 {
		return ErrInvalidPack
	}
	if !r.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if r.PaidAt.IsZero() {
		return ErrInvalidPaidAt
	}
	return nil
}

type ReconcileOutcome string

const (
	OutcomeReconciled        ReconcileOutcome = "RECONCILED"
	OutcomeAlreadyReconciled ReconcileOutcome = "ALREADY_RECONCILED"
)

type ReconcileResult struct {
	Outcome        ReconcileOutcome `json:"outcome"`
	SubscriptionID snowflake.ID     `json:"subscription_id"`
	PaymentID      snowflake.ID     `json:"payment_id"`
	PackID         snowflake.ID     `json:"pack_id"`
	StartAt        time.Time        `json:"start_at,omitempty"`
	EndAt          time.Time        `json:"end_at,omitempty"`
}

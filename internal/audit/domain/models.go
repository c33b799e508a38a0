package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
)

type ActorType string

const (
	ActorTypeSystem    ActorType = "system"
	ActorTypeRecruiter ActorType = "recruiter"
	ActorTypeInternal  ActorType = "internal"
	ActorTypeProvider  ActorType = "payment_provider"
)

const (
	ActionUnlockGranted         = "entitlement.unlock_granted"
	ActionPaymentReconciled     = "payment.reconciled"
	ActionPaymentDuplicate      = "payment.duplicate_confirmation"
	ActionPaymentAmountMismatch = "payment.amount_mismatch"
	ActionWebhookRejected       = "payment.webhook_rejected"
	TargetTypeCreditLedgerEntry = "credit_ledger_entry"
	TargetTypePayment           = "payment"
	TargetTypePaymentWebhook    = "payment_webhook"
)

// AuditLog is an append-only record of a state change.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	ActorType  string            `json:"actor_type" gorm:"type:text;not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:text"`
	Action     string            `json:"action" gorm:"type:text;not null"`
	TargetType string            `json:"target_type" gorm:"type:text;not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:text"`
	Metadata   datatypes.JSONMap `json:"metadata" gorm:"not null"`
	RequestID  *string           `json:"request_id,omitempty" gorm:"type:text"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null"`
}

func (AuditLog) TableName() string { return "audit_logs" }

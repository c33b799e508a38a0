package domain

import (
	"context"
	"errors"
	"net/http"
)

type Reconciler interface {
	// ReconcilePayment turns a confirmed payment into a subscription exactly
	// once per transaction id.
	ReconcilePayment(ctx context.Context, req ReconcileRequest) (ReconcileResult, error)
	ListPayments(ctx context.Context, recruiterID int64) ([]Payment, error)
}

// WebhookResult describes what happened to one provider delivery.
type WebhookResult struct {
	DeliveryID string           `json:"delivery_id"`
	EventType  string           `json:"event_type"`
	Ignored    bool             `json:"ignored"`
	Reconcile  *ReconcileResult `json:"reconcile,omitempty"`
}

type WebhookService interface {
	IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (WebhookResult, error)
}

var (
	ErrInvalidTransactionID = errors.New("invalid_transaction_id")
	ErrInvalidRecruiter     = errors.New("invalid_recruiter")
	ErrInvalidPack          = errors.New("invalid_pack")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInvalidPaidAt        = errors.New("invalid_paid_at")
	ErrPaymentNotFound      = errors.New("payment_not_found")

	ErrInvalidProvider  = errors.New("invalid_provider")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrInvalidConfig    = errors.New("invalid_provider_config")
	ErrInvalidSignature = errors.New("invalid_signature")
	ErrInvalidPayload   = errors.New("invalid_payload")
	ErrInvalidEvent     = errors.New("invalid_event")
	ErrEventIgnored     = errors.New("event_ignored")
)

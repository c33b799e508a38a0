package domain

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type AdapterConfig struct {
	Provider      string
	WebhookSecret string
	// SignatureMaxAge bounds the age of a signed delivery. Zero disables the check.
	SignatureMaxAge time.Duration
	Now             func() time.Time
}

type AdapterFactory interface {
	Provider() string
	NewAdapter(cfg AdapterConfig) (PaymentAdapter, error)
}

type PaymentAdapter interface {
	Verify(ctx context.Context, payload []byte, headers http.Header) error
	// Parse returns ErrEventIgnored for event types that do not confirm a payment.
	Parse(ctx context.Context, payload []byte) (*PaymentEvent, error)
}

// PaymentEvent is a provider confirmation in canonical form. Exactly one of
// PackID and PackName is expected to be set.
type PaymentEvent struct {
	Provider      string
	EventID       string
	EventType     string
	TransactionID string
	RecruiterID   int64
	PackID        snowflake.ID
	PackName      string
	Amount        decimal.Decimal
	Currency      string
	PaymentMethod string
	PaidAt        time.Time
}

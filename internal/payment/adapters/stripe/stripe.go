package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
)

const (
	eventCheckoutCompleted             = "checkout.session.completed"
	eventCheckoutAsyncPaymentSucceeded = "checkout.session.async_payment_succeeded"
)

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Provider() string {
	return "stripe"
}

func (f *Factory) NewAdapter(cfg paymentdomain.AdapterConfig) (paymentdomain.PaymentAdapter, error) {
	secret := strings.TrimSpace(cfg.WebhookSecret)
	if secret == "" {
		return nil, paymentdomain.ErrInvalidConfig
	}
	now := cfg.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}

	return &Adapter{
		webhookSecret: secret,
		maxAge:        cfg.SignatureMaxAge,
		now:           now,
	}, nil
}

type Adapter struct {
	webhookSecret string
	maxAge        time.Duration
	now           func() time.Time
}

// Verify checks the Stripe-Signature header against the raw body.
func (a *Adapter) Verify(ctx context.Context, payload []byte, headers http.Header) error {
	sig, ok := parseSignatureHeader(headers.Get("Stripe-Signature"))
	if !ok {
		return paymentdomain.ErrInvalidSignature
	}
	if a.maxAge > 0 && !sig.fresh(a.now(), a.maxAge) {
		return paymentdomain.ErrInvalidSignature
	}
	if !sig.matches(a.webhookSecret, payload) {
		return paymentdomain.ErrInvalidSignature
	}
	return nil
}

func (a *Adapter) Parse(ctx context.Context, payload []byte) (*paymentdomain.PaymentEvent, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(event.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}

	switch strings.TrimSpace(event.Type) {
	case eventCheckoutCompleted, eventCheckoutAsyncPaymentSucceeded:
		return a.parseCheckoutSession(event)
	default:
		return nil, paymentdomain.ErrEventIgnored
	}
}

type stripeEvent struct {
	ID      string          `json:"id"`
	Type    string          `json:"type"`
	Created int64           `json:"created"`
	Data    stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripeCheckoutSession struct {
	ID                 string         `json:"id"`
	AmountTotal        int64          `json:"amount_total"`
	Currency           string         `json:"currency"`
	PaymentStatus      string         `json:"payment_status"`
	PaymentMethodTypes []string       `json:"payment_method_types"`
	ClientReferenceID  string         `json:"client_reference_id"`
	Created            int64          `json:"created"`
	Metadata           map[string]any `json:"metadata"`
}

func (a *Adapter) parseCheckoutSession(event stripeEvent) (*paymentdomain.PaymentEvent, error) {
	var session stripeCheckoutSession
	if err := json.Unmarshal(event.Data.Object, &session); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if strings.TrimSpace(session.ID) == "" {
		return nil, paymentdomain.ErrInvalidEvent
	}
	// Delayed methods complete the session before the money arrives; the
	// async_payment_succeeded event follows.
	if session.PaymentStatus != "" && session.PaymentStatus != "paid" {
		return nil, paymentdomain.ErrEventIgnored
	}
	if session.AmountTotal <= 0 {
		return nil, paymentdomain.ErrInvalidEvent
	}

	recruiterRaw := readMetadataValue(session.Metadata, "recruiter_id")
	if recruiterRaw == "" {
		recruiterRaw = strings.TrimSpace(session.ClientReferenceID)
	}
	recruiterID, err := strconv.ParseInt(recruiterRaw, 10, 64)
	if err != nil || recruiterID <= 0 {
		return nil, paymentdomain.ErrInvalidRecruiter
	}

	parsed := &paymentdomain.PaymentEvent{
		Provider:      "stripe",
		EventID:       event.ID,
		EventType:     event.Type,
		TransactionID: session.ID,
		RecruiterID:   recruiterID,
		Amount:        decimal.New(session.AmountTotal, -2),
		Currency:      strings.ToUpper(strings.TrimSpace(session.Currency)),
		PaymentMethod: "card",
		PaidAt:        timestamp(event.Created, session.Created, a.now),
	}
	if len(session.PaymentMethodTypes) > 0 {
		parsed.PaymentMethod = strings.TrimSpace(session.PaymentMethodTypes[0])
	}

	if packRaw := readMetadataValue(session.Metadata, "pack_id"); packRaw != "" {
		packID, err := snowflake.ParseString(packRaw)
		if err != nil || packID <= 0 {
			return nil, paymentdomain.ErrInvalidPack
		}
		parsed.PackID = packID
		return parsed, nil
	}
	packName := slug.Make(readMetadataValue(session.Metadata, "pack"))
	if packName == "" {
		return nil, paymentdomain.ErrInvalidPack
	}
	parsed.PackName = packName
	return parsed, nil
}

func timestamp(primary int64, fallback int64, now func() time.Time) time.Time {
	value := primary
	if value == 0 {
		value = fallback
	}
	if value == 0 {
		return now().UTC()
	}
	return time.Unix(value, 0).UTC()
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		if cast == 0 {
			return ""
		}
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	}
	return ""
}

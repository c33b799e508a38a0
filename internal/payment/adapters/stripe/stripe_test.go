package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
)

func newTestAdapter(t *testing.T, now time.Time) *Adapter {
	t.Helper()
	adapter, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{
		Provider:        "stripe",
		WebhookSecret:   "whsec_test",
		SignatureMaxAge: 5 * time.Minute,
		Now:             func() time.Time { return now },
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}
	return adapter.(*Adapter)
}

func TestVerifySignature(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter := newTestAdapter(t, now)
	payload := []byte(`{"id":"evt_123","type":"checkout.session.completed","data":{"object":{}}}`)

	reqHeader := http.Header{}
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, now.Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); err != nil {
		t.Fatalf("expected valid signature, got error: %v", err)
	}

	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("wrong", payload, now.Unix()))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected invalid signature error, got %v", err)
	}

	stale := now.Add(-10 * time.Minute).Unix()
	reqHeader.Set("Stripe-Signature", buildStripeSignatureHeader("whsec_test", payload, stale))
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected stale signature to be rejected, got %v", err)
	}

	reqHeader.Del("Stripe-Signature")
	if err := adapter.Verify(context.Background(), payload, reqHeader); !errors.Is(err, paymentdomain.ErrInvalidSignature) {
		t.Fatalf("expected missing signature to be rejected, got %v", err)
	}
}

func TestNewAdapterRequiresSecret(t *testing.T) {
	if _, err := NewFactory().NewAdapter(paymentdomain.AdapterConfig{Provider: "stripe"}); !errors.Is(err, paymentdomain.ErrInvalidConfig) {
		t.Fatalf("expected invalid config, got %v", err)
	}
}

func TestParseCheckoutSession(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Unix()

	tests := []struct {
		name         string
		metadata     map[string]any
		status       string
		wantPackID   string
		wantPackName string
		wantErr      error
	}{{
		name:       "pack id",
		metadata:   map[string]any{"recruiter_id": "42", "pack_id": "1234567890"},
		status:     "paid",
		wantPackID: "1234567890",
	}, {
		name:         "pack name is normalized",
		metadata:     map[string]any{"recruiter_id": 42, "pack": "  Premium "},
		status:       "paid",
		wantPackName: "premium",
	}, {
		name:     "unpaid session is ignored",
		metadata: map[string]any{"recruiter_id": "42", "pack": "basic"},
		status:   "unpaid",
		wantErr:  paymentdomain.ErrEventIgnored,
	}, {
		name:     "missing recruiter",
		metadata: map[string]any{"pack": "basic"},
		status:   "paid",
		wantErr:  paymentdomain.ErrInvalidRecruiter,
	}, {
		name:     "missing pack",
		metadata: map[string]any{"recruiter_id": "42"},
		status:   "paid",
		wantErr:  paymentdomain.ErrInvalidPack,
	}}

	adapter := newTestAdapter(t, time.Now())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload, err := json.Marshal(map[string]any{
				"id":      "evt_1",
				"type":    "checkout.session.completed",
				"created": created,
				"data": map[string]any{
					"object": map[string]any{
						"id":                   "cs_test_1",
						"amount_total":         19900,
						"currency":             "usd",
						"payment_status":       tt.status,
						"payment_method_types": []string{"card"},
						"metadata":             tt.metadata,
					},
				},
			})
			if err != nil {
				t.Fatalf("marshal payload: %v", err)
			}

			event, err := adapter.Parse(context.Background(), payload)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parse event: %v", err)
			}
			if event.TransactionID != "cs_test_1" {
				t.Fatalf("expected transaction cs_test_1, got %s", event.TransactionID)
			}
			if event.RecruiterID != 42 {
				t.Fatalf("expected recruiter 42, got %d", event.RecruiterID)
			}
			if event.Amount.StringFixed(2) != "199.00" {
				t.Fatalf("expected amount 199.00, got %s", event.Amount.StringFixed(2))
			}
			if event.Currency != "USD" {
				t.Fatalf("expected currency USD, got %s", event.Currency)
			}
			if !event.PaidAt.Equal(time.Unix(created, 0)) {
				t.Fatalf("expected paid at %d, got %s", created, event.PaidAt)
			}
			if tt.wantPackID != "" && event.PackID.String() != tt.wantPackID {
				t.Fatalf("expected pack id %s, got %s", tt.wantPackID, event.PackID)
			}
			if event.PackName != tt.wantPackName {
				t.Fatalf("expected pack name %q, got %q", tt.wantPackName, event.PackName)
			}
		})
	}
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	adapter := newTestAdapter(t, time.Now())
	_, err := adapter.Parse(context.Background(), []byte(`{"id":"evt_2","type":"customer.created","data":{"object":{}}}`))
	if !errors.Is(err, paymentdomain.ErrEventIgnored) {
		t.Fatalf("expected ignored event, got %v", err)
	}
}

func buildStripeSignatureHeader(secret string, payload []byte, timestamp int64) string {
	signedPayload := fmt.Sprintf("%d.%s", timestamp, string(payload))
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(signedPayload))
	signature := hex.EncodeToString(mac.Sum(nil))
	return fmt.Sprintf("t=%d,v1=%s", timestamp, signature)
}

func TestVerifyAcceptsAnyRolledSecret(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	adapter := newTestAdapter(t, now)
	payload := []byte(`{"id":"evt_roll"}`)

	old := buildStripeSignatureHeader("whsec_old", payload, now.Unix())
	current := buildStripeSignatureHeader("whsec_test", payload, now.Unix())
	_, currentV1, _ := strings.Cut(current, ",")

	header := http.Header{}
	header.Set("Stripe-Signature", old+","+currentV1+",v0=ignored")
	if err := adapter.Verify(context.Background(), payload, header); err != nil {
		t.Fatalf("expected one matching v1 entry to pass, got %v", err)
	}
}

func TestParseSignatureHeader(t *testing.T) {
	cases := []struct {
		raw string
		ok  bool
	}{
		{"t=1700000000,v1=abcd", true},
		{" t = 1700000000 , v1 = abcd ", true},
		{"t=1700000000", false},
		{"v1=abcd", false},
		{"t=soon,v1=abcd", false},
		{"t=1700000000,v1=not-hex", false},
		{"", false},
	}
	for _, tc := range cases {
		if _, ok := parseSignatureHeader(tc.raw); ok != tc.ok {
			t.Fatalf("parseSignatureHeader(%q) ok = %v, want %v", tc.raw, ok, tc.ok)
		}
	}
}

package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	"github.com/smallbiznis/hireledger/internal/clock"
	"github.com/smallbiznis/hireledger/internal/config"
	obsmetrics "github.com/smallbiznis/hireledger/internal/observability/metrics"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	"github.com/smallbiznis/hireledger/internal/payment/adapters"
	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	resultReconciled = "reconciled"
	resultDuplicate  = "duplicate"
	resultIgnored    = "ignored"
	resultRejected   = "rejected"
	resultInvalid    = "invalid"
	resultFailed     = "failed"
)

type Params struct {
	fx.In

	Log        *zap.Logger
	Clock      clock.Clock
	Reconciler paymentdomain.Reconciler
	PackSvc    packdomain.Service
	Adapters   *adapters.Registry
	Cfg        config.Config
	AuditSvc   auditdomain.Service `optional:"true"`
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log        *zap.Logger
	clock      clock.Clock
	reconciler paymentdomain.Reconciler
	packsvc    packdomain.Service
	adapters   *adapters.Registry
	cfg        config.WebhookConfig
	auditsvc   auditdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.WebhookService {
	return &Service{
		log:        p.Log.Named("payment.webhook"),
		clock:      p.Clock,
		reconciler: p.Reconciler,
		packsvc:    p.PackSvc,
		adapters:   p.Adapters,
		cfg:        p.Cfg.Webhook,
		auditsvc:   p.AuditSvc,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, provider string, payload []byte, headers http.Header) (paymentdomain.WebhookResult, error) {
	provider = strings.ToLower(strings.TrimSpace(provider))
	if provider == "" {
		return paymentdomain.WebhookResult{}, paymentdomain.ErrInvalidProvider
	}
	if !s.adapters.ProviderExists(provider) {
		return paymentdomain.WebhookResult{}, paymentdomain.ErrProviderNotFound
	}

	result := paymentdomain.WebhookResult{DeliveryID: ulid.Make().String()}
	log := s.log.With(zap.String("provider", provider), zap.String("delivery_id", result.DeliveryID))

	if !json.Valid(payload) {
		s.obsMetrics.RecordPaymentWebhook(ctx, provider, "", resultInvalid)
		return result, paymentdomain.ErrInvalidPayload
	}

	adapter, err := s.adapters.NewAdapter(provider, paymentdomain.AdapterConfig{
		WebhookSecret:   s.secretFor(provider),
		SignatureMaxAge: s.cfg.SignatureMaxAge,
		Now:             s.clock.Now,
	})
	if err != nil {
		log.Error("payment adapter unavailable", zap.Error(err))
		return result, err
	}

	if err := adapter.Verify(ctx, payload, headers); err != nil {
		log.Warn("payment webhook rejected", zap.Error(err))
		s.obsMetrics.RecordPaymentWebhook(ctx, provider, "", resultRejected)
		s.auditRejected(ctx, provider, result.DeliveryID, headers, err)
		return result, err
	}

	event, err := adapter.Parse(ctx, payload)
	if err != nil {
		if errors.Is(err, paymentdomain.ErrEventIgnored) {
			log.Debug("payment webhook ignored")
			s.obsMetrics.RecordPaymentWebhook(ctx, provider, "", resultIgnored)
			result.Ignored = true
			return result, nil
		}
		log.Warn("payment webhook unparseable", zap.Error(err))
		s.obsMetrics.RecordPaymentWebhook(ctx, provider, "", resultInvalid)
		return result, err
	}
	result.EventType = event.EventType

	packID := event.PackID
	if packID == 0 {
		pack, err := s.packsvc.GetByName(ctx, event.PackName)
		if err != nil {
			log.Warn("payment webhook references unknown pack", zap.String("pack", event.PackName), zap.Error(err))
			s.obsMetrics.RecordPaymentWebhook(ctx, provider, event.EventType, resultInvalid)
			return result, err
		}
		packID = pack.ID
	}

	reconciled, err := s.reconciler.ReconcilePayment(ctx, paymentdomain.ReconcileRequest{
		TransactionID: event.TransactionID,
		RecruiterID:   event.RecruiterID,
		PackID:        packID,
		Amount:        event.Amount,
		Currency:      event.Currency,
		PaymentMethod: event.PaymentMethod,
		PaidAt:        event.PaidAt,
		Provider:      provider,
		DeliveryID:    result.DeliveryID,
	})
	if err != nil {
		s.obsMetrics.RecordPaymentWebhook(ctx, provider, event.EventType, resultFailed)
		return result, err
	}

	outcome := resultReconciled
	if reconciled.Outcome == paymentdomain.OutcomeAlreadyReconciled {
		outcome = resultDuplicate
	}
	s.obsMetrics.RecordPaymentWebhook(ctx, provider, event.EventType, outcome)
	log.Info("payment webhook processed",
		zap.String("event_id", event.EventID),
		zap.String("transaction_id", event.TransactionID),
		zap.String("outcome", string(reconciled.Outcome)),
	)
	result.Reconcile = &reconciled
	return result, nil
}

func (s *Service) secretFor(provider string) string {
	switch provider {
	case "stripe":
		return s.cfg.StripeSecret
	default:
		return ""
	}
}

func (s *Service) auditRejected(ctx context.Context, provider, deliveryID string, headers http.Header, cause error) {
	if s.auditsvc == nil {
		return
	}
	err := s.auditsvc.Record(ctx, auditdomain.Event{
		ActorType:  auditdomain.ActorTypeProvider,
		ActorID:    provider,
		Action:     auditdomain.ActionWebhookRejected,
		TargetType: auditdomain.TargetTypePaymentWebhook,
		TargetID:   deliveryID,
		Metadata: map[string]any{
			"reason":    cause.Error(),
			"signature": headers.Get("Stripe-Signature"),
		},
	})
	if err != nil {
		s.log.Warn("webhook audit failed", zap.String("delivery_id", deliveryID), zap.Error(err))
	}
}

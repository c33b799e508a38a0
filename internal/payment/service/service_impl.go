package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	"github.com/smallbiznis/hireledger/internal/clock"
	obsmetrics "github.com/smallbiznis/hireledger/internal/observability/metrics"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"github.com/smallbiznis/hireledger/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Repo            paymentdomain.Repository
	PackSvc         packdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	AuditSvc        auditdomain.Service `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	clock           clock.Clock
	repo            paymentdomain.Repository
	packsvc         packdomain.Service
	subscriptionsvc subscriptiondomain.Service
	auditsvc        auditdomain.Service
	obsMetrics      *obsmetrics.Metrics
}

func NewService(p Params) paymentdomain.Reconciler {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("payment.service"),
		genID:           p.GenID,
		clock:           p.Clock,
		repo:            p.Repo,
		packsvc:         p.PackSvc,
		subscriptionsvc: p.SubscriptionSvc,
		auditsvc:        p.AuditSvc,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Service) ReconcilePayment(ctx context.Context, req paymentdomain.ReconcileRequest) (paymentdomain.ReconcileResult, error) {
	req = normalizeRequest(req)
	if err := req.Validate(); err != nil {
		return paymentdomain.ReconcileResult{}, err
	}

	existing, err := s.repo.FindByTransactionID(ctx, s.db, req.TransactionID)
	if err != nil {
		return paymentdomain.ReconcileResult{}, err
	}
	if existing != nil {
		return s.alreadyReconciled(ctx, req, *existing)
	}

	pack, err := s.packsvc.GetPack(ctx, req.PackID)
	if err != nil {
		return paymentdomain.ReconcileResult{}, err
	}

	paidAt := req.PaidAt.UTC()
	startAt, endAt := pack.Window(paidAt)
	subscriptionID := s.genID.Generate()
	payment := paymentdomain.Payment{
		ID:             s.genID.Generate(),
		RecruiterID:    req.RecruiterID,
		PackID:         pack.ID,
		SubscriptionID: subscriptionID,
		Amount:         req.Amount,
		Currency:       req.Currency,
		PaymentMethod:  req.PaymentMethod,
		TransactionID:  req.TransactionID,
		Status:         paymentdomain.PaymentStatusCompleted,
		PaidAt:         paidAt,
		CreatedAt:      s.clock.Now(),
	}
	if req.Provider != "" {
		provider := req.Provider
		payment.Provider = &provider
	}

	inserted := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ok, err := s.repo.InsertIfAbsent(ctx, tx, &payment)
		if err != nil {
			return err
		}
		if !ok {
			return nil
		}
		if _, err := s.subscriptionsvc.CreateSubscription(ctx, tx, subscriptiondomain.CreateSubscriptionRequest{
			ID:          subscriptionID,
			RecruiterID: req.RecruiterID,
			PackID:      pack.ID,
			StartAt:     startAt,
			EndAt:       endAt,
		}); err != nil {
			return err
		}
		inserted = true
		return nil
	})
	if err != nil && !db.IsDuplicateKeyErr(err) {
		s.log.Error("payment reconciliation failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Int64("recruiter_id", req.RecruiterID),
			zap.Error(err),
		)
		return paymentdomain.ReconcileResult{}, err
	}
	if !inserted {
		// A concurrent reconciliation of the same transaction won the insert.
		stored, err := s.repo.FindByTransactionID(ctx, s.db, req.TransactionID)
		if err != nil {
			return paymentdomain.ReconcileResult{}, err
		}
		if stored == nil {
			return paymentdomain.ReconcileResult{}, fmt.Errorf("transaction %s: %w", req.TransactionID, paymentdomain.ErrPaymentNotFound)
		}
		return s.alreadyReconciled(ctx, req, *stored)
	}

	result := paymentdomain.ReconcileResult{
		Outcome:        paymentdomain.OutcomeReconciled,
		SubscriptionID: subscriptionID,
		PaymentID:      payment.ID,
		PackID:         pack.ID,
		StartAt:        startAt,
		EndAt:          endAt,
	}

	mismatch := !req.Amount.Equal(pack.Price)
	if mismatch {
		s.log.Warn("payment amount differs from pack price",
			zap.String("transaction_id", req.TransactionID),
			zap.String("pack", pack.Name),
			zap.String("amount", req.Amount.StringFixed(2)),
			zap.String("price", pack.Price.StringFixed(2)),
		)
	}
	s.log.Info("payment reconciled",
		zap.String("transaction_id", req.TransactionID),
		zap.Int64("recruiter_id", req.RecruiterID),
		zap.String("subscription_id", subscriptionID.String()),
		zap.String("pack", pack.Name),
		zap.Time("end_at", endAt),
	)
	s.obsMetrics.RecordReconciliation(ctx, string(result.Outcome), pack.Name)

	metadata := s.auditMetadata(req, pack)
	metadata["subscription_id"] = subscriptionID.String()
	metadata["start_at"] = startAt
	metadata["end_at"] = endAt
	metadata["amount_mismatch"] = mismatch
	s.audit(ctx, req, auditdomain.ActionPaymentReconciled, payment.ID, metadata)
	if mismatch {
		s.audit(ctx, req, auditdomain.ActionPaymentAmountMismatch, payment.ID, s.auditMetadata(req, pack))
	}
	return result, nil
}

func (s *Service) ListPayments(ctx context.Context, recruiterID int64) ([]paymentdomain.Payment, error) {
	if recruiterID <= 0 {
		return nil, paymentdomain.ErrInvalidRecruiter
	}
	return s.repo.ListByRecruiter(ctx, s.db, recruiterID)
}

// alreadyReconciled reports a replayed transaction. Metrics and audit rows
// carry the pack stored with the payment, not the one on the replay.
func (s *Service) alreadyReconciled(ctx context.Context, req paymentdomain.ReconcileRequest, payment paymentdomain.Payment) (paymentdomain.ReconcileResult, error) {
	pack, err := s.packsvc.GetPack(ctx, payment.PackID)
	if err != nil {
		s.log.Warn("stored pack lookup failed",
			zap.String("transaction_id", req.TransactionID),
			zap.Stringer("pack_id", payment.PackID),
			zap.Error(err),
		)
		pack = packdomain.Pack{ID: payment.PackID}
	}

	result := paymentdomain.ReconcileResult{
		Outcome:        paymentdomain.OutcomeAlreadyReconciled,
		SubscriptionID: payment.SubscriptionID,
		PaymentID:      payment.ID,
		PackID:         payment.PackID,
	}
	view, err := s.subscriptionsvc.GetByID(ctx, payment.SubscriptionID)
	switch {
	case err == nil:
		result.StartAt = view.StartAt
		result.EndAt = view.EndAt
	case errors.Is(err, subscriptiondomain.ErrSubscriptionNotFound):
	default:
		return paymentdomain.ReconcileResult{}, err
	}

	s.log.Info("payment already reconciled",
		zap.String("transaction_id", req.TransactionID),
		zap.String("subscription_id", payment.SubscriptionID.String()),
	)
	s.obsMetrics.RecordReconciliation(ctx, string(result.Outcome), pack.Name)

	metadata := s.auditMetadata(req, pack)
	metadata["subscription_id"] = payment.SubscriptionID.String()
	s.audit(ctx, req, auditdomain.ActionPaymentDuplicate, payment.ID, metadata)
	return result, nil
}

func (s *Service) auditMetadata(req paymentdomain.ReconcileRequest, pack packdomain.Pack) map[string]any {
	metadata := map[string]any{
		"transaction_id": req.TransactionID,
		"recruiter_id":   req.RecruiterID,
		"pack":           pack.Name,
		"amount":         req.Amount.StringFixed(2),
		"price":          pack.Price.StringFixed(2),
		"currency":       req.Currency,
	}
	if req.Provider != "" {
		metadata["provider"] = req.Provider
	}
	if req.DeliveryID != "" {
		metadata["delivery_id"] = req.DeliveryID
	}
	return metadata
}

func (s *Service) audit(ctx context.Context, req paymentdomain.ReconcileRequest, action string, paymentID snowflake.ID, metadata map[string]any) {
	if s.auditsvc == nil {
		return
	}

	event := auditdomain.Event{
		ActorType:  auditdomain.ActorTypeInternal,
		Action:     action,
		TargetType: auditdomain.TargetTypePayment,
		TargetID:   paymentID.String(),
		Metadata:   metadata,
	}
	if req.Provider != "" {
		event.ActorType = auditdomain.ActorTypeProvider
		event.ActorID = req.Provider
	}
	if err := s.auditsvc.Record(ctx, event); err != nil {
		s.log.Warn("payment audit failed",
			zap.String("action", action),
			zap.Stringer("payment_id", paymentID),
			zap.Error(err),
		)
	}
}

func normalizeRequest(req paymentdomain.ReconcileRequest) paymentdomain.ReconcileRequest {
	req.TransactionID = strings.TrimSpace(req.TransactionID)
	req.Currency = strings.ToUpper(strings.TrimSpace(req.Currency))
	if req.Currency == "" {
		req.Currency = paymentdomain.DefaultCurrency
	}
	req.PaymentMethod = strings.TrimSpace(req.PaymentMethod)
	if req.PaymentMethod == "" {
		req.PaymentMethod = paymentdomain.DefaultPaymentMethod
	}
	req.Provider = strings.ToLower(strings.TrimSpace(req.Provider))
	return req
}

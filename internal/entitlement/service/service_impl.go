package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	"github.com/smallbiznis/hireledger/internal/config"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	entitlementdomain "github.com/smallbiznis/hireledger/internal/entitlement/domain"
	"github.com/smallbiznis/hireledger/internal/lock"
	obsmetrics "github.com/smallbiznis/hireledger/internal/observability/metrics"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB              *gorm.DB
	Log             *zap.Logger
	LedgerSvc       ledgerdomain.Service
	SubscriptionSvc subscriptiondomain.Service
	PackSvc         packdomain.Service
	Locker          lock.Locker                     `optional:"true"`
	Cfg             *config.EntitlementConfigHolder `optional:"true"`
	AuditSvc        auditdomain.Service             `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics             `optional:"true"`
}

type Service struct {
	db              *gorm.DB
	log             *zap.Logger
	ledgersvc       ledgerdomain.Service
	subscriptionsvc subscriptiondomain.Service
	packsvc         packdomain.Service
	locker          lock.Locker
	cfg             *config.EntitlementConfigHolder
	auditsvc        auditdomain.Service
	obsMetrics      *obsmetrics.Metrics
}

func NewService(p Params) entitlementdomain.Service {
	return &Service{
		db:              p.DB,
		log:             p.Log.Named("entitlement.service"),
		ledgersvc:       p.LedgerSvc,
		subscriptionsvc: p.SubscriptionSvc,
		packsvc:         p.PackSvc,
		locker:          p.Locker,
		cfg:             p.Cfg,
		auditsvc:        p.AuditSvc,
		obsMetrics:      p.ObsMetrics,
	}
}

func (s *Service) RequestUnlock(ctx context.Context, req entitlementdomain.UnlockRequest) (entitlementdomain.UnlockResult, error) {
	if err := req.Validate(); err != nil {
		return entitlementdomain.UnlockResult{}, err
	}

	cfg := s.cfg.Get()
	mode := config.QuotaEnforcementLenient

	var (
		result  entitlementdomain.UnlockResult
		created bool
		err     error
	)
	if cfg.Strict() && s.locker != nil {
		mode = config.QuotaEnforcementStrict
		result, created, err = s.unlockStrict(ctx, req, time.Duration(cfg.LockTTLSeconds)*time.Second)
	} else {
		result, created, err = s.decide(ctx, req, s.scope(nil))
	}
	if err != nil {
		s.log.Error("unlock request failed",
			zap.Int64("recruiter_id", req.RecruiterID),
			zap.Int64("candidate_id", req.CandidateID),
			zap.Error(err),
		)
		return entitlementdomain.UnlockResult{}, err
	}

	s.obsMetrics.RecordUnlockOutcome(ctx, string(result.Outcome), mode)
	s.log.Debug("unlock decided",
		zap.Int64("recruiter_id", req.RecruiterID),
		zap.Int64("candidate_id", req.CandidateID),
		zap.String("outcome", string(result.Outcome)),
		zap.Int64("used", result.Used),
		zap.Int64("limit", result.Limit),
		zap.String("mode", mode),
	)
	if created {
		s.auditUnlock(ctx, req, result)
	}
	return result, nil
}

// unlockScope holds the services decide reads and writes through. In strict
// mode all of them are bound to the same tx.
type unlockScope struct {
	ledger        ledgerdomain.Service
	subscriptions subscriptiondomain.Service
	packs         packdomain.Service
}

func (s *Service) scope(tx *gorm.DB) unlockScope {
	if tx == nil {
		return unlockScope{ledger: s.ledgersvc, subscriptions: s.subscriptionsvc, packs: s.packsvc}
	}
	return unlockScope{
		ledger:        s.ledgersvc.WithTx(tx),
		subscriptions: s.subscriptionsvc.WithTx(tx),
		packs:         s.packsvc.WithTx(tx),
	}
}

// decide runs the five ordered checks. The order matters: an existing
// unlock is honoured even without an active subscription or with an
// exhausted quota. created reports whether this call wrote the ledger entry.
func (s *Service) decide(ctx context.Context, req entitlementdomain.UnlockRequest, sc unlockScope) (entitlementdomain.UnlockResult, bool, error) {
	unlocked, err := sc.ledger.HasUnlocked(ctx, req.RecruiterID, req.CandidateID)
	if err != nil {
		return entitlementdomain.UnlockResult{}, false, err
	}
	if unlocked {
		return entitlementdomain.UnlockResult{Outcome: entitlementdomain.OutcomeAlreadyUnlocked}, false, nil
	}

	subscription, err := sc.subscriptions.GetActiveSubscription(ctx, req.RecruiterID)
	if err != nil {
		return entitlementdomain.UnlockResult{}, false, err
	}
	if subscription == nil {
		return entitlementdomain.UnlockResult{Outcome: entitlementdomain.OutcomeSubscriptionRequired}, false, nil
	}
	subscriptionID := subscription.ID

	pack, err := sc.packs.GetPack(ctx, subscription.PackID)
	if err != nil {
		return entitlementdomain.UnlockResult{}, false, fmt.Errorf("resolve pack %s of subscription %s: %w", subscription.PackID, subscription.ID, err)
	}
	limit := int64(pack.ProfileLimit)

	used, err := sc.ledger.CountUnlocked(ctx, req.RecruiterID)
	if err != nil {
		return entitlementdomain.UnlockResult{}, false, err
	}
	if used >= limit {
		return entitlementdomain.UnlockResult{
			Outcome:        entitlementdomain.OutcomeQuotaExceeded,
			Used:           used,
			Limit:          limit,
			SubscriptionID: &subscriptionID,
		}, false, nil
	}

	entry, created, err := sc.ledger.RecordUnlock(ctx, ledgerdomain.UnlockEntry{
		RecruiterID:    req.RecruiterID,
		CandidateID:    req.CandidateID,
		SubscriptionID: &subscriptionID,
	})
	if err != nil {
		return entitlementdomain.UnlockResult{}, false, err
	}
	if created {
		used++
	} else {
		// A concurrent duplicate won the insert; reuse its entry.
		if used, err = sc.ledger.CountUnlocked(ctx, req.RecruiterID); err != nil {
			return entitlementdomain.UnlockResult{}, false, err
		}
	}

	return entitlementdomain.UnlockResult{
		Outcome:        entitlementdomain.OutcomeUnlocked,
		Used:           used,
		Limit:          limit,
		Entry:          &entry,
		SubscriptionID: &subscriptionID,
	}, created, nil
}

// unlockStrict runs decide under the recruiter's lock and inside one
// transaction, so concurrent requests cannot overdraw the quota.
func (s *Service) unlockStrict(ctx context.Context, req entitlementdomain.UnlockRequest, ttl time.Duration) (entitlementdomain.UnlockResult, bool, error) {
	lockCtx, cancel := context.WithTimeout(ctx, ttl)
	defer cancel()

	waitStart := time.Now()
	release, err := s.locker.Lock(lockCtx, recruiterLockKey(req.RecruiterID), ttl)
	if err != nil {
		return entitlementdomain.UnlockResult{}, false, err
	}
	defer release()
	s.obsMetrics.RecordLockWait(ctx, time.Since(waitStart).Seconds())

	var (
		result  entitlementdomain.UnlockResult
		created bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		decided, wrote, err := s.decide(ctx, req, s.scope(tx))
		if err != nil {
			return err
		}
		result, created = decided, wrote
		return nil
	})
	if err != nil {
		return entitlementdomain.UnlockResult{}, false, err
	}
	return result, created, nil
}

func (s *Service) auditUnlock(ctx context.Context, req entitlementdomain.UnlockRequest, result entitlementdomain.UnlockResult) {
	if s.auditsvc == nil || result.Entry == nil {
		return
	}
	metadata := map[string]any{
		"candidate_id": req.CandidateID,
		"used":         result.Used,
		"limit":        result.Limit,
	}
	if result.SubscriptionID != nil {
		metadata["subscription_id"] = result.SubscriptionID.String()
	}
	err := s.auditsvc.Record(ctx, auditdomain.Event{
		ActorType:  auditdomain.ActorTypeRecruiter,
		ActorID:    strconv.FormatInt(req.RecruiterID, 10),
		Action:     auditdomain.ActionUnlockGranted,
		TargetType: auditdomain.TargetTypeCreditLedgerEntry,
		TargetID:   result.Entry.ID.String(),
		Metadata:   metadata,
	})
	if err != nil {
		s.log.Warn("unlock audit failed", zap.Stringer("entry_id", result.Entry.ID), zap.Error(err))
	}
}

func recruiterLockKey(recruiterID int64) string {
	return "hireledger:entitlement:recruiter:" + strconv.FormatInt(recruiterID, 10)
}

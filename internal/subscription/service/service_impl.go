package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hireledger/internal/clock"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db  *gorm.DB
	log *zap.Logger

	genID   *snowflake.Node
	clock   clock.Clock
	repo    subscriptiondomain.Repository
	packsvc packdomain.Service
}

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    subscriptiondomain.Repository
	PackSvc packdomain.Service
}

func NewService(p ServiceParam) subscriptiondomain.Service {
	return &Service{
		db:  p.DB,
		log: p.Log.Named("subscription.service"),

		genID:   p.GenID,
		clock:   p.Clock,
		repo:    p.Repo,
		packsvc: p.PackSvc,
	}
}

func (s *Service) WithTx(tx *gorm.DB) subscriptiondomain.Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	clone.packsvc = s.packsvc.WithTx(tx)
	return &clone
}

// GetActiveSubscription implements domain.Service.
func (s *Service) GetActiveSubscription(ctx context.Context, recruiterID int64) (*subscriptiondomain.Subscription, error) {
	if recruiterID <= 0 {
		return nil, subscriptiondomain.ErrInvalidRecruiter
	}
	return s.repo.FindActive(ctx, s.db, recruiterID, s.clock.Now())
}

// CreateSubscription implements domain.Service.
func (s *Service) CreateSubscription(ctx context.Context, tx *gorm.DB, req subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	if req.RecruiterID <= 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidRecruiter
	}
	if req.PackID <= 0 {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidPack
	}
	if req.StartAt.IsZero() || !req.EndAt.After(req.StartAt) {
		return subscriptiondomain.Subscription{}, subscriptiondomain.ErrInvalidPeriod
	}

	db, packs := s.db, s.packsvc
	if tx != nil {
		db, packs = tx, s.packsvc.WithTx(tx)
	}
	if _, err := packs.GetPack(ctx, req.PackID); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	id := req.ID
	if id == 0 {
		id = s.genID.Generate()
	}
	now := s.clock.Now()
	subscription := subscriptiondomain.Subscription{
		ID:          id,
		RecruiterID: req.RecruiterID,
		PackID:      req.PackID,
		StartAt:     req.StartAt.UTC(),
		EndAt:       req.EndAt.UTC(),
		Status:      subscriptiondomain.SubscriptionStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Insert(ctx, db, &subscription); err != nil {
		return subscriptiondomain.Subscription{}, err
	}

	s.log.Info("subscription created",
		zap.String("subscription_id", subscription.ID.String()),
		zap.Int64("recruiter_id", subscription.RecruiterID),
		zap.String("pack_id", subscription.PackID.String()),
		zap.Time("end_at", subscription.EndAt),
	)
	return subscription, nil
}

// GetByID implements domain.Service.
func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (subscriptiondomain.SubscriptionView, error) {
	if id <= 0 {
		return subscriptiondomain.SubscriptionView{}, subscriptiondomain.ErrInvalidSubscription
	}
	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return subscriptiondomain.SubscriptionView{}, err
	}
	if item == nil {
		return subscriptiondomain.SubscriptionView{}, subscriptiondomain.ErrSubscriptionNotFound
	}
	return s.view(*item), nil
}

// ListByRecruiter implements domain.Service.
func (s *Service) ListByRecruiter(ctx context.Context, recruiterID int64) ([]subscriptiondomain.SubscriptionView, error) {
	if recruiterID <= 0 {
		return nil, subscriptiondomain.ErrInvalidRecruiter
	}
	items, err := s.repo.ListByRecruiter(ctx, s.db, recruiterID)
	if err != nil {
		return nil, err
	}
	views := make([]subscriptiondomain.SubscriptionView, 0, len(items))
	for _, item := range items {
		views = append(views, s.view(item))
	}
	return views, nil
}

func (s *Service) CountActive(ctx context.Context) (int64, error) {
	return s.repo.CountActive(ctx, s.db, s.clock.Now())
}

func (s *Service) view(item subscriptiondomain.Subscription) subscriptiondomain.SubscriptionView {
	return subscriptiondomain.SubscriptionView{
		Subscription:    item,
		EffectiveStatus: item.EffectiveStatus(s.clock.Now()),
	}
}

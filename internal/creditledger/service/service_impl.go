package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hireledger/internal/clock"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	"github.com/smallbiznis/hireledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  ledgerdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  ledgerdomain.Repository
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("creditledger.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) WithTx(tx *gorm.DB) ledgerdomain.Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	return &clone
}

func (s *Service) HasUnlocked(ctx context.Context, recruiterID, candidateID int64) (bool, error) {
	if recruiterID <= 0 {
		return false, ledgerdomain.ErrInvalidRecruiter
	}
	if candidateID <= 0 {
		return false, ledgerdomain.ErrInvalidCandidate
	}
	return s.repo.Exists(ctx, s.db, recruiterID, candidateID)
}

func (s *Service) CountUnlocked(ctx context.Context, recruiterID int64) (int64, error) {
	if recruiterID <= 0 {
		return 0, ledgerdomain.ErrInvalidRecruiter
	}
	return s.repo.CountByRecruiter(ctx, s.db, recruiterID)
}

func (s *Service) RecordUnlock(ctx context.Context, req ledgerdomain.UnlockEntry) (ledgerdomain.Entry, bool, error) {
	if err := req.Validate(); err != nil {
		return ledgerdomain.Entry{}, false, err
	}

	unlockedAt := req.UnlockedAt
	if unlockedAt.IsZero() {
		unlockedAt = s.clock.Now()
	}
	entry := ledgerdomain.Entry{
		ID:             s.genID.Generate(),
		RecruiterID:    req.RecruiterID,
		CandidateID:    req.CandidateID,
		SubscriptionID: req.SubscriptionID,
		UnlockedAt:     unlockedAt.UTC(),
	}

	created, err := s.repo.InsertIfAbsent(ctx, s.db, &entry)
	if err != nil {
		return ledgerdomain.Entry{}, false, err
	}
	if created {
		return entry, true, nil
	}

	existing, err := s.repo.Find(ctx, s.db, req.RecruiterID, req.CandidateID)
	if err != nil {
		return ledgerdomain.Entry{}, false, err
	}
	if existing == nil {
		return ledgerdomain.Entry{}, false, fmt.Errorf("unlock conflict without stored entry: %w", ledgerdomain.ErrEntryNotFound)
	}
	s.log.Debug("unlock already recorded",
		zap.Int64("recruiter_id", req.RecruiterID),
		zap.Int64("candidate_id", req.CandidateID),
		zap.String("entry_id", existing.ID.String()),
	)
	return *existing, false, nil
}

func (s *Service) ListByRecruiter(ctx context.Context, req ledgerdomain.ListRequest) (ledgerdomain.ListResponse, error) {
	if req.RecruiterID <= 0 {
		return ledgerdomain.ListResponse{}, ledgerdomain.ErrInvalidRecruiter
	}
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return ledgerdomain.ListResponse{}, err
	}
	var before snowflake.ID
	if cursor != nil {
		before = snowflake.ID(cursor.ID)
	}

	limit := req.Limit()
	items, err := s.repo.ListByRecruiter(ctx, s.db, req.RecruiterID, before, limit+1)
	if err != nil {
		return ledgerdomain.ListResponse{}, err
	}

	page, info := pagination.BuildCursorPageInfo(items, limit, func(e ledgerdomain.Entry) int64 {
		return int64(e.ID)
	})
	if page == nil {
		page = []ledgerdomain.Entry{}
	}
	return ledgerdomain.ListResponse{Entries: page, PageInfo: info}, nil
}

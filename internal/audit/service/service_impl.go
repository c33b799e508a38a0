package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	"github.com/smallbiznis/hireledger/internal/audit/masking"
	"github.com/smallbiznis/hireledger/internal/clock"
	obscontext "github.com/smallbiznis/hireledger/internal/observability/context"
	"github.com/smallbiznis/hireledger/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  auditdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  auditdomain.Repository
}

func NewService(p Params) auditdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("audit.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Record appends event to the audit trail. Metadata passes through
// masking.MaskSensitive before it is stored.
func (s *Service) Record(ctx context.Context, event auditdomain.Event) error {
	action := strings.TrimSpace(event.Action)
	if action == "" {
		return auditdomain.ErrInvalidAction
	}

	targetType := strings.TrimSpace(event.TargetType)
	if targetType == "" {
		targetType = "unknown"
	}

	actorType, actorID := event.ActorType, strings.TrimSpace(event.ActorID)
	if actorType == "" {
		ctxType, ctxID := obscontext.ActorFromContext(ctx)
		actorType = auditdomain.ActorType(ctxType)
		if actorID == "" {
			actorID = ctxID
		}
	}
	if actorType == "" {
		actorType = auditdomain.ActorTypeSystem
	}

	metadata := make(map[string]any, len(event.Metadata))
	for k, v := range event.Metadata {
		if k != "" {
			metadata[k] = v
		}
	}

	entry := auditdomain.AuditLog{
		ID:         s.genID.Generate(),
		ActorType:  string(actorType),
		ActorID:    optional(actorID),
		Action:     action,
		TargetType: targetType,
		TargetID:   optional(event.TargetID),
		Metadata:   datatypes.JSONMap(masking.MaskSensitive(metadata)),
		RequestID:  optional(obscontext.RequestIDFromContext(ctx)),
		CreatedAt:  s.clock.Now(),
	}

	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		s.log.Warn("audit insert failed", zap.String("action", action), zap.Error(err))
		return err
	}
	return nil
}

// List pages the trail newest first.
func (s *Service) List(ctx context.Context, req auditdomain.ListRequest) (auditdomain.ListResponse, error) {
	cursor, err := pagination.DecodeCursor(req.PageToken)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	filter := auditdomain.ListFilter{
		Action:     req.Action,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		ActorID:    req.ActorID,
		Limit:      req.Limit() + 1,
	}
	if cursor != nil {
		filter.BeforeID = snowflake.ID(cursor.ID)
	}

	items, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return auditdomain.ListResponse{}, err
	}

	page, info := pagination.BuildCursorPageInfo(items, req.Limit(), func(item auditdomain.AuditLog) int64 {
		return int64(item.ID)
	})
	if page == nil {
		page = []auditdomain.AuditLog{}
	}
	return auditdomain.ListResponse{PageInfo: info, Logs: page}, nil
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}

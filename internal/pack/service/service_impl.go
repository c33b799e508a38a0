package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hireledger/internal/cache"
	"github.com/smallbiznis/hireledger/internal/config"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	Repo  packdomain.Repository
	Cache cache.PackCache                 `optional:"true"`
	Cfg   *config.EntitlementConfigHolder `optional:"true"`
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	repo  packdomain.Repository
	cache cache.PackCache
	cfg   *config.EntitlementConfigHolder
}

func NewService(p Params) packdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("pack.service"),
		repo:  p.Repo,
		cache: p.Cache,
		cfg:   p.Cfg,
	}
}

func (s *Service) WithTx(tx *gorm.DB) packdomain.Service {
	if tx == nil {
		return s
	}
	clone := *s
	clone.db = tx
	return &clone
}

func (s *Service) GetPack(ctx context.Context, id snowflake.ID) (packdomain.Pack, error) {
	if id <= 0 {
		return packdomain.Pack{}, packdomain.ErrInvalidPackID
	}
	if s.cache != nil {
		if pack, ok := s.cache.GetPack(ctx, id); ok {
			return pack, nil
		}
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return packdomain.Pack{}, err
	}
	if item == nil {
		return packdomain.Pack{}, packdomain.ErrPackNotFound
	}
	s.remember(ctx, *item)
	return *item, nil
}

func (s *Service) GetByName(ctx context.Context, name string) (packdomain.Pack, error) {
	name = packdomain.NormalizeName(name)
	if !packdomain.IsKnownName(name) {
		return packdomain.Pack{}, packdomain.ErrInvalidPackName
	}
	if s.cache != nil {
		if pack, ok := s.cache.GetPackByName(ctx, name); ok {
			return pack, nil
		}
	}

	item, err := s.repo.FindByName(ctx, s.db, name)
	if err != nil {
		return packdomain.Pack{}, err
	}
	if item == nil {
		return packdomain.Pack{}, packdomain.ErrPackNotFound
	}
	s.remember(ctx, *item)
	return *item, nil
}

func (s *Service) List(ctx context.Context) ([]packdomain.Pack, error) {
	if s.cache != nil {
		if packs, ok := s.cache.GetCatalog(ctx); ok {
			return packs, nil
		}
	}

	items, err := s.repo.List(ctx, s.db)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		ttl := s.ttl()
		s.cache.SetCatalog(ctx, items, ttl)
		for _, item := range items {
			s.cache.SetPack(ctx, item, ttl)
		}
	}
	return items, nil
}

func (s *Service) remember(ctx context.Context, pack packdomain.Pack) {
	if s.cache == nil {
		return
	}
	s.cache.SetPack(ctx, pack, s.ttl())
}

func (s *Service) ttl() time.Duration {
	return time.Duration(s.cfg.Get().PackCacheTTLSeconds) * time.Second
}

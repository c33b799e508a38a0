package cache

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	redis "github.com/redis/go-redis/v9"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	"go.uber.org/zap"
)

const (
	catalogKey       = "catalog"
	packKeyPrefix    = "pack:id:"
	packNamePrefix   = "pack:name:"
	redisCachePrefix = "hireledger:"
)

// PackCache stores catalog lookups. Packs are reference data so stale reads
// within the TTL are acceptable.
type PackCache interface {
	GetPack(ctx context.Context, id snowflake.ID) (packdomain.Pack, bool)
	GetPackByName(ctx context.Context, name string) (packdomain.Pack, bool)
	SetPack(ctx context.Context, pack packdomain.Pack, ttl time.Duration)
	GetCatalog(ctx context.Context) ([]packdomain.Pack, bool)
	SetCatalog(ctx context.Context, packs []packdomain.Pack, ttl time.Duration)
}

type packCache struct {
	packs   Cache[string, packdomain.Pack]
	catalog Cache[string, []packdomain.Pack]
}

// NewPackCache picks redis when a client is available, memory otherwise.
func NewPackCache(client *redis.Client, log *zap.Logger) PackCache {
	if client != nil {
		return &packCache{
			packs:   NewRedisCache[packdomain.Pack](client, redisCachePrefix, log),
			catalog: NewRedisCache[[]packdomain.Pack](client, redisCachePrefix, log),
		}
	}
	return NewMemoryPackCache()
}

func NewMemoryPackCache() PackCache {
	return &packCache{
		packs:   NewTTLCache[string, packdomain.Pack](),
		catalog: NewTTLCache[string, []packdomain.Pack](),
	}
}

func (c *packCache) GetPack(ctx context.Context, id snowflake.ID) (packdomain.Pack, bool) {
	return c.packs.Get(ctx, packKeyPrefix+id.String())
}

func (c *packCache) GetPackByName(ctx context.Context, name string) (packdomain.Pack, bool) {
	return c.packs.Get(ctx, packNamePrefix+strings.ToLower(strings.TrimSpace(name)))
}

func (c *packCache) SetPack(ctx context.Context, pack packdomain.Pack, ttl time.Duration) {
	if pack.ID == 0 {
		return
	}
	c.packs.Set(ctx, packKeyPrefix+pack.ID.String(), pack, ttl)
	c.packs.Set(ctx, packNamePrefix+pack.Name, pack, ttl)
}

func (c *packCache) GetCatalog(ctx context.Context) ([]packdomain.Pack, bool) {
	packs, ok := c.catalog.Get(ctx, catalogKey)
	if !ok {
		return nil, false
	}
	return append([]packdomain.Pack(nil), packs...), true
}

func (c *packCache) SetCatalog(ctx context.Context, packs []packdomain.Pack, ttl time.Duration) {
	c.catalog.Set(ctx, catalogKey, append([]packdomain.Pack(nil), packs...), ttl)
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTTLCacheExpires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := NewTTLCache[string, int]()
	c.now = func() time.Time { return now }

	c.Set(ctx, "a", 1, time.Minute)
	v, ok := c.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	now = now.Add(time.Minute)
	_, ok = c.Get(ctx, "a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestTTLCacheIgnoresNonPositiveTTL(t *testing.T) {
	c := NewTTLCache[string, int]()
	c.Set(context.Background(), "a", 1, 0)
	_, ok := c.Get(context.Background(), "a")
	assert.False(t, ok)
}

func TestMemoryPackCacheIndexesByIDAndName(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryPackCache()
	pack := packdomain.Pack{
		ID:             snowflake.ID(11),
		Name:           packdomain.PackBasic,
		Price:          decimal.RequireFromString("49.00"),
		ProfileLimit:   10,
		VisibilityDays: 30,
	}

	c.SetPack(ctx, pack, time.Minute)

	byID, ok := c.GetPack(ctx, pack.ID)
	require.True(t, ok)
	assert.Equal(t, pack.Name, byID.Name)

	byName, ok := c.GetPackByName(ctx, " Basic ")
	require.True(t, ok)
	assert.Equal(t, pack.ID, byName.ID)

	catalog := []packdomain.Pack{pack}
	c.SetCatalog(ctx, catalog, time.Minute)
	catalog[0].Name = "mutated"
	got, ok := c.GetCatalog(ctx)
	require.True(t, ok)
	assert.Equal(t, packdomain.PackBasic, got[0].Name)
}

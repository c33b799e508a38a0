package service_test

import (
	"context"
	"testing"

	"github.com/smallbiznis/hireledger/internal/cache"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	packrepo "github.com/smallbiznis/hireledger/internal/pack/repository"
	packservice "github.com/smallbiznis/hireledger/internal/pack/service"
	"github.com/smallbiznis/hireledger/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGetPackServesFromCache(t *testing.T) {
	db := testdb.Open(t)
	node := testdb.Node(t)
	basic := testdb.SeedPack(t, db, node, packdomain.PackBasic, "49.00", 10, 30)

	svc := packservice.NewService(packservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		Repo:  packrepo.Provide(),
		Cache: cache.NewMemoryPackCache(),
	})
	ctx := context.Background()

	got, err := svc.GetPack(ctx, basic.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.ProfileLimit)
	assert.True(t, got.Price.Equal(basic.Price))

	require.NoError(t, db.Exec("DELETE FROM packs").Error)

	cached, err := svc.GetPack(ctx, basic.ID)
	require.NoError(t, err)
	assert.Equal(t, basic.ID, cached.ID)

	byName, err := svc.GetByName(ctx, " BASIC ")
	require.NoError(t, err)
	assert.Equal(t, basic.ID, byName.ID)
}

func TestPackLookupsWithoutCache(t *testing.T) {
	db := testdb.Open(t)
	node := testdb.Node(t)
	testdb.SeedPack(t, db, node, packdomain.PackBasic, "49.00", 10, 30)
	testdb.SeedPack(t, db, node, packdomain.PackPremium, "199.00", 200, 60)

	svc := packservice.NewService(packservice.Params{DB: db, Log: zap.NewNop(), Repo: packrepo.Provide()})
	ctx := context.Background()

	packs, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, packs, 2)

	_, err = svc.GetPack(ctx, 0)
	require.ErrorIs(t, err, packdomain.ErrInvalidPackID)
	_, err = svc.GetPack(ctx, 777)
	require.ErrorIs(t, err, packdomain.ErrPackNotFound)
	_, err = svc.GetByName(ctx, "standard")
	require.ErrorIs(t, err, packdomain.ErrPackNotFound)
	_, err = svc.GetByName(ctx, "gold")
	require.ErrorIs(t, err, packdomain.ErrInvalidPackName)
}

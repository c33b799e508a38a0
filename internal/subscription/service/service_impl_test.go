package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hireledger/internal/clock"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	packrepo "github.com/smallbiznis/hireledger/internal/pack/repository"
	packservice "github.com/smallbiznis/hireledger/internal/pack/service"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/hireledger/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/hireledger/internal/subscription/service"
	"github.com/smallbiznis/hireledger/internal/testutil/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var jan1 = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

type fixture struct {
	svc   subscriptiondomain.Service
	clock *clock.FakeClock
	basic packdomain.Pack
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testdb.Open(t)
	node := testdb.Node(t)
	fakeClock := clock.NewFakeClock(jan1)
	log := zap.NewNop()

	basic := testdb.SeedPack(t, db, node, packdomain.PackBasic, "49.00", 10, 30)
	packSvc := packservice.NewService(packservice.Params{DB: db, Log: log, Repo: packrepo.Provide()})
	svc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: subscriptionrepo.Provide(), PackSvc: packSvc,
	})
	return &fixture{svc: svc, clock: fakeClock, basic: basic}
}

func (f *fixture) create(t *testing.T, recruiterID int64, start time.Time, days int) subscriptiondomain.Subscription {
	t.Helper()
	sub, err := f.svc.CreateSubscription(context.Background(), nil, subscriptiondomain.CreateSubscriptionRequest{
		RecruiterID: recruiterID,
		PackID:      f.basic.ID,
		StartAt:     start,
		EndAt:       start.AddDate(0, 0, days),
	})
	require.NoError(t, err)
	return sub
}

func TestActiveSubscriptionPrefersLatestEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, 1, jan1, 30)
	longer := f.create(t, 1, jan1.AddDate(0, 0, -10), 60)

	active, err := f.svc.GetActiveSubscription(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, active)
	assert.Equal(t, longer.ID, active.ID)
}

func TestActiveSubscriptionExpiresAtEndAt(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := f.create(t, 2, jan1, 30)

	f.clock.Set(sub.EndAt.Add(-time.Second))
	active, err := f.svc.GetActiveSubscription(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, active)

	f.clock.Set(sub.EndAt)
	active, err = f.svc.GetActiveSubscription(ctx, 2)
	require.NoError(t, err)
	assert.Nil(t, active)

	views, err := f.svc.ListByRecruiter(ctx, 2)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, views[0].Status)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusExpired, views[0].EffectiveStatus)

	count, err := f.svc.CountActive(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCreateSubscriptionKeepsPregeneratedID(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	id := snowflake.ID(424242)
	sub, err := f.svc.CreateSubscription(ctx, nil, subscriptiondomain.CreateSubscriptionRequest{
		ID:          id,
		RecruiterID: 3,
		PackID:      f.basic.ID,
		StartAt:     jan1,
		EndAt:       jan1.AddDate(0, 0, 30),
	})
	require.NoError(t, err)
	assert.Equal(t, id, sub.ID)

	view, err := f.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, subscriptiondomain.SubscriptionStatusActive, view.EffectiveStatus)
	assert.True(t, view.EndAt.Equal(jan1.AddDate(0, 0, 30)))
}

func TestCreateSubscriptionValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  subscriptiondomain.CreateSubscriptionRequest
		want error
	}{
		{
			name: "recruiter",
			req:  subscriptiondomain.CreateSubscriptionRequest{PackID: f.basic.ID, StartAt: jan1, EndAt: jan1.Add(time.Hour)},
			want: subscriptiondomain.ErrInvalidRecruiter,
		},
		{
			name: "pack",
			req:  subscriptiondomain.CreateSubscriptionRequest{RecruiterID: 1, StartAt: jan1, EndAt: jan1.Add(time.Hour)},
			want: subscriptiondomain.ErrInvalidPack,
		},
		{
			name: "period",
			req:  subscriptiondomain.CreateSubscriptionRequest{RecruiterID: 1, PackID: f.basic.ID, StartAt: jan1, EndAt: jan1},
			want: subscriptiondomain.ErrInvalidPeriod,
		},
		{
			name: "unknown pack",
			req:  subscriptiondomain.CreateSubscriptionRequest{RecruiterID: 1, PackID: 99, StartAt: jan1, EndAt: jan1.Add(time.Hour)},
			want: packdomain.ErrPackNotFound,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.CreateSubscription(ctx, nil, tc.req)
			require.ErrorIs(t, err, tc.want)
		})
	}

	_, err := f.svc.GetByID(ctx, 12345)
	require.ErrorIs(t, err, subscriptiondomain.ErrSubscriptionNotFound)
	_, err = f.svc.GetActiveSubscription(ctx, 0)
	require.ErrorIs(t, err, subscriptiondomain.ErrInvalidRecruiter)
}

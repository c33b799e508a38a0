package service_test

import (
	"context"
	"testing"
	"time"

	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	auditrepo "github.com/smallbiznis/hireledger/internal/audit/repository"
	auditservice "github.com/smallbiznis/hireledger/internal/audit/service"
	"github.com/smallbiznis/hireledger/internal/clock"
	obscontext "github.com/smallbiznis/hireledger/internal/observability/context"
	"github.com/smallbiznis/hireledger/internal/testutil/testdb"
	"github.com/smallbiznis/hireledger/pkg/db/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAudit(t *testing.T) auditdomain.Service {
	t.Helper()
	return auditservice.NewService(auditservice.Params{
		DB:    testdb.Open(t),
		Log:   zap.NewNop(),
		GenID: testdb.Node(t),
		Clock: clock.NewFakeClock(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)),
		Repo:  auditrepo.Provide(),
	})
}

func TestRecordTakesActorFromContext(t *testing.T) {
	svc := newAudit(t)
	ctx := obscontext.WithActor(context.Background(), string(auditdomain.ActorTypeInternal), "ops")
	ctx = obscontext.WithRequestID(ctx, "req-1")

	require.NoError(t, svc.Record(ctx, auditdomain.Event{
		Action:     auditdomain.ActionPaymentReconciled,
		TargetType: auditdomain.TargetTypePayment,
		TargetID:   "42",
		Metadata:   map[string]any{"pack": "basic", "signature": "whsec_abcdef123456"},
	}))

	resp, err := svc.List(context.Background(), auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Logs, 1)

	entry := resp.Logs[0]
	assert.Equal(t, "internal", entry.ActorType)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "ops", *entry.ActorID)
	require.NotNil(t, entry.RequestID)
	assert.Equal(t, "req-1", *entry.RequestID)
	assert.Equal(t, "basic", entry.Metadata["pack"])
	assert.Equal(t, "whsec_****3456", entry.Metadata["signature"])
}

func TestRecordDefaultsToSystemActor(t *testing.T) {
	svc := newAudit(t)
	ctx := context.Background()

	require.NoError(t, svc.Record(ctx, auditdomain.Event{Action: "seed.packs"}))

	resp, err := svc.List(ctx, auditdomain.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Logs, 1)
	assert.Equal(t, "system", resp.Logs[0].ActorType)
	assert.Nil(t, resp.Logs[0].ActorID)
	assert.Equal(t, "unknown", resp.Logs[0].TargetType)
}

func TestRecordRejectsBlankAction(t *testing.T) {
	svc := newAudit(t)
	err := svc.Record(context.Background(), auditdomain.Event{Action: "  "})
	require.ErrorIs(t, err, auditdomain.ErrInvalidAction)
}

func TestListFiltersAndPages(t *testing.T) {
	svc := newAudit(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, svc.Record(ctx, auditdomain.Event{
			ActorType:  auditdomain.ActorTypeRecruiter,
			ActorID:    "7",
			Action:     auditdomain.ActionUnlockGranted,
			TargetType: auditdomain.TargetTypeCreditLedgerEntry,
		}))
	}
	require.NoError(t, svc.Record(ctx, auditdomain.Event{
		ActorType:  auditdomain.ActorTypeRecruiter,
		ActorID:    "8",
		Action:     auditdomain.ActionUnlockGranted,
		TargetType: auditdomain.TargetTypeCreditLedgerEntry,
	}))

	first, err := svc.List(ctx, auditdomain.ListRequest{
		ActorID:    "7",
		Pagination: pagination.Pagination{PageSize: 2},
	})
	require.NoError(t, err)
	require.Len(t, first.Logs, 2)
	require.True(t, first.HasMore)
	assert.Greater(t, int64(first.Logs[0].ID), int64(first.Logs[1].ID))

	second, err := svc.List(ctx, auditdomain.ListRequest{
		ActorID:    "7",
		Pagination: pagination.Pagination{PageSize: 2, PageToken: first.NextPageToken},
	})
	require.NoError(t, err)
	require.Len(t, second.Logs, 1)
	assert.False(t, second.HasMore)

	_, err = svc.List(ctx, auditdomain.ListRequest{Pagination: pagination.Pagination{PageToken: "???"}})
	require.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/hireledger/internal/clock"
	"github.com/smallbiznis/hireledger/internal/config"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	ledgerrepo "github.com/smallbiznis/hireledger/internal/creditledger/repository"
	ledgerservice "github.com/smallbiznis/hireledger/internal/creditledger/service"
	entitlementdomain "github.com/smallbiznis/hireledger/internal/entitlement/domain"
	entitlementservice "github.com/smallbiznis/hireledger/internal/entitlement/service"
	"github.com/smallbiznis/hireledger/internal/lock"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	packrepo "github.com/smallbiznis/hireledger/internal/pack/repository"
	packservice "github.com/smallbiznis/hireledger/internal/pack/service"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	subscriptionrepo "github.com/smallbiznis/hireledger/internal/subscription/repository"
	subscriptionservice "github.com/smallbiznis/hireledger/internal/subscription/service"
	"github.com/smallbiznis/hireledger/internal/testutil/testdb"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const recruiterID int64 = 501

type harness struct {
	db              *gorm.DB
	node            *snowflake.Node
	clock           *clock.FakeClock
	ledgerSvc       ledgerdomain.Service
	subscriptionSvc subscriptiondomain.Service
	packSvc         packdomain.Service
	svc             entitlementdomain.Service
	basic           packdomain.Pack
}

func newHarness(t *testing.T, mode string) *harness {
	t.Helper()

	db := testdb.Open(t)
	node := testdb.Node(t)
	fakeClock := clock.NewFakeClock(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()

	basic := testdb.SeedPack(t, db, node, packdomain.PackBasic, "49.00", 2, 30)

	packSvc := packservice.NewService(packservice.Params{DB: db, Log: log, Repo: packrepo.Provide()})
	ledgerSvc := ledgerservice.NewService(ledgerservice.Params{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: ledgerrepo.Provide(),
	})
	subscriptionSvc := subscriptionservice.NewService(subscriptionservice.ServiceParam{
		DB: db, Log: log, GenID: node, Clock: fakeClock, Repo: subscriptionrepo.Provide(), PackSvc: packSvc,
	})

	cfg := config.DefaultEntitlementConfig()
	cfg.QuotaEnforcement = mode
	svc := entitlementservice.NewService(entitlementservice.Params{
		DB:              db,
		Log:             log,
		LedgerSvc:       ledgerSvc,
		SubscriptionSvc: subscriptionSvc,
		PackSvc:         packSvc,
		Locker:          lock.NewLocalLocker(),
		Cfg:             config.NewStaticEntitlementConfig(cfg),
	})

	return &harness{
		db:              db,
		node:            node,
		clock:           fakeClock,
		ledgerSvc:       ledgerSvc,
		subscriptionSvc: subscriptionSvc,
		packSvc:         packSvc,
		svc:             svc,
		basic:           basic,
	}
}

func (h *harness) subscribe(t *testing.T, pack packdomain.Pack, start time.Time) subscriptiondomain.Subscription {
	t.Helper()
	startAt, endAt := pack.Window(start)
	sub, err := h.subscriptionSvc.CreateSubscription(context.Background(), nil, subscriptiondomain.CreateSubscriptionRequest{
		RecruiterID: recruiterID,
		PackID:      pack.ID,
		StartAt:     startAt,
		EndAt:       endAt,
	})
	if err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return sub
}

func (h *harness) unlock(t *testing.T, candidateID int64) entitlementdomain.UnlockResult {
	t.Helper()
	result, err := h.svc.RequestUnlock(context.Background(), entitlementdomain.UnlockRequest{
		RecruiterID: recruiterID,
		CandidateID: candidateID,
	})
	if err != nil {
		t.Fatalf("request unlock %d: %v", candidateID, err)
	}
	return result
}

func TestRequestUnlockRequiresSubscription(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementLenient)

	result := h.unlock(t, 1)
	require.Equal(t, entitlementdomain.OutcomeSubscriptionRequired, result.Outcome)

	count, err := h.ledgerSvc.CountUnlocked(context.Background(), recruiterID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestRequestUnlockBasicPackScenario(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementLenient)
	sub := h.subscribe(t, h.basic, h.clock.Now())

	first := h.unlock(t, 101)
	require.Equal(t, entitlementdomain.OutcomeUnlocked, first.Outcome)
	require.NotNil(t, first.Entry)
	require.NotNil(t, first.Entry.SubscriptionID)
	require.Equal(t, sub.ID, *first.Entry.SubscriptionID)
	require.EqualValues(t, 1, first.Used)
	require.EqualValues(t, 2, first.Limit)

	second := h.unlock(t, 102)
	require.Equal(t, entitlementdomain.OutcomeUnlocked, second.Outcome)

	third := h.unlock(t, 103)
	require.Equal(t, entitlementdomain.OutcomeQuotaExceeded, third.Outcome)
	require.EqualValues(t, 2, third.Used)
	require.EqualValues(t, 2, third.Limit)

	// Already unlocked candidates stay visible after the quota is spent.
	again := h.unlock(t, 101)
	require.Equal(t, entitlementdomain.OutcomeAlreadyUnlocked, again.Outcome)
}

func TestRequestUnlockIsIdempotent(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementLenient)
	h.subscribe(t, h.basic, h.clock.Now())

	require.Equal(t, entitlementdomain.OutcomeUnlocked, h.unlock(t, 7).Outcome)
	for i := 0; i < 3; i++ {
		require.Equal(t, entitlementdomain.OutcomeAlreadyUnlocked, h.unlock(t, 7).Outcome)
	}

	count, err := h.ledgerSvc.CountUnlocked(context.Background(), recruiterID)
	require.NoError(t, err)
	require.EqualValues(t, 1, count)
}

func TestRequestUnlockAfterExpiry(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementLenient)
	sub := h.subscribe(t, h.basic, h.clock.Now())

	require.Equal(t, entitlementdomain.OutcomeUnlocked, h.unlock(t, 11).Outcome)

	h.clock.Set(sub.EndAt)

	require.Equal(t, entitlementdomain.OutcomeSubscriptionRequired, h.unlock(t, 12).Outcome)
	require.Equal(t, entitlementdomain.OutcomeAlreadyUnlocked, h.unlock(t, 11).Outcome)
}

func TestRequestUnlockQuotaIsLifetime(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementLenient)
	first := h.subscribe(t, h.basic, h.clock.Now())

	require.Equal(t, entitlementdomain.OutcomeUnlocked, h.unlock(t, 21).Outcome)
	require.Equal(t, entitlementdomain.OutcomeUnlocked, h.unlock(t, 22).Outcome)

	h.clock.Set(first.EndAt.Add(time.Hour))
	h.subscribe(t, h.basic, h.clock.Now())

	result := h.unlock(t, 23)
	require.Equal(t, entitlementdomain.OutcomeQuotaExceeded, result.Outcome)
	require.EqualValues(t, 2, result.Used)
}

func TestRequestUnlockValidatesInput(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementLenient)

	_, err := h.svc.RequestUnlock(context.Background(), entitlementdomain.UnlockRequest{RecruiterID: 0, CandidateID: 1})
	require.ErrorIs(t, err, entitlementdomain.ErrInvalidRecruiter)

	_, err = h.svc.RequestUnlock(context.Background(), entitlementdomain.UnlockRequest{RecruiterID: 1, CandidateID: -1})
	require.ErrorIs(t, err, entitlementdomain.ErrInvalidCandidate)
}

func TestRequestUnlockStrictModeHoldsQuotaUnderConcurrency(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementStrict)
	h.subscribe(t, h.basic, h.clock.Now())

	const workers = 6
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		outcomes = map[entitlementdomain.Outcome]int{}
		errs     []error
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(candidateID int64) {
			defer wg.Done()
			result, err := h.svc.RequestUnlock(context.Background(), entitlementdomain.UnlockRequest{
				RecruiterID: recruiterID,
				CandidateID: candidateID,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			outcomes[result.Outcome]++
		}(int64(1000 + i))
	}
	wg.Wait()

	require.Empty(t, errs)
	require.Equal(t, 2, outcomes[entitlementdomain.OutcomeUnlocked])
	require.Equal(t, workers-2, outcomes[entitlementdomain.OutcomeQuotaExceeded])

	count, err := h.ledgerSvc.CountUnlocked(context.Background(), recruiterID)
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestRequestUnlockStrictModeUsesSingleConnection(t *testing.T) {
	h := newHarness(t, config.QuotaEnforcementStrict)
	h.subscribe(t, h.basic, h.clock.Now())

	sqlDB, err := h.db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := h.svc.RequestUnlock(ctx, entitlementdomain.UnlockRequest{
		RecruiterID: recruiterID,
		CandidateID: 301,
	})
	require.NoError(t, err)
	require.Equal(t, entitlementdomain.OutcomeUnlocked, result.Outcome)
	require.EqualValues(t, 1, result.Used)
}

// staleLedger always misses the existing-unlock check, as a request racing
// a duplicate of itself would before the other insert commits.
type staleLedger struct {
	ledgerdomain.Service
}

func (l staleLedger) HasUnlocked(context.Context, int64, int64) (bool, error) {
	return false, nil
}

func (l staleLedger) WithTx(tx *gorm.DB) ledgerdomain.Service {
	return staleLedger{Service: l.Service.WithTx(tx)}
}

func TestRequestUnlockConcurrentDuplicateReusesEntry(t *testing.T) {
	for _, mode := range []string{config.QuotaEnforcementLenient, config.QuotaEnforcementStrict} {
		t.Run(mode, func(t *testing.T) {
			h := newHarness(t, mode)
			h.subscribe(t, h.basic, h.clock.Now())

			first := h.unlock(t, 401)
			require.Equal(t, entitlementdomain.OutcomeUnlocked, first.Outcome)

			cfg := config.DefaultEntitlementConfig()
			cfg.QuotaEnforcement = mode
			racer := entitlementservice.NewService(entitlementservice.Params{
				DB:              h.db,
				Log:             zap.NewNop(),
				LedgerSvc:       staleLedger{Service: h.ledgerSvc},
				SubscriptionSvc: h.subscriptionSvc,
				PackSvc:         h.packSvc,
				Locker:          lock.NewLocalLocker(),
				Cfg:             config.NewStaticEntitlementConfig(cfg),
			})

			duplicate, err := racer.RequestUnlock(context.Background(), entitlementdomain.UnlockRequest{
				RecruiterID: recruiterID,
				CandidateID: 401,
			})
			require.NoError(t, err)
			require.Equal(t, entitlementdomain.OutcomeUnlocked, duplicate.Outcome)
			require.NotNil(t, duplicate.Entry)
			require.Equal(t, first.Entry.ID, duplicate.Entry.ID)
			require.EqualValues(t, 1, duplicate.Used)
			require.EqualValues(t, 2, duplicate.Limit)

			count, err := h.ledgerSvc.CountUnlocked(context.Background(), recruiterID)
			require.NoError(t, err)
			require.EqualValues(t, 1, count)
		})
	}
}

// Lenient mode does not serialize requests: concurrent unlocks of distinct
// candidates that all count before any of them inserts may exceed the limit.
func TestRequestUnlockLenientModeMayOvershoot(t *testing.T) {
	const workers = 3

	ledger := newRacingLedger(workers)
	subscriptionID := snowflake.ID(42)
	svc := entitlementservice.NewService(entitlementservice.Params{
		Log:       zap.NewNop(),
		LedgerSvc: ledger,
		SubscriptionSvc: staticSubscriptions{sub: &subscriptiondomain.Subscription{
			ID:          subscriptionID,
			RecruiterID: recruiterID,
			PackID:      snowflake.ID(7),
			Status:      subscriptiondomain.SubscriptionStatusActive,
		}},
		PackSvc: staticPacks{pack: packdomain.Pack{ID: 7, Name: packdomain.PackBasic, ProfileLimit: 2}},
		Cfg:     config.NewStaticEntitlementConfig(config.DefaultEntitlementConfig()),
	})

	var wg sync.WaitGroup
	results := make([]entitlementdomain.UnlockResult, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := svc.RequestUnlock(context.Background(), entitlementdomain.UnlockRequest{
				RecruiterID: recruiterID,
				CandidateID: int64(i + 1),
			})
			if err != nil {
				t.Errorf("request unlock: %v", err)
				return
			}
			results[i] = result
		}(i)
	}
	wg.Wait()

	for _, result := range results {
		require.Equal(t, entitlementdomain.OutcomeUnlocked, result.Outcome)
	}
	require.Equal(t, workers, ledger.size())
}

// racingLedger holds every CountUnlocked call until all workers have counted.
type racingLedger struct {
	mu      sync.Mutex
	entries map[int64]ledgerdomain.Entry
	counted sync.WaitGroup
}

func newRacingLedger(workers int) *racingLedger {
	l := &racingLedger{entries: map[int64]ledgerdomain.Entry{}}
	l.counted.Add(workers)
	return l
}

func (l *racingLedger) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

func (l *racingLedger) HasUnlocked(_ context.Context, _, candidateID int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.entries[candidateID]
	return ok, nil
}

func (l *racingLedger) CountUnlocked(context.Context, int64) (int64, error) {
	l.mu.Lock()
	count := int64(len(l.entries))
	l.mu.Unlock()

	l.counted.Done()
	l.counted.Wait()
	return count, nil
}

func (l *racingLedger) RecordUnlock(_ context.Context, entry ledgerdomain.UnlockEntry) (ledgerdomain.Entry, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if existing, ok := l.entries[entry.CandidateID]; ok {
		return existing, false, nil
	}
	stored := ledgerdomain.Entry{
		ID:             snowflake.ID(len(l.entries) + 1),
		RecruiterID:    entry.RecruiterID,
		CandidateID:    entry.CandidateID,
		SubscriptionID: entry.SubscriptionID,
		UnlockedAt:     time.Now().UTC(),
	}
	l.entries[entry.CandidateID] = stored
	return stored, true, nil
}

func (l *racingLedger) ListByRecruiter(context.Context, ledgerdomain.ListRequest) (ledgerdomain.ListResponse, error) {
	return ledgerdomain.ListResponse{}, errors.New("not implemented")
}

func (l *racingLedger) WithTx(*gorm.DB) ledgerdomain.Service { return l }

type staticSubscriptions struct {
	sub *subscriptiondomain.Subscription
}

func (s staticSubscriptions) GetActiveSubscription(context.Context, int64) (*subscriptiondomain.Subscription, error) {
	return s.sub, nil
}

func (s staticSubscriptions) CreateSubscription(context.Context, *gorm.DB, subscriptiondomain.CreateSubscriptionRequest) (subscriptiondomain.Subscription, error) {
	return subscriptiondomain.Subscription{}, errors.New("not implemented")
}

func (s staticSubscriptions) GetByID(context.Context, snowflake.ID) (subscriptiondomain.SubscriptionView, error) {
	return subscriptiondomain.SubscriptionView{}, subscriptiondomain.ErrSubscriptionNotFound
}

func (s staticSubscriptions) ListByRecruiter(context.Context, int64) ([]subscriptiondomain.SubscriptionView, error) {
	return nil, nil
}

func (s staticSubscriptions) CountActive(context.Context) (int64, error) { return 1, nil }

func (s staticSubscriptions) WithTx(*gorm.DB) subscriptiondomain.Service { return s }

type staticPacks struct {
	pack packdomain.Pack
}

func (p staticPacks) GetPack(_ context.Context, id snowflake.ID) (packdomain.Pack, error) {
	if id != p.pack.ID {
		return packdomain.Pack{}, packdomain.ErrPackNotFound
	}
	return p.pack, nil
}

func (p staticPacks) GetByName(_ context.Context, name string) (packdomain.Pack, error) {
	if name != p.pack.Name {
		return packdomain.Pack{}, fmt.Errorf("%w: %s", packdomain.ErrPackNotFound, name)
	}
	return p.pack, nil
}

func (p staticPacks) List(context.Context) ([]packdomain.Pack, error) {
	return []packdomain.Pack{p.pack}, nil
}

func (p staticPacks) WithTx(*gorm.DB) packdomain.Service { return p }

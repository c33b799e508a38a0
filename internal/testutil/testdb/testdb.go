// Package testdb opens throwaway sqlite databases carrying the hireledger
// schema.
package testdb

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var schema = []string{
	`CREATE TABLE packs (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		price NUMERIC NOT NULL,
		profile_limit INTEGER NOT NULL,
		visibility_days INTEGER NOT NULL,
		description TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE subscriptions (
		id INTEGER PRIMARY KEY,
		recruiter_id INTEGER NOT NULL,
		pack_id INTEGER NOT NULL,
		start_at DATETIME NOT NULL,
		end_at DATETIME NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	)`,
	`CREATE TABLE credit_ledger_entries (
		id INTEGER PRIMARY KEY,
		recruiter_id INTEGER NOT NULL,
		candidate_id INTEGER NOT NULL,
		subscription_id INTEGER,
		unlocked_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_credit_ledger_recruiter_candidate ON credit_ledger_entries (recruiter_id, candidate_id)`,
	`CREATE TABLE payments (
		id INTEGER PRIMARY KEY,
		recruiter_id INTEGER NOT NULL,
		pack_id INTEGER NOT NULL,
		subscription_id INTEGER NOT NULL,
		amount NUMERIC NOT NULL,
		currency TEXT NOT NULL,
		payment_method TEXT NOT NULL,
		transaction_id TEXT NOT NULL,
		status TEXT NOT NULL,
		provider TEXT,
		paid_at DATETIME NOT NULL,
		created_at DATETIME NOT NULL
	)`,
	`CREATE UNIQUE INDEX ux_payments_transaction_id ON payments (transaction_id)`,
	`CREATE TABLE audit_logs (
		id INTEGER PRIMARY KEY,
		actor_type TEXT NOT NULL,
		actor_id TEXT,
		action TEXT NOT NULL,
		target_type TEXT NOT NULL,
		target_id TEXT,
		metadata TEXT NOT NULL,
		request_id TEXT,
		created_at DATETIME NOT NULL
	)`,
}

// Open returns a private in-memory database named after the test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	return db
}

// Node returns a snowflake node for tests.
func Node(t testing.TB) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}
	return node
}

// SeedPack inserts a pack and returns it.
func SeedPack(t testing.TB, db *gorm.DB, node *snowflake.Node, name, price string, limit, days int) packdomain.Pack {
	t.Helper()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	pack := packdomain.Pack{
		ID:             node.Generate(),
		Name:           name,
		Price:          decimal.RequireFromString(price),
		ProfileLimit:   limit,
		VisibilityDays: days,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := db.Exec(
		`INSERT INTO packs (id, name, price, profile_limit, visibility_days, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		pack.ID, pack.Name, pack.Price.StringFixed(2), pack.ProfileLimit, pack.VisibilityDays, pack.Description, pack.CreatedAt, pack.UpdatedAt,
	).Error; err != nil {
		t.Fatalf("seed pack %s: %v", name, err)
	}
	return pack
}

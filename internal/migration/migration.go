package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/hireledger/internal/audit/domain"
	ledgerdomain "github.com/smallbiznis/hireledger/internal/creditledger/domain"
	packdomain "github.com/smallbiznis/hireledger/internal/pack/domain"
	paymentdomain "github.com/smallbiznis/hireledger/internal/payment/domain"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"gorm.io/gorm"
)

// RunMigrations applies the embedded SQL migrations. The SQL targets
// postgres; other dialects go through AutoMigrate.
func RunMigrations(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return AutoMigrate(conn)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return runPostgres(sqlDB)
}

func runPostgres(db *sql.DB) error {
	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the gorm models. Database-level
// guards that only exist in the SQL migrations (check constraints, the
// ledger immutability trigger) are not reproduced.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(
		&packdomain.Pack{},
		&subscriptiondomain.Subscription{},
		&ledgerdomain.Entry{},
		&paymentdomain.Payment{},
		&auditdomain.AuditLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

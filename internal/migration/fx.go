package migration

import (
	"context"

	"github.com/smallbiznis/hireledger/internal/config"
	"github.com/smallbiznis/hireledger/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		log = log.Named("migrations")
		if cfg.DBAutoMigrate {
			if err := RunMigrations(conn); err != nil {
				return err
			}
			log.Info("schema up to date", zap.String("dialect", conn.Dialector.Name()))
		}

		if !cfg.DBSeedPacks {
			return nil
		}
		inserted, err := seed.EnsurePacks(context.Background(), conn, seed.DefaultPacks())
		if err != nil {
			return err
		}
		log.Info("pack catalog seeded", zap.Int("inserted", inserted))
		return nil
	}),
)

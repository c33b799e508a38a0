package metricsexport

import (
	"context"
	"time"

	"github.com/smallbiznis/hireledger/internal/config"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const minInterval = 15 * time.Second

var Module = fx.Module("metrics.export",
	fx.Provide(NewPusher),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, cfg config.Config, pusher Pusher, db *gorm.DB, subscriptionSvc subscriptiondomain.Service, logger *zap.Logger) {
	if pusher == nil {
		return
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.MetricsExport.Interval
	if interval < minInterval {
		interval = minInterval
	}

	collector := NewCollector(db, subscriptionSvc, logger)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			logger.Info("starting metrics export worker", zap.Duration("interval", interval))
			go func() {
				defer close(done)
				Run(ctx, collector, pusher, interval, logger)
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}

// Run pushes once immediately and then on every tick until ctx is done.
func Run(ctx context.Context, collector *Collector, pusher Pusher, interval time.Duration, logger *zap.Logger) {
	pushOnce := func() {
		collector.Refresh(ctx)
		pushCtx, cancel := context.WithTimeout(ctx, defaultPushTimeout)
		defer cancel()
		if err := pusher.Push(pushCtx, collector.Gatherer()); err != nil {
			logger.Warn("metrics export push failed", zap.Error(err))
		}
	}

	pushOnce()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pushOnce()
		case <-ctx.Done():
			logger.Info("stopping metrics export worker")
			return
		}
	}
}

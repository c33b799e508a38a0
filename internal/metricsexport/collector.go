// Package metricsexport periodically snapshots business gauges and pushes
// them to an external Prometheus-compatible store.
package metricsexport

import (
	"context"
	"runtime"

	"github.com/prometheus/client_golang/prometheus"
	subscriptiondomain "github.com/smallbiznis/hireledger/internal/subscription/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Collector owns a private registry so the pushed payload stays small and
// independent of the /metrics endpoint.
type Collector struct {
	registry        *prometheus.Registry
	db              *gorm.DB
	subscriptionSvc subscriptiondomain.Service
	log             *zap.Logger

	activeSubscriptions prometheus.Gauge
	ledgerEntries       prometheus.Gauge
	payments            prometheus.Gauge
	packs               prometheus.Gauge
	memoryBytes         prometheus.Gauge
}

func NewCollector(db *gorm.DB, subscriptionSvc subscriptiondomain.Service, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Collector{
		registry:        prometheus.NewRegistry(),
		db:              db,
		subscriptionSvc: subscriptionSvc,
		log:             log.Named("metrics.export"),
		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hireledger_active_subscriptions",
			Help: "Subscriptions currently granting quota.",
		}),
		ledgerEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hireledger_credit_ledger_entries",
			Help: "Candidate unlocks recorded in the credit ledger.",
		}),
		payments: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hireledger_payments",
			Help: "Reconciled payments.",
		}),
		packs: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hireledger_packs",
			Help: "Packs in the catalog.",
		}),
		memoryBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hireledger_process_memory_bytes",
			Help: "Memory obtained from the OS by the process.",
		}),
	}
	c.registry.MustRegister(c.activeSubscriptions, c.ledgerEntries, c.payments, c.packs, c.memoryBytes)
	return c
}

func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Refresh updates every gauge. A failing query leaves its gauge unchanged.
func (c *Collector) Refresh(ctx context.Context) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	c.memoryBytes.Set(float64(m.Sys))

	if c.subscriptionSvc != nil {
		if n, err := c.subscriptionSvc.CountActive(ctx); err == nil {
			c.activeSubscriptions.Set(float64(n))
		} else {
			c.log.Debug("count active subscriptions", zap.Error(err))
		}
	}

	if c.db == nil {
		return
	}
	for table, gauge := range map[string]prometheus.Gauge{
		"credit_ledger_entries": c.ledgerEntries,
		"payments":              c.payments,
		"packs":                 c.packs,
	} {
		var n int64
		if err := c.db.WithContext(ctx).Table(table).Count(&n).Error; err != nil {
			c.log.Debug("count rows", zap.String("table", table), zap.Error(err))
			continue
		}
		gauge.Set(float64(n))
	}
}

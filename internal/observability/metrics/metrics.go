package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const exportInterval = 10 * time.Second

type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics holds the ledger counters pushed over OTLP. A nil *Metrics records
// nothing, so services take it as an optional dependency.
type Metrics struct {
	unlockOutcomes  metric.Int64Counter
	reconciliations metric.Int64Counter
	paymentWebhooks metric.Int64Counter
	rateLimited     metric.Int64Counter
	lockWait        metric.Float64Histogram
}

// NewProvider installs the global meter provider. With export disabled the
// provider is a noop and instruments cost nothing.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}
	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(exportInterval))),
	)
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.StopHook(provider.Shutdown))
	}
	log.Info("otlp metrics enabled",
		zap.String("endpoint", cfg.ExporterEndpoint),
		zap.String("protocol", cfg.ExporterProtocol),
	)
	return provider, nil
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "hireledger"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.unlockOutcomes, "hireledger_unlock_requests_total", "Unlock requests by outcome and locking mode"},
		{&m.reconciliations, "hireledger_payment_reconciliations_total", "Payment confirmations by reconciliation outcome"},
		{&m.paymentWebhooks, "hireledger_payment_webhooks_total", "Provider webhook deliveries by result"},
		{&m.rateLimited, "hireledger_rate_limited_requests_total", "Requests rejected by the per recruiter rate limit"},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, fmt.Errorf("counter %s: %w", c.name, err)
		}
		*c.dst = counter
	}

	lockWait, err := meter.Float64Histogram("hireledger_recruiter_lock_wait_seconds",
		metric.WithDescription("Time spent waiting for the per recruiter unlock lock"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("histogram lock wait: %w", err)
	}
	m.lockWait = lockWait

	return m, nil
}

func (m *Metrics) RecordUnlockOutcome(ctx context.Context, outcome, mode string) {
	if m == nil {
		return
	}
	m.unlockOutcomes.Add(ctx, 1, labels("outcome", outcome, "mode", mode))
}

func (m *Metrics) RecordReconciliation(ctx context.Context, outcome, packName string) {
	if m == nil {
		return
	}
	m.reconciliations.Add(ctx, 1, labels("outcome", outcome, "pack", packName))
}

func (m *Metrics) RecordPaymentWebhook(ctx context.Context, provider, eventType, result string) {
	if m == nil {
		return
	}
	m.paymentWebhooks.Add(ctx, 1, labels("provider", provider, "event_type", eventType, "result", result))
}

func (m *Metrics) RecordRateLimited(ctx context.Context, endpoint string) {
	if m == nil {
		return
	}
	m.rateLimited.Add(ctx, 1, labels("endpoint", endpoint))
}

func (m *Metrics) RecordLockWait(ctx context.Context, seconds float64) {
	if m == nil {
		return
	}
	m.lockWait.Record(ctx, seconds)
}

// labels turns key/value pairs into a measurement option, dropping keys
// outside the allow list.
func labels(kv ...string) metric.MeasurementOption {
	attrs := make([]attribute.KeyValue, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		attrs = append(attrs, attribute.String(kv[i], strings.TrimSpace(kv[i+1])))
	}
	return metric.WithAttributes(FilterAttributes(attrs...)...)
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(protocol)) {
	case "http", "http/protobuf":
		var opts []otlpmetrichttp.Option
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(ctx, opts...)
	case "grpc", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(ctx, opts...)
	default:
		return nil, fmt.Errorf("unsupported otlp protocol %q", protocol)
	}
}

// Recruiter and candidate ids never become labels.
var allowedLabelKeys = map[attribute.Key]bool{
	"outcome":     true,
	"mode":        true,
	"pack":        true,
	"provider":    true,
	"event_type":  true,
	"result":      true,
	"endpoint":    true,
	"status_code": true,
}

func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := attrs[:0:0]
	for _, attr := range attrs {
		if allowedLabelKeys[attr.Key] {
			out = append(out, attr)
		}
	}
	return out
}

package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/payments/backend/internal/infrastructure/config"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

const defaultExportInterval = 60 * time.Second

// MeterProvider wraps the SDK meter provider with lifecycle management
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
	config   config.TelemetryConfig
}

// NewMeterProvider exports metrics over OTLP/gRPC. When telemetry is disabled
// meters come from the global no-op provider.
func NewMeterProvider(ctx context.Context, cfg config.TelemetryConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}

	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, err
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(defaultExportInterval),
		)),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("OpenTelemetry MeterProvider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.String("service_name", cfg.ServiceName),
	)
	return mp, nil
}

// Shutdown flushes pending metrics and stops the exporter
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		mp.logger.Error("Error shutting down meter provider", zap.Error(err))
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	mp.logger.Info("OpenTelemetry MeterProvider shutdown complete")
	return nil
}

// Meter returns a named meter, falling back to the global provider when disabled
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled reports whether metrics are exported
func (mp *MeterProvider) IsEnabled() bool {
	return mp.config.Enabled && mp.provider != nil
}

// Attribute keys shared by the payments instruments
var (
	AttrEventKind = attribute.Key("event.kind")
	AttrOutcome   = attribute.Key("outcome")
	AttrOperation = attribute.Key("processor.operation")
	AttrErrorCode = attribute.Key("processor.error_code")
	AttrHTTPRoute = attribute.Key("http.route")
	outcomeAccepted = AttrOutcome.String("accepted")
	outcomeDup      = AttrOutcome.String("duplicate")
	outcomeFailed   = AttrOutcome.String("failed")
	outcomeInvalid  = AttrOutcome.String("invalid")
)

// PaymentsMetrics holds the instruments recorded by webhook intake and the
// HTTP error mapper.
type PaymentsMetrics struct {
	webhookEvents     metric.Int64Counter
	webhookDuration   metric.Float64Histogram
	processorFailures metric.Int64Counter
}

// NewPaymentsMetrics registers the payments instruments on meter
func NewPaymentsMetrics(meter metric.Meter) (*PaymentsMetrics, error) {
	events, err := meter.Int64Counter("payments.webhook.events",
		metric.WithDescription("Webhook deliveries by event kind and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter payments.webhook.events: %w", err)
	}

	duration, err := meter.Float64Histogram("payments.webhook.duration",
		metric.WithDescription("Time spent validating and processing a webhook event"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create histogram payments.webhook.duration: %w", err)
	}

	failures, err := meter.Int64Counter("payments.processor.errors",
		metric.WithDescription("Payment processor errors returned to clients"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create counter payments.processor.errors: %w", err)
	}

	return &PaymentsMetrics{
		webhookEvents:     events,
		webhookDuration:   duration,
		processorFailures: failures,
	}, nil
}

// WebhookAccepted counts a new event that was stored
func (m *PaymentsMetrics) WebhookAccepted(ctx context.Context, kind string) {
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(AttrEventKind.String(kind), outcomeAccepted))
}

// WebhookDuplicate counts a redelivered event
func (m *PaymentsMetrics) WebhookDuplicate(ctx context.Context, kind string) {
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(AttrEventKind.String(kind), outcomeDup))
}

// WebhookInvalid counts an event whose payload did not match the processor's copy
func (m *PaymentsMetrics) WebhookInvalid(ctx context.Context, kind string) {
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(AttrEventKind.String(kind), outcomeInvalid))
}

// WebhookFailed counts an event whose processing raised an error
func (m *PaymentsMetrics) WebhookFailed(ctx context.Context, kind string) {
	m.webhookEvents.Add(ctx, 1, metric.WithAttributes(AttrEventKind.String(kind), outcomeFailed))
}

// WebhookHandled records how long an event took end to end
func (m *PaymentsMetrics) WebhookHandled(ctx context.Context, kind string, d time.Duration) {
	m.webhookDuration.Record(ctx, d.Seconds(), metric.WithAttributes(AttrEventKind.String(kind)))
}

// ProcessorError counts a processor failure surfaced on route
func (m *PaymentsMetrics) ProcessorError(ctx context.Context, route, op, code string) {
	m.processorFailures.Add(ctx, 1, metric.WithAttributes(
		AttrHTTPRoute.String(route),
		AttrOperation.String(op),
		AttrErrorCode.String(code),
	))
}

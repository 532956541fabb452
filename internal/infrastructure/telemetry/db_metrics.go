package telemetry

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// StatsSource exposes connection pool statistics
type StatsSource interface {
	Stats() sql.DBStats
}

// RegisterDBPoolMetrics reports the pool of db as observable gauges read at
// each collection.
func RegisterDBPoolMetrics(meter metric.Meter, db StatsSource) (metric.Registration, error) {
	connections, err := meter.Int64ObservableGauge("db.pool.connections",
		metric.WithDescription("Connections in the pool by state"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create db.pool.connections gauge: %w", err)
	}
	maxOpen, err := meter.Int64ObservableGauge("db.pool.connections.max",
		metric.WithDescription("Maximum open connections"),
		metric.WithUnit("{connection}"))
	if err != nil {
		return nil, fmt.Errorf("failed to create db.pool.connections.max gauge: %w", err)
	}
	waits, err := meter.Int64ObservableCounter("db.pool.wait_count",
		metric.WithDescription("Connections waited for"))
	if err != nil {
		return nil, fmt.Errorf("failed to create db.pool.wait_count counter: %w", err)
	}

	stateKey := attribute.Key("state")
	inUse := metric.WithAttributes(stateKey.String("in_use"))
	idle := metric.WithAttributes(stateKey.String("idle"))

	return meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := db.Stats()
		o.ObserveInt64(connections, int64(s.InUse), inUse)
		o.ObserveInt64(connections, int64(s.Idle), idle)
		o.ObserveInt64(maxOpen, int64(s.MaxOpenConnections))
		o.ObserveInt64(waits, s.WaitCount)
		return nil
	}, connections, maxOpen, waits)
}

package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// OTelMetrics holds OpenTelemetry instruments for object storage traffic.
// A nil *OTelMetrics records nothing.
type OTelMetrics struct {
	storageOperations metric.Int64Counter
	storageDuration   metric.Float64Histogram
	storageBytes      metric.Int64Histogram
}

// NewOTelMetrics creates instruments on the global meter provider
func NewOTelMetrics() (*OTelMetrics, error) {
	meter := otel.Meter(InstrumentationName)

	m := &OTelMetrics{}
	var err error

	m.storageOperations, err = meter.Int64Counter(
		"verity.objectstore.operations",
		metric.WithDescription("Object store operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create objectstore operations counter: %w", err)
	}

	m.storageDuration, err = meter.Float64Histogram(
		"verity.objectstore.duration",
		metric.WithDescription("Object store operation duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create objectstore duration histogram: %w", err)
	}

	m.storageBytes, err = meter.Int64Histogram(
		"verity.objectstore.bytes",
		metric.WithDescription("Bytes transferred to the object store"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create objectstore bytes histogram: %w", err)
	}

	return m, nil
}

// RecordStorageOperation records one object store call
func (m *OTelMetrics) RecordStorageOperation(ctx context.Context, operation string, duration time.Duration, bytes int64, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
	m.storageOperations.Add(ctx, 1, attrs)
	m.storageDuration.Record(ctx, duration.Seconds(), attrs)
	if bytes > 0 {
		m.storageBytes.Record(ctx, bytes, metric.WithAttributes(attribute.String("operation", operation)))
	}
}

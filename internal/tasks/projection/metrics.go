package projection

import (
	"context"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricNameProjectionSuccess = "projection_apply_success_total"
	metricNameProjectionFailure = "projection_apply_failure_total"
	metricNameProjectionLag     = "projection_event_lag_ms"
)

type projectionMetrics struct {
	success metric.Int64Counter
	failure metric.Int64Counter
	lag     metric.Float64Histogram
	helper  *log.Helper
	enabled bool
}

func newProjectionMetrics(meter metric.Meter, helper *log.Helper) *projectionMetrics {
	m := &projectionMetrics{helper: helper}
	if meter == nil {
		return m
	}

	var err error
	if m.success, err = meter.Int64Counter(metricNameProjectionSuccess,
		metric.WithDescription("Number of projection events applied successfully")); err != nil {
		helper.Warnf("projection metrics: register success counter: %v", err)
		return m
	}
	if m.failure, err = meter.Int64Counter(metricNameProjectionFailure,
		metric.WithDescription("Number of projection events failed to apply")); err != nil {
		helper.Warnf("projection metrics: register failure counter: %v", err)
	}
	if m.lag, err = meter.Float64Histogram(metricNameProjectionLag,
		metric.WithDescription("Event lag between occurred_at and processing time"), metric.WithUnit("ms")); err != nil {
		helper.Warnf("projection metrics: register lag histogram: %v", err)
	}
	m.enabled = true
	return m
}

func (m *projectionMetrics) recordSuccess(ctx context.Context, eventType string, occurredAt, now time.Time) {
	if m == nil || !m.enabled {
		return
	}
	attrs := metric.WithAttributes(attribute.String("event_type", eventType))
	if m.success != nil {
		m.success.Add(ctx, 1, attrs)
	}
	if m.lag != nil && !occurredAt.IsZero() {
		lag := now.Sub(occurredAt).Milliseconds()
		if lag < 0 {
			lag = 0
		}
		m.lag.Record(ctx, float64(lag), attrs)
	}
}

func (m *projectionMetrics) recordFailure(ctx context.Context, eventType string, err error) {
	if m == nil || !m.enabled {
		return
	}
	if m.failure != nil {
		m.failure.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
	}
	if m.helper != nil {
		m.helper.WithContext(ctx).Warnw("msg", "projection apply failed", "event_type", eventType, "error", err)
	}
}

package metrics

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Registry holds all domain-specific metrics for the risk engine
type Registry struct {
	meter metric.Meter

	// Assessment metrics
	AssessmentDuration     metric.Float64Histogram
	AssessmentCounter      metric.Int64Counter
	FallbackCounter        metric.Int64Counter
	DetectorFailureCounter metric.Int64Counter

	// Cache metrics
	CacheHitCounter  metric.Int64Counter
	CacheMissCounter metric.Int64Counter

	// Working-set gauges
	ProfileCount  metric.Int64ObservableGauge
	DeviceCount   metric.Int64ObservableGauge
	DenyListSize  metric.Int64ObservableGauge

	// State for observable metrics
	mu           sync.RWMutex
	profileCount int64
	deviceCount  int64
	denyListSize int64
}

// NewRegistry creates a new metrics registry with all risk domain metrics
func NewRegistry(meterName string) (*Registry, error) {
	meter := otel.Meter(meterName)
	r := &Registry{meter: meter}

	var err error

	r.AssessmentDuration, err = meter.Float64Histogram(
		"risk.assessment.duration",
		metric.WithDescription("Duration of risk evaluation in milliseconds"),
		metric.WithUnit("ms"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100),
	)
	if err != nil {
		return nil, err
	}

	r.AssessmentCounter, err = meter.Int64Counter(
		"risk.assessment.total",
		metric.WithDescription("Total number of risk assessments by level"),
	)
	if err != nil {
		return nil, err
	}

	r.FallbackCounter, err = meter.Int64Counter(
		"risk.assessment.fallback_total",
		metric.WithDescription("Assessments that fell back to the fail-safe result"),
	)
	if err != nil {
		return nil, err
	}

	r.DetectorFailureCounter, err = meter.Int64Counter(
		"risk.detector.failure_total",
		metric.WithDescription("Detector evaluations that failed and were skipped"),
	)
	if err != nil {
		return nil, err
	}

	r.CacheHitCounter, err = meter.Int64Counter(
		"risk.cache.hit_total",
		metric.WithDescription("Assessment cache hits"),
	)
	if err != nil {
		return nil, err
	}

	r.CacheMissCounter, err = meter.Int64Counter(
		"risk.cache.miss_total",
		metric.WithDescription("Assessment cache misses"),
	)
	if err != nil {
		return nil, err
	}

	r.ProfileCount, err = meter.Int64ObservableGauge(
		"risk.profile.count",
		metric.WithDescription("Number of tracked behavior profiles"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.profileCount)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	r.DeviceCount, err = meter.Int64ObservableGauge(
		"risk.device.count",
		metric.WithDescription("Number of known (user, device) pairs"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.deviceCount)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	r.DenyListSize, err = meter.Int64ObservableGauge(
		"risk.reputation.deny_list_size",
		metric.WithDescription("Number of IPs on the loaded deny list"),
		metric.WithInt64Callback(func(ctx context.Context, o metric.Int64Observer) error {
			r.mu.RLock()
			defer r.mu.RUnlock()
			o.Observe(r.denyListSize)
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}

// Helper methods for recording metrics with common attribute patterns.
// All are nil-safe so callers can run without a registry in tests.

// RecordAssessment records one completed assessment
func (r *Registry) RecordAssessment(ctx context.Context, durationMS float64, level string, cached bool) {
	if r == nil {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.String("level", level),
		attribute.Bool("cached", cached),
	}
	r.AssessmentDuration.Record(ctx, durationMS, metric.WithAttributes(attrs...))
	r.AssessmentCounter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordFallback records a fail-safe fallback assessment
func (r *Registry) RecordFallback(ctx context.Context) {
	if r == nil {
		return
	}
	r.FallbackCounter.Add(ctx, 1)
}

// RecordDetectorFailure records a detector evaluation failure
func (r *Registry) RecordDetectorFailure(ctx context.Context, detector string) {
	if r == nil {
		return
	}
	r.DetectorFailureCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("detector", detector),
	))
}

// RecordCacheLookup records an assessment cache lookup outcome
func (r *Registry) RecordCacheLookup(ctx context.Context, hit bool) {
	if r == nil {
		return
	}
	if hit {
		r.CacheHitCounter.Add(ctx, 1)
	} else {
		r.CacheMissCounter.Add(ctx, 1)
	}
}

// SetWorkingSetSizes updates the observable gauge state
func (r *Registry) SetWorkingSetSizes(profiles, devices int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.profileCount = int64(profiles)
	r.deviceCount = int64(devices)
}

// SetDenyListSize updates the deny-list gauge state
func (r *Registry) SetDenyListSize(size int) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.denyListSize = int64(size)
}

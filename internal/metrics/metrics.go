// Package metrics records operation outcomes (refresh, mutations, person
// lookups) for operators. The Prometheus recorder exposes counters and
// latency histograms; Nop discards everything.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Operation names reported by the directory components.
const (
	OpRefresh      = "refresh"
	OpListPage     = "list_page"
	OpCreate       = "create"
	OpUpdate       = "update"
	OpRemove       = "remove"
	OpPersonLookup = "person_lookup"
	OpPeopleSearch = "people_search"
)

// Recorder observes the outcome of a single operation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// DurationRecorder observes latency alone, for operations that cannot fail
// from the caller's point of view.
type DurationRecorder interface {
	ObserveDuration(ctx context.Context, operation string, duration time.Duration)
}

// Nop is a Recorder that discards observations.
type Nop struct{}

// Observe implements Recorder.
func (Nop) Observe(context.Context, string, bool, time.Duration) {}

// Prometheus publishes observations as staffdir_operations_total and
// staffdir_operation_duration_seconds.
type Prometheus struct {
	results   *prometheus.CounterVec
	durations *prometheus.HistogramVec
}

// NewPrometheus creates the collectors and registers them with reg. When the
// collectors are already registered (a second recorder on the same
// registry), the existing ones are reused.
func NewPrometheus(reg prometheus.Registerer) (*Prometheus, error) {
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "staffdir",
		Name:      "operations_total",
		Help:      "Directory operations by name and result.",
	}, []string{"operation", "result"})
	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "staffdir",
		Name:      "operation_duration_seconds",
		Help:      "Directory operation latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"operation"})

	var err error
	if results, err = register(reg, results); err != nil {
		return nil, err
	}
	if durations, err = register(reg, durations); err != nil {
		return nil, err
	}
	return &Prometheus{results: results, durations: durations}, nil
}

func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Observe implements Recorder.
func (p *Prometheus) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	p.results.WithLabelValues(operation, result).Inc()
	p.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// ObserveDuration implements DurationRecorder. No result is counted.
func (p *Prometheus) ObserveDuration(_ context.Context, operation string, duration time.Duration) {
	if operation == "" {
		return
	}
	p.durations.WithLabelValues(operation).Observe(duration.Seconds())
}

// Since is shorthand for observing an operation that started at start.
func Since(ctx context.Context, r Recorder, operation string, start time.Time, err error) {
	if r == nil {
		return
	}
	r.Observe(ctx, operation, err == nil, time.Since(start))
}

// Elapsed observes the latency of an operation that started at start when r
// is a DurationRecorder. Other recorders are left untouched.
func Elapsed(ctx context.Context, r Recorder, operation string, start time.Time) {
	if d, ok := r.(DurationRecorder); ok {
		d.ObserveDuration(ctx, operation, time.Since(start))
	}
}

package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheus(reg)
	require.NoError(t, err)

	ctx := context.Background()
	rec.Observe(ctx, OpRefresh, true, 10*time.Millisecond)
	rec.Observe(ctx, OpRefresh, true, 20*time.Millisecond)
	rec.Observe(ctx, OpRefresh, false, 5*time.Millisecond)
	rec.Observe(ctx, "", true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(rec.results.WithLabelValues(OpRefresh, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(rec.results.WithLabelValues(OpRefresh, "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(rec.durations))
}

func TestNewPrometheusReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPrometheus(reg)
	require.NoError(t, err)
	second, err := NewPrometheus(reg)
	require.NoError(t, err)

	first.Observe(context.Background(), OpCreate, true, time.Millisecond)
	second.Observe(context.Background(), OpCreate, true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(first.results.WithLabelValues(OpCreate, "success")))
}

type captureRecorder struct {
	ops     []string
	success []bool
}

func (c *captureRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.ops = append(c.ops, op)
	c.success = append(c.success, success)
}

func TestSince(t *testing.T) {
	rec := &captureRecorder{}
	Since(context.Background(), rec, OpRemove, time.Now(), errors.New("boom"))
	Since(context.Background(), rec, OpUpdate, time.Now(), nil)
	Since(context.Background(), nil, OpUpdate, time.Now(), nil)

	assert.Equal(t, []string{OpRemove, OpUpdate}, rec.ops)
	assert.Equal(t, []bool{false, true}, rec.success)
}

func TestNopDiscards(t *testing.T) {
	var r Recorder = Nop{}
	r.Observe(context.Background(), OpRefresh, true, time.Second)
}

func TestElapsedRecordsLatencyOnly(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheus(reg)
	require.NoError(t, err)

	Elapsed(context.Background(), rec, OpPeopleSearch, time.Now())
	Elapsed(context.Background(), rec, "", time.Now())
	assert.Equal(t, 1, testutil.CollectAndCount(rec.durations))
	assert.Equal(t, 0, testutil.CollectAndCount(rec.results))

	capture := &captureRecorder{}
	Elapsed(context.Background(), capture, OpPeopleSearch, time.Now())
	Elapsed(context.Background(), nil, OpPeopleSearch, time.Now())
	assert.Empty(t, capture.ops)
}

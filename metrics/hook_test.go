package metrics

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rustyeddy/feedrouter/feed"
	"github.com/rustyeddy/feedrouter/quality"
	"github.com/rustyeddy/feedrouter/router"
)

func newTestHook(t *testing.T) (*RouterHook, *Metrics) {
	t.Helper()
	m := NewWith(prometheus.NewRegistry())
	return NewRouterHook(m), m
}

func TestHookCountsSamples(t *testing.T) {
	h, m := newTestHook(t)

	h.OnRouted(feed.Sample{Symbol: "AAPL", Source: feed.SourcePrimary})
	h.OnRouted(feed.Sample{Symbol: "AAPL", Source: feed.SourcePrimary})
	h.OnRouted(feed.Sample{Symbol: "AAPL", Source: feed.SourceFallback})
	h.OnRejected(feed.Sample{Symbol: "AAPL", Source: feed.SourceFallback},
		quality.Violation{Code: "PRICE_NOT_POSITIVE"})

	if got := testutil.ToFloat64(m.SamplesTotal.WithLabelValues("primary", "routed")); got != 2 {
		t.Fatalf("primary routed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.SamplesTotal.WithLabelValues("fallback", "routed")); got != 1 {
		t.Fatalf("fallback routed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SamplesTotal.WithLabelValues("fallback", "rejected")); got != 1 {
		t.Fatalf("fallback rejected = %v, want 1", got)
	}
}

func TestHookTracksStateAndFallbackTime(t *testing.T) {
	h, m := newTestHook(t)

	current := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	h.now = func() time.Time { return current }

	h.OnStateChanged(router.StateStartup, router.StatePrimaryActive, "primary feed delivering")
	if got := testutil.ToFloat64(m.StateCode); got != float64(router.StatePrimaryActive) {
		t.Fatalf("state gauge = %v, want %v", got, float64(router.StatePrimaryActive))
	}

	h.OnStateChanged(router.StatePrimaryActive, router.StateFallbackActive, "primary failed")
	current = current.Add(30 * time.Second)
	h.OnStateChanged(router.StateFallbackActive, router.StatePrimaryActive, "primary healthy again")

	if got := testutil.ToFloat64(m.FallbackActivations); got != 1 {
		t.Fatalf("activations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FallbackSeconds); got != 30 {
		t.Fatalf("fallback seconds = %v, want 30", got)
	}
	if got := testutil.ToFloat64(m.StateTransitions.WithLabelValues("FALLBACK_ACTIVE")); got != 1 {
		t.Fatalf("transitions to fallback = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StateCode); got != float64(router.StatePrimaryActive) {
		t.Fatalf("state gauge = %v, want primary", got)
	}
}

func TestHookObservesAnomalies(t *testing.T) {
	h, m := newTestHook(t)

	h.OnAnomaly(quality.Anomaly{Symbol: "AAPL", PrevPrice: 150, Price: 160, DeltaPct: 10.0 / 150})
	h.OnAnomaly(quality.Anomaly{Symbol: "BTC-USD", PrevPrice: 50000, Price: 46000, DeltaPct: -4000.0 / 50000})

	if got := testutil.ToFloat64(m.AnomaliesTotal); got != 2 {
		t.Fatalf("anomalies = %v, want 2", got)
	}
	if got := testutil.CollectAndCount(m.AnomalyDeltaPct); got != 1 {
		t.Fatalf("histogram series = %d, want 1", got)
	}
}

func TestHookWiredToRouter(t *testing.T) {
	h, m := newTestHook(t)

	r := router.New(router.Options{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	r.AddRoutedListener(h)
	r.AddRejectListener(h)
	r.AddAnomalyListener(h)
	r.AddStateListener(h)

	r.SubmitPrimary(feed.Sample{Symbol: "AAPL", Price: 150, Volume: 100, Time: time.Now()})
	r.SubmitPrimary(feed.Sample{Symbol: "AAPL", Price: -1, Volume: 100, Time: time.Now()})
	r.ForceFailover("drill")

	if got := testutil.ToFloat64(m.SamplesTotal.WithLabelValues("primary", "routed")); got != 1 {
		t.Fatalf("routed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.SamplesTotal.WithLabelValues("primary", "rejected")); got != 1 {
		t.Fatalf("rejected = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.FallbackActivations); got != 1 {
		t.Fatalf("activations = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.StateCode); got != float64(router.StateFallbackActive) {
		t.Fatalf("state gauge = %v, want fallback", got)
	}
}

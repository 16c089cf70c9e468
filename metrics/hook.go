package metrics

import (
	"sync"
	"time"

	"github.com/rustyeddy/feedrouter/feed"
	"github.com/rustyeddy/feedrouter/quality"
	"github.com/rustyeddy/feedrouter/router"
)

// RouterHook updates the metrics from router notifications. Fallback seconds
// are added when FALLBACK_ACTIVE is left; during a live incident the status
// endpoint carries the in-progress figure.
type RouterHook struct {
	m *Metrics

	mu        sync.Mutex
	enteredAt time.Time
	now       func() time.Time
}

func NewRouterHook(m *Metrics) *RouterHook {
	return &RouterHook{m: m, now: time.Now}
}

func (h *RouterHook) OnRouted(s feed.Sample) {
	h.m.SamplesTotal.WithLabelValues(s.Source.String(), "routed").Inc()
}

func (h *RouterHook) OnRejected(s feed.Sample, v quality.Violation) {
	h.m.SamplesTotal.WithLabelValues(s.Source.String(), "rejected").Inc()
}

func (h *RouterHook) OnAnomaly(a quality.Anomaly) {
	h.m.AnomaliesTotal.Inc()

	pct := a.DeltaPct
	if pct < 0 {
		pct = -pct
	}
	h.m.AnomalyDeltaPct.Observe(100 * pct)
}

func (h *RouterHook) OnStateChanged(from, to router.State, reason string) {
	h.m.StateCode.Set(float64(to))
	h.m.StateTransitions.WithLabelValues(to.String()).Inc()

	h.mu.Lock()
	now := h.now()
	if to == router.StateFallbackActive {
		h.m.FallbackActivations.Inc()
		h.enteredAt = now
	} else if from == router.StateFallbackActive && !h.enteredAt.IsZero() {
		h.m.FallbackSeconds.Add(now.Sub(h.enteredAt).Seconds())
		h.enteredAt = time.Time{}
	}
	h.mu.Unlock()
}

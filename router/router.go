package router

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/feedrouter/feed"
	"github.com/rustyeddy/feedrouter/quality"
)

// ProviderStatus is the health record the router keeps per provider. One
// record per provider lives for the router's lifetime and is mutated in
// place; Status returns copies.
type ProviderStatus struct {
	Healthy             bool
	LastMessageAt       time.Time // zero until the first accepted sample
	ConsecutiveFailures int
	LastError           string
	MessagesReceived    uint64
}

// Snapshot is a point-in-time copy of the router's bookkeeping.
type Snapshot struct {
	State            State
	LastTransitionAt time.Time
	Reason           string

	Primary  ProviderStatus
	Fallback ProviderStatus

	FallbackActivations int
	LastFallbackAt      time.Time
	FallbackDuration    time.Duration
	UptimePercent       float64
}

// StateListener is notified once per actual state transition. Requests to
// enter the current state are no-ops and do not notify.
type StateListener interface {
	OnStateChanged(from, to State, reason string)
}

// RejectListener is notified when a sample fails validation. Rejections are
// expected and never affect provider health.
type RejectListener interface {
	OnRejected(s feed.Sample, v quality.Violation)
}

// AnomalyListener is notified when a routed sample moves hard against the
// previous routed price for its symbol.
type AnomalyListener interface {
	OnAnomaly(a quality.Anomaly)
}

const (
	DefaultFailureThreshold = 3
	DefaultGracePeriod      = 10 * time.Second
	DefaultAnomalyWarnPct   = 0.05
)

// Options tunes a Router. Zero values fall back to the defaults above.
type Options struct {
	// FailureThreshold is the number of consecutive unhealthy notifications
	// before a provider is considered down.
	FailureThreshold int

	// GracePeriod is how fresh the primary's last message must be before the
	// router trusts a recovery enough to fail back.
	GracePeriod time.Duration

	Limits         quality.Limits
	AnomalyWarnPct float64

	Logger *slog.Logger

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Router decides which provider's samples are authoritative. Provider
// adapters push into it concurrently; every entry point completes in bounded
// time and never lets a failure escape to the calling adapter.
type Router struct {
	mu sync.Mutex

	state       State
	stateSince  time.Time
	stateReason string

	primary  ProviderStatus
	fallback ProviderStatus

	failureThreshold int
	gracePeriod      time.Duration
	limits           quality.Limits

	fallbackActivations int
	lastFallbackAt      time.Time
	fallbackSince       time.Time // nonzero only while in StateFallbackActive
	fallbackTotal       time.Duration

	startedAt time.Time

	routedListeners  []feed.RoutedListener
	stateListeners   []StateListener
	rejectListeners  []RejectListener
	anomalyListeners []AnomalyListener

	anomalies *quality.Monitor
	log       *slog.Logger
	now       func() time.Time
}

func New(opts Options) *Router {
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = DefaultFailureThreshold
	}
	if opts.GracePeriod <= 0 {
		opts.GracePeriod = DefaultGracePeriod
	}
	if opts.Limits == (quality.Limits{}) {
		opts.Limits = quality.DefaultLimits()
	}
	if opts.AnomalyWarnPct <= 0 {
		opts.AnomalyWarnPct = DefaultAnomalyWarnPct
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Router{
		state:            StateStartup,
		failureThreshold: opts.FailureThreshold,
		gracePeriod:      opts.GracePeriod,
		limits:           opts.Limits,
		startedAt:        opts.Now(),
		anomalies:        quality.NewMonitor(opts.AnomalyWarnPct),
		log:              opts.Logger,
		now:              opts.Now,
	}
}

func (r *Router) AddRoutedListener(l feed.RoutedListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routedListeners = append(r.routedListeners, l)
}

func (r *Router) AddStateListener(l StateListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stateListeners = append(r.stateListeners, l)
}

func (r *Router) AddRejectListener(l RejectListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rejectListeners = append(r.rejectListeners, l)
}

func (r *Router) AddAnomalyListener(l AnomalyListener) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.anomalyListeners = append(r.anomalyListeners, l)
}

// SubmitPrimary pushes a sample from the primary provider.
func (r *Router) SubmitPrimary(s feed.Sample) { r.submit(feed.SourcePrimary, s) }

// SubmitFallback pushes a sample from the fallback provider.
func (r *Router) SubmitFallback(s feed.Sample) { r.submit(feed.SourceFallback, s) }

func (r *Router) submit(src feed.Source, s feed.Sample) {
	defer r.absorb("submit")

	s.Source = src
	now := r.now()

	if d := quality.Check(r.limits, s, now); !d.Accepted {
		v := d.Violations[0]
		r.log.Warn("sample rejected",
			"source", src.String(), "symbol", s.Symbol,
			"code", v.Code, "reason", v.Msg)

		r.mu.Lock()
		rejectLs := r.rejectListeners
		r.mu.Unlock()

		for _, l := range rejectLs {
			l.OnRejected(s, v)
		}
		return
	}

	r.mu.Lock()

	p := r.providerLocked(src)
	p.Healthy = true
	p.ConsecutiveFailures = 0
	p.LastMessageAt = now
	p.MessagesReceived++
	p.LastError = ""

	// The gate uses the state the sample arrived under, so a sample that
	// itself triggers a transition is never forwarded; the next one is.
	entry := r.state

	var ev transition
	var changed bool
	switch {
	case r.state == StateStartup && src == feed.SourcePrimary:
		ev, changed = r.transitionLocked(StatePrimaryActive, "primary feed delivering", now)
	case r.state == StateStartup && src == feed.SourceFallback && !r.primary.Healthy:
		ev, changed = r.transitionLocked(StateFallbackActive, "fallback feed delivering before primary", now)
	case r.state == StateFallbackActive && src == feed.SourcePrimary:
		if r.primaryRecoveredLocked(now) {
			ev, changed = r.transitionLocked(StatePrimaryActive, "primary feed recovered", now)
		}
	}

	routed := forwardable(entry, src)
	routedLs := r.routedListeners
	stateLs := r.stateListeners
	anomalyLs := r.anomalyListeners

	r.mu.Unlock()

	if changed {
		r.logTransition(ev)
		for _, l := range stateLs {
			l.OnStateChanged(ev.from, ev.to, ev.reason)
		}
	}

	if !routed {
		return
	}

	if a, warned := r.anomalies.Observe(s); warned {
		r.log.Warn("routed price anomaly",
			"symbol", a.Symbol, "prev", a.PrevPrice, "price", a.Price,
			"delta_pct", 100*a.DeltaPct, "source", src.String())
		for _, l := range anomalyLs {
			l.OnAnomaly(a)
		}
	}

	for _, l := range routedLs {
		l.OnRouted(s)
	}
}

// SetPrimaryHealth pushes an explicit health signal for the primary
// provider, typically from an external monitor.
func (r *Router) SetPrimaryHealth(healthy bool, reason string) {
	r.setHealth(feed.SourcePrimary, healthy, reason)
}

// SetFallbackHealth pushes an explicit health signal for the fallback
// provider.
func (r *Router) SetFallbackHealth(healthy bool, reason string) {
	r.setHealth(feed.SourceFallback, healthy, reason)
}

func (r *Router) setHealth(src feed.Source, healthy bool, reason string) {
	defer r.absorb("set health")

	now := r.now()

	r.mu.Lock()

	p := r.providerLocked(src)

	var ev transition
	var changed bool

	if healthy {
		p.Healthy = true
		p.ConsecutiveFailures = 0
		p.LastError = ""

		switch {
		case src == feed.SourcePrimary && r.state == StateFallbackActive:
			if r.primaryRecoveredLocked(now) {
				ev, changed = r.transitionLocked(StatePrimaryActive, "primary healthy again", now)
			}
		case r.state == StateBothUnavailable:
			// Primary preferred when both end up healthy at once.
			if r.primary.Healthy {
				ev, changed = r.transitionLocked(StatePrimaryActive, "primary healthy again", now)
			} else {
				ev, changed = r.transitionLocked(StateFallbackActive, "fallback healthy, primary still down", now)
			}
		}
	} else {
		if reason == "" {
			reason = "unhealthy notification"
		}
		p.Healthy = false
		p.ConsecutiveFailures++
		p.LastError = reason

		switch src {
		case feed.SourcePrimary:
			if r.state == StatePrimaryActive && p.ConsecutiveFailures >= r.failureThreshold {
				ev, changed = r.transitionLocked(StateFallbackActive,
					fmt.Sprintf("primary failed %d consecutive times: %s", p.ConsecutiveFailures, reason), now)
			}
		case feed.SourceFallback:
			if (r.state == StatePrimaryActive || r.state == StateFallbackActive) &&
				!r.primary.Healthy && p.ConsecutiveFailures >= r.failureThreshold {
				ev, changed = r.transitionLocked(StateBothUnavailable,
					fmt.Sprintf("both providers failing: %s", reason), now)
			}
		}
	}

	stateLs := r.stateListeners
	r.mu.Unlock()

	if changed {
		r.logTransition(ev)
		for _, l := range stateLs {
			l.OnStateChanged(ev.from, ev.to, ev.reason)
		}
	}
}

// ForceFailover drives the router onto the fallback feed regardless of
// provider health and reports whether the state actually changed. Forcing
// while already on fallback is a no-op.
func (r *Router) ForceFailover(reason string) (changed bool) {
	defer r.absorb("force failover")

	if reason == "" {
		reason = "operator failover"
	}
	now := r.now()

	r.mu.Lock()
	var ev transition
	ev, changed = r.transitionLocked(StateFallbackActive, reason, now)
	stateLs := r.stateListeners
	r.mu.Unlock()

	if changed {
		r.logTransition(ev)
		for _, l := range stateLs {
			l.OnStateChanged(ev.from, ev.to, ev.reason)
		}
	}
	return changed
}

// State returns the current routing state.
func (r *Router) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Status assembles a point-in-time snapshot. The only computation beyond
// copying is folding an in-progress fallback interval into the duration and
// uptime figures.
func (r *Router) Status() Snapshot {
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()

	fallbackTotal := r.fallbackTotal
	if r.state == StateFallbackActive && !r.fallbackSince.IsZero() {
		fallbackTotal += now.Sub(r.fallbackSince)
	}

	return Snapshot{
		State:            r.state,
		LastTransitionAt: r.stateSince,
		Reason:           r.stateReason,

		Primary:  r.primary,
		Fallback: r.fallback,

		FallbackActivations: r.fallbackActivations,
		LastFallbackAt:      r.lastFallbackAt,
		FallbackDuration:    fallbackTotal,
		UptimePercent:       uptimePercent(now.Sub(r.startedAt), fallbackTotal),
	}
}

type transition struct {
	from   State
	to     State
	reason string
}

// transitionLocked moves the state machine and returns the event to emit
// once the lock is released. Requests for the current state are no-ops: no
// event, no timestamp update.
func (r *Router) transitionLocked(next State, reason string, now time.Time) (transition, bool) {
	if next == r.state {
		return transition{}, false
	}

	// Fold a finished fallback interval into the running total.
	if r.state == StateFallbackActive && !r.fallbackSince.IsZero() {
		r.fallbackTotal += now.Sub(r.fallbackSince)
		r.fallbackSince = time.Time{}
	}
	if next == StateFallbackActive {
		r.fallbackActivations++
		r.lastFallbackAt = now
		r.fallbackSince = now
	}

	ev := transition{from: r.state, to: next, reason: reason}
	r.state = next
	r.stateSince = now
	r.stateReason = reason
	return ev, true
}

func (r *Router) providerLocked(src feed.Source) *ProviderStatus {
	if src == feed.SourcePrimary {
		return &r.primary
	}
	return &r.fallback
}

// primaryRecoveredLocked reports whether the primary is trustworthy enough
// to fail back to: healthy, and delivering within the grace period.
func (r *Router) primaryRecoveredLocked(now time.Time) bool {
	if !r.primary.Healthy || r.primary.LastMessageAt.IsZero() {
		return false
	}
	return now.Sub(r.primary.LastMessageAt) <= r.gracePeriod
}

// forwardable is the routing gate: whether an accepted sample from src is
// forwarded downstream, given the state it arrived under.
func forwardable(state State, src feed.Source) bool {
	switch state {
	case StateStartup, StatePrimaryActive:
		return src == feed.SourcePrimary
	case StateFallbackActive:
		return src == feed.SourceFallback
	case StateBothUnavailable:
		return false
	default:
		return false
	}
}

// uptimePercent is the share of wall-clock time spent off the fallback feed.
// Zero elapsed time counts as fully up.
func uptimePercent(total, fallback time.Duration) float64 {
	if total <= 0 {
		return 100
	}
	pct := float64(total-fallback) / float64(total) * 100
	if pct < 0 {
		return 0
	}
	return pct
}

func (r *Router) logTransition(ev transition) {
	r.log.Info("routing state changed",
		"from", ev.from.String(), "to", ev.to.String(), "reason", ev.reason)
}

// absorb keeps a panicking listener or an unexpected internal fault from
// crashing the calling adapter's goroutine. Entry points always return
// normally; locked sections only assign fields, so a fault cannot leave a
// transition half applied.
func (r *Router) absorb(op string) {
	if rec := recover(); rec != nil {
		r.log.Error("recovered panic in router entry point", "op", op, "panic", rec)
	}
}

package router

import (
	"context"
	"fmt"
	"time"
)

// WatchLiveness periodically synthesizes unhealthy notifications for
// providers that have gone silent. Transitions stay event driven; this loop
// only stands in for monitors that signal failure by not delivering at all.
// It blocks until ctx is cancelled and does nothing when interval is zero.
func (r *Router) WatchLiveness(ctx context.Context, interval, staleAfter time.Duration) {
	if interval <= 0 {
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.checkLiveness(staleAfter)
		}
	}
}

// checkLiveness flags providers whose last sample is older than staleAfter.
// Providers that never delivered are left alone; silence before the first
// sample is indistinguishable from a slow start.
func (r *Router) checkLiveness(staleAfter time.Duration) {
	now := r.now()

	r.mu.Lock()
	primaryStale := stale(r.primary, now, staleAfter)
	fallbackStale := stale(r.fallback, now, staleAfter)
	r.mu.Unlock()

	reason := fmt.Sprintf("no data for over %s", staleAfter)
	if primaryStale {
		r.SetPrimaryHealth(false, reason)
	}
	if fallbackStale {
		r.SetFallbackHealth(false, reason)
	}
}

func stale(p ProviderStatus, now time.Time, staleAfter time.Duration) bool {
	return p.MessagesReceived > 0 && now.Sub(p.LastMessageAt) > staleAfter
}

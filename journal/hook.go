package journal

import (
	"log/slog"
	"sync"
	"time"

	"github.com/rustyeddy/feedrouter/feed"
	"github.com/rustyeddy/feedrouter/pkg/id"
	"github.com/rustyeddy/feedrouter/quality"
	"github.com/rustyeddy/feedrouter/router"
)

// RouterHook persists state changes and rejections as they happen. Journal
// errors are logged and dropped so persistence trouble never feeds back into
// routing decisions.
type RouterHook struct {
	mu          sync.Mutex
	j           Journal
	log         *slog.Logger
	activations int
	now         func() time.Time
}

func NewRouterHook(j Journal, log *slog.Logger) *RouterHook {
	if log == nil {
		log = slog.Default()
	}
	return &RouterHook{j: j, log: log, now: time.Now}
}

func (h *RouterHook) OnStateChanged(from, to router.State, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if to == router.StateFallbackActive {
		h.activations++
	}

	rec := TransitionRecord{
		ID:          id.New(),
		At:          h.now(),
		From:        from.String(),
		To:          to.String(),
		Reason:      reason,
		Activations: h.activations,
	}
	if err := h.j.RecordTransition(rec); err != nil {
		h.log.Error("journal transition failed", "error", err)
	}
}

func (h *RouterHook) OnRejected(s feed.Sample, v quality.Violation) {
	h.mu.Lock()
	defer h.mu.Unlock()

	rec := RejectionRecord{
		ID:     id.New(),
		At:     h.now(),
		Source: s.Source.String(),
		Symbol: s.Symbol,
		Code:   v.Code,
		Detail: v.Msg,
		Price:  s.Price,
	}
	if err := h.j.RecordRejection(rec); err != nil {
		h.log.Error("journal rejection failed", "error", err)
	}
}

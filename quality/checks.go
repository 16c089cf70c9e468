package quality

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/feedrouter/feed"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Accepted   bool
	Violations []Violation

	// MovePct is the absolute move against PrevClose when one was supplied,
	// as a fraction (0.20 = 20%). Populated even when the sample passes.
	MovePct float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Accepted = false
}

// Limits bounds what a single sample is allowed to look like.
type Limits struct {
	// MaxClockSkew rejects samples stamped too far in the future.
	MaxClockSkew time.Duration

	// MaxMovePct rejects a sample implying an implausible single-step move
	// from the previous close. Fraction, not percent: 0.20 = 20%.
	MaxMovePct float64
}

func DefaultLimits() Limits {
	return Limits{
		MaxClockSkew: 5 * time.Minute,
		MaxMovePct:   0.20,
	}
}

// Check applies the sanity rules to a single sample. The first failing rule
// wins. Check never mutates shared state; a rejected sample must not reach
// routing or health bookkeeping.
func Check(lim Limits, s feed.Sample, now time.Time) Decision {
	d := Decision{Accepted: true}

	if s.Price <= 0 {
		d.add("PRICE_NOT_POSITIVE",
			fmt.Sprintf("price %.6f must be positive", s.Price))
		return d
	}
	if s.Volume < 0 {
		d.add("VOLUME_NEGATIVE",
			fmt.Sprintf("volume %.2f must not be negative", s.Volume))
		return d
	}
	if s.Time.After(now.Add(lim.MaxClockSkew)) {
		d.add("TIMESTAMP_AHEAD",
			fmt.Sprintf("timestamp %s is more than %s ahead of now",
				s.Time.Format(time.RFC3339), lim.MaxClockSkew))
		return d
	}

	// Circuit breaker: only when the feed told us the previous close.
	if s.PrevClose > 0 {
		d.MovePct = math.Abs(s.Price-s.PrevClose) / s.PrevClose
		if d.MovePct > lim.MaxMovePct {
			d.add("CIRCUIT_BREAKER",
				fmt.Sprintf("move %.2f%% from previous close %.4f exceeds %.2f%%",
					100*d.MovePct, s.PrevClose, 100*lim.MaxMovePct))
			return d
		}
	}

	return d
}

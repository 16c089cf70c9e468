package sim

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"github.com/rustyeddy/feedrouter/feed"
)

// Core is the submit surface the simulator drives. *router.Router satisfies
// it.
type Core interface {
	SubmitPrimary(s feed.Sample)
	SubmitFallback(s feed.Sample)
	SetPrimaryHealth(healthy bool, reason string)
}

type Options struct {
	Symbols  []string
	Interval time.Duration

	// OutageAfter schedules a scripted primary outage that long after start.
	// Zero disables the script. During the outage the primary goes silent and
	// an unhealthy notification is pushed every tick, the way an upstream
	// monitor would report it.
	OutageAfter time.Duration
	OutageFor   time.Duration

	Logger *slog.Logger
}

var defaultBases = map[string]float64{
	"AAPL":    150,
	"MSFT":    300,
	"THYAO":   25,
	"BTC-USD": 50000,
}

// Feed generates synthetic samples for both providers. Prices follow a ±2%
// random walk per tick around each symbol's base price, with a slight offset
// between the providers.
type Feed struct {
	core     Core
	symbols  []string
	bases    map[string]float64
	interval time.Duration

	outageAfter time.Duration
	outageFor   time.Duration

	log *slog.Logger
}

func New(core Core, opts Options) *Feed {
	if len(opts.Symbols) == 0 {
		opts.Symbols = []string{"AAPL", "MSFT", "THYAO", "BTC-USD"}
	}
	if opts.Interval <= 0 {
		opts.Interval = 250 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	bases := make(map[string]float64, len(opts.Symbols))
	for _, sym := range opts.Symbols {
		if base, ok := defaultBases[sym]; ok {
			bases[sym] = base
		} else {
			bases[sym] = 100
		}
	}

	return &Feed{
		core:        core,
		symbols:     opts.Symbols,
		bases:       bases,
		interval:    opts.Interval,
		outageAfter: opts.OutageAfter,
		outageFor:   opts.OutageFor,
		log:         opts.Logger.With("component", "sim"),
	}
}

// Run drives both providers until the context is cancelled.
func (f *Feed) Run(ctx context.Context) {
	f.log.Info("simulated feeds starting",
		"symbols", f.symbols, "interval", f.interval, "outage_after", f.outageAfter)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		f.runPrimary(ctx)
	}()
	go func() {
		defer wg.Done()
		f.runFallback(ctx)
	}()
	wg.Wait()

	f.log.Info("simulated feeds stopped")
}

func (f *Feed) runPrimary(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	prices := f.startingPrices(0)
	start := time.Now()
	announced := false
	recovered := false

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			elapsed := now.Sub(start)
			if f.inOutage(elapsed) {
				if !announced {
					f.log.Warn("scripted primary outage begins", "for", f.outageFor)
					announced = true
				}
				f.core.SetPrimaryHealth(false, "scripted outage")
				continue
			}
			if announced && !recovered {
				f.log.Info("scripted primary outage over")
				f.core.SetPrimaryHealth(true, "scripted outage over")
				recovered = true
			}
			f.push(prices, feed.SourcePrimary, now)
		}
	}
}

func (f *Feed) runFallback(ctx context.Context) {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	// A small constant offset keeps the two feeds from being identical.
	prices := f.startingPrices(0.001)

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			f.push(prices, feed.SourceFallback, now)
		}
	}
}

func (f *Feed) inOutage(elapsed time.Duration) bool {
	return f.outageAfter > 0 &&
		elapsed >= f.outageAfter &&
		elapsed < f.outageAfter+f.outageFor
}

func (f *Feed) startingPrices(offset float64) map[string]float64 {
	prices := make(map[string]float64, len(f.symbols))
	for _, sym := range f.symbols {
		prices[sym] = f.bases[sym] * (1 + offset)
	}
	return prices
}

func (f *Feed) push(prices map[string]float64, src feed.Source, now time.Time) {
	for _, sym := range f.symbols {
		base := f.bases[sym]
		next := walk(prices[sym], base)
		prices[sym] = next

		s := feed.Sample{
			Symbol:    sym,
			Price:     next,
			Volume:    500 + rand.Float64()*1500,
			Time:      now,
			PrevClose: base,
		}
		if src == feed.SourcePrimary {
			f.core.SubmitPrimary(s)
		} else {
			f.core.SubmitFallback(s)
		}
	}
}

// walk steps the price by up to ±2%. The result stays within ±10% of the
// base so a synthetic tick never looks like a circuit breaker move.
func walk(price, base float64) float64 {
	change := (rand.Float64() - 0.5) * 0.04
	next := price * (1 + change)

	if lo := base * 0.9; next < lo {
		next = lo
	}
	if hi := base * 1.1; next > hi {
		next = hi
	}
	return next
}

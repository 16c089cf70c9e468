package sim

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rustyeddy/feedrouter/feed"
)

// primaryEvent is one entry in the ordered record of primary activity.
type primaryEvent struct {
	kind   string // "sample", "down", "up"
	sample feed.Sample
}

type recordingCore struct {
	mu       sync.Mutex
	primary  []primaryEvent
	fallback []feed.Sample
}

func (c *recordingCore) SubmitPrimary(s feed.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.primary = append(c.primary, primaryEvent{kind: "sample", sample: s})
}

func (c *recordingCore) SubmitFallback(s feed.Sample) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallback = append(c.fallback, s)
}

func (c *recordingCore) SetPrimaryHealth(healthy bool, reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	kind := "down"
	if healthy {
		kind = "up"
	}
	c.primary = append(c.primary, primaryEvent{kind: kind})
}

func (c *recordingCore) primaryEvents() []primaryEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]primaryEvent, len(c.primary))
	copy(out, c.primary)
	return out
}

func (c *recordingCore) fallbackSamples() []feed.Sample {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]feed.Sample, len(c.fallback))
	copy(out, c.fallback)
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestFeedDrivesBothProviders(t *testing.T) {
	core := &recordingCore{}
	f := New(core, Options{
		Symbols:  []string{"AAPL", "BTC-USD"},
		Interval: time.Millisecond,
		Logger:   quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx)
	}()

	waitFor(t, "samples from both providers", func() bool {
		return len(core.primaryEvents()) >= 6 && len(core.fallbackSamples()) >= 6
	})
	cancel()
	<-done

	for _, ev := range core.primaryEvents() {
		if ev.kind != "sample" {
			t.Fatalf("unexpected health event %q without an outage script", ev.kind)
		}
		s := ev.sample
		if s.Symbol != "AAPL" && s.Symbol != "BTC-USD" {
			t.Fatalf("unexpected symbol %q", s.Symbol)
		}
		if s.Price <= 0 || s.Volume < 0 || s.PrevClose <= 0 || s.Time.IsZero() {
			t.Fatalf("invalid sample generated: %+v", s)
		}
	}
	for _, s := range core.fallbackSamples() {
		if s.Price <= 0 || s.PrevClose <= 0 {
			t.Fatalf("invalid fallback sample generated: %+v", s)
		}
	}
}

func TestFeedScriptedOutage(t *testing.T) {
	core := &recordingCore{}
	f := New(core, Options{
		Symbols:     []string{"AAPL"},
		Interval:    time.Millisecond,
		OutageAfter: 20 * time.Millisecond,
		OutageFor:   40 * time.Millisecond,
		Logger:      quietLogger(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.Run(ctx)
	}()

	// Wait until at least one sample arrives after the recovery notice.
	waitFor(t, "recovery followed by fresh samples", func() bool {
		events := core.primaryEvents()
		for i, ev := range events {
			if ev.kind == "up" {
				return len(events) > i+1
			}
		}
		return false
	})
	cancel()
	<-done

	events := core.primaryEvents()
	firstDown, up := -1, -1
	downs := 0
	for i, ev := range events {
		switch ev.kind {
		case "down":
			downs++
			if firstDown == -1 {
				firstDown = i
			}
		case "up":
			if up != -1 {
				t.Fatal("more than one recovery notification")
			}
			up = i
		}
	}

	if firstDown == -1 || downs < 3 {
		t.Fatalf("got %d unhealthy notifications, want at least 3", downs)
	}
	if up < firstDown {
		t.Fatalf("recovery at %d precedes first outage event at %d", up, firstDown)
	}
	for _, ev := range events[firstDown:up] {
		if ev.kind == "sample" {
			t.Fatal("primary delivered a sample during the scripted outage")
		}
	}
	if events[len(events)-1].kind != "sample" {
		t.Fatal("primary did not resume after the outage")
	}
}

func TestWalkStaysInsideBand(t *testing.T) {
	const base = 150.0
	price := base
	for i := 0; i < 10000; i++ {
		price = walk(price, base)
		if price < base*0.9 || price > base*1.1 {
			t.Fatalf("walk escaped the band at step %d: %v", i, price)
		}
	}
}

func TestFeedDefaults(t *testing.T) {
	f := New(&recordingCore{}, Options{Logger: quietLogger()})

	if len(f.symbols) != 4 {
		t.Fatalf("default symbols = %v", f.symbols)
	}
	if f.interval != 250*time.Millisecond {
		t.Fatalf("default interval = %v", f.interval)
	}
	if got := f.bases["BTC-USD"]; got != 50000 {
		t.Fatalf("BTC-USD base = %v, want 50000", got)
	}

	f = New(&recordingCore{}, Options{Symbols: []string{"NVDA"}, Logger: quietLogger()})
	if got := f.bases["NVDA"]; got != 100 {
		t.Fatalf("unknown symbol base = %v, want 100", got)
	}
}

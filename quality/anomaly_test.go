package quality

import (
	"math"
	"testing"

	"github.com/rustyeddy/feedrouter/feed"
)

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func priced(symbol string, price float64) feed.Sample {
	return feed.Sample{Symbol: symbol, Price: price, Volume: 100}
}

func TestMonitorFirstSampleNeverWarns(t *testing.T) {
	m := NewMonitor(0.05)

	if _, warned := m.Observe(priced("AAPL", 150)); warned {
		t.Fatal("first observation warned with no prior price")
	}
	if p, ok := m.LastPrice("AAPL"); !ok || p != 150 {
		t.Fatalf("last price not stored: %v %v", p, ok)
	}
}

func TestMonitorWarnsAboveThreshold(t *testing.T) {
	m := NewMonitor(0.05)
	m.Observe(priced("AAPL", 150))

	a, warned := m.Observe(priced("AAPL", 160))
	if !warned {
		t.Fatal("6.7% move did not warn")
	}
	if a.Symbol != "AAPL" || a.PrevPrice != 150 || a.Price != 160 {
		t.Fatalf("anomaly fields: %+v", a)
	}
	if !approxEqual(a.DeltaPct, 10.0/150.0, 1e-9) {
		t.Fatalf("delta pct: got %.6f", a.DeltaPct)
	}

	// Stored price moved forward even though it warned.
	if p, _ := m.LastPrice("AAPL"); p != 160 {
		t.Fatalf("stored price after warn: got %.2f want 160", p)
	}
}

func TestMonitorQuietBelowThreshold(t *testing.T) {
	m := NewMonitor(0.05)
	m.Observe(priced("AAPL", 150))

	if _, warned := m.Observe(priced("AAPL", 151)); warned {
		t.Fatal("0.7% move warned")
	}
}

func TestMonitorWarnsOnDrop(t *testing.T) {
	m := NewMonitor(0.05)
	m.Observe(priced("BTC-USD", 50000))

	a, warned := m.Observe(priced("BTC-USD", 46000))
	if !warned {
		t.Fatal("-8% move did not warn")
	}
	if a.DeltaPct >= 0 {
		t.Fatalf("drop should carry negative delta, got %.4f", a.DeltaPct)
	}
}

func TestMonitorTracksSymbolsIndependently(t *testing.T) {
	m := NewMonitor(0.05)
	m.Observe(priced("AAPL", 150))
	m.Observe(priced("MSFT", 300))

	if _, warned := m.Observe(priced("AAPL", 151)); warned {
		t.Fatal("AAPL compared against the wrong symbol")
	}
	if _, warned := m.Observe(priced("MSFT", 330)); !warned {
		t.Fatal("10% MSFT move did not warn")
	}
}

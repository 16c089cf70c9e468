package quality

import (
	"math"
	"sync"

	"github.com/rustyeddy/feedrouter/feed"
)

// Anomaly flags a large move between consecutively routed prices for the
// same symbol, typically seen when routing switches source. Anomalies warn,
// they never block routing.
type Anomaly struct {
	Symbol    string
	PrevPrice float64
	Price     float64
	DeltaPct  float64 // signed fraction, 0.05 = +5%
}

// Monitor keeps the last routed price per symbol. It carries its own lock so
// the routing hot path does not serialize on it.
type Monitor struct {
	mu      sync.Mutex
	warnPct float64
	last    map[string]float64
}

func NewMonitor(warnPct float64) *Monitor {
	return &Monitor{
		warnPct: warnPct,
		last:    make(map[string]float64),
	}
}

// Observe records a routed sample and reports whether it moved more than the
// warn threshold against the previous routed price. The stored price is
// always updated, including when an anomaly fires. Only routed samples may
// be observed; rejected or suppressed samples never update the map.
func (m *Monitor) Observe(s feed.Sample) (Anomaly, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev, ok := m.last[s.Symbol]
	m.last[s.Symbol] = s.Price

	if !ok || prev <= 0 {
		return Anomaly{}, false
	}

	delta := (s.Price - prev) / prev
	if math.Abs(delta) <= m.warnPct {
		return Anomaly{}, false
	}

	return Anomaly{
		Symbol:    s.Symbol,
		PrevPrice: prev,
		Price:     s.Price,
		DeltaPct:  delta,
	}, true
}

// LastPrice returns the last routed price for a symbol, if any.
func (m *Monitor) LastPrice(symbol string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.last[symbol]
	return p, ok
}

package feed

import (
	"encoding/json"
	"fmt"
	"time"
)

// Source identifies which upstream provider a sample came from.
type Source int

const (
	SourcePrimary Source = iota
	SourceFallback
)

func (s Source) String() string {
	switch s {
	case SourcePrimary:
		return "primary"
	case SourceFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	src, err := ParseSource(name)
	if err != nil {
		return err
	}
	*s = src
	return nil
}

// ParseSource maps the wire names back to a Source.
func ParseSource(name string) (Source, error) {
	switch name {
	case "primary":
		return SourcePrimary, nil
	case "fallback":
		return SourceFallback, nil
	default:
		return 0, fmt.Errorf("unknown source %q", name)
	}
}

// Sample is a single price update pushed into the router by a provider
// adapter. It is a value type and safe to copy across goroutines; the same
// shape goes out over the broadcast stream and the websocket.
type Sample struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Volume float64   `json:"volume"`
	Time   time.Time `json:"time"`

	// PrevClose is the previous session close when the feed supplies one,
	// 0 otherwise. It feeds the circuit-breaker check.
	PrevClose float64 `json:"prev_close,omitempty"`

	Source Source `json:"source"`
}

// RoutedListener receives samples that passed validation and the routing
// gate. Listeners run outside the router's lock and must not call back into
// it synchronously.
type RoutedListener interface {
	OnRouted(s Sample)
}

// Sink is the inbound surface provider adapters push into. Implementations
// absorb failures internally; none of these calls may block for long or
// panic into the adapter's I/O loop.
type Sink interface {
	SubmitPrimary(s Sample)
	SubmitFallback(s Sample)
	SetPrimaryHealth(healthy bool, reason string)
	SetFallbackHealth(healthy bool, reason string)
	ForceFailover(reason string) bool
}

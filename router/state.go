package router

import "fmt"

// State is the routing decision the router currently operates under. Exactly
// one value is active at any instant; all mutations are serialized by the
// router's lock.
type State int

const (
	StateStartup State = iota
	StatePrimaryActive
	StateFallbackActive
	StateBothUnavailable
)

func (s State) String() string {
	switch s {
	case StateStartup:
		return "STARTUP"
	case StatePrimaryActive:
		return "PRIMARY_ACTIVE"
	case StateFallbackActive:
		return "FALLBACK_ACTIVE"
	case StateBothUnavailable:
		return "BOTH_UNAVAILABLE"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

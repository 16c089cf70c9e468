// journal/journal.go
package journal

import "time"

// TransitionRecord captures one routing state change.
type TransitionRecord struct {
	ID          string
	At          time.Time
	From        string
	To          string
	Reason      string
	Activations int // lifetime fallback activations at the time of the change
}

// RejectionRecord captures one sample thrown out by validation.
type RejectionRecord struct {
	ID     string
	At     time.Time
	Source string
	Symbol string
	Code   string
	Detail string
	Price  float64
}

type Journal interface {
	RecordTransition(TransitionRecord) error
	RecordRejection(RejectionRecord) error
	Close() error
}

// Nop discards every record.
type Nop struct{}

func (Nop) RecordTransition(TransitionRecord) error { return nil }
func (Nop) RecordRejection(RejectionRecord) error   { return nil }
func (Nop) Close() error                            { return nil }

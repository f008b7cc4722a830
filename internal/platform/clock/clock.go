// Package clock supplies decision timestamps. Callers never pass their own
// time into a log write; the ledger stamps records from a Clock.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock returns the timestamp for the next ledger record.
type Clock interface {
	Now() time.Time
}

// Monotonic is strictly increasing at nanosecond resolution within a process.
// When the wall clock stalls or steps back, it advances the last issued value
// by one nanosecond, so two decisions never share a timestamp.
type Monotonic struct {
	last atomic.Int64
	wall func() time.Time
}

func NewMonotonic() *Monotonic {
	return &Monotonic{wall: time.Now}
}

func (m *Monotonic) Now() time.Time {
	for {
		prev := m.last.Load()
		next := m.wall().UTC().UnixNano()
		if next <= prev {
			next = prev + 1
		}
		if m.last.CompareAndSwap(prev, next) {
			return time.Unix(0, next).UTC()
		}
	}
}

// Fixed always returns the same instant. Tests use it to force key collisions.
type Fixed struct {
	At time.Time
}

func (f Fixed) Now() time.Time {
	return f.At
}

// Func adapts a function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f()
}

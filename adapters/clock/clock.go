// Package clock provides Clock implementations.
package clock

import (
	"sync/atomic"
	"time"

	"github.com/memomeet/memomeet/ports"
)

// Real reads the wall clock in UTC at the microsecond precision the stores keep.
type Real struct{}

func (Real) Now() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// Manual only moves when told to. It is safe for concurrent use.
type Manual struct {
	nanos atomic.Int64
}

// NewManual returns a clock stopped at t.
func NewManual(t time.Time) *Manual {
	m := &Manual{}
	m.nanos.Store(t.UnixNano())
	return m
}

func (m *Manual) Now() time.Time {
	return time.Unix(0, m.nanos.Load()).UTC()
}

// Advance moves the clock by d and returns the new time.
func (m *Manual) Advance(d time.Duration) time.Time {
	return time.Unix(0, m.nanos.Add(int64(d))).UTC()
}

var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Manual)(nil)
)

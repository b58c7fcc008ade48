// Package idgen provides ID generation implementations.
package idgen

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/memomeet/memomeet/ports"
)

// UUID generates random UUIDs for summaries and dummy processor objects.
type UUID struct{}

// New generates a new UUID v4.
func (UUID) New() string {
	return uuid.New().String()
}

// Prefixed generates UUIDs behind a fixed prefix, e.g. "cus_dummy_".
type Prefixed struct {
	Prefix string
}

// New generates a new prefixed UUID with the dashes removed.
func (p Prefixed) New() string {
	id := uuid.New()
	return p.Prefix + stripDashes(id.String())
}

func stripDashes(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] != '-' {
			out = append(out, s[i])
		}
	}
	return string(out)
}

// Sequential generates sequential IDs (for testing).
type Sequential struct {
	prefix  string
	counter uint64
}

// NewSequential creates a sequential ID generator.
func NewSequential(prefix string) *Sequential {
	return &Sequential{prefix: prefix}
}

// New generates the next sequential ID.
func (s *Sequential) New() string {
	n := atomic.AddUint64(&s.counter, 1)
	return s.prefix + strconv.FormatUint(n, 10)
}

// Ensure interface compliance.
var (
	_ ports.IDGenerator = UUID{}
	_ ports.IDGenerator = Prefixed{}
	_ ports.IDGenerator = (*Sequential)(nil)
)

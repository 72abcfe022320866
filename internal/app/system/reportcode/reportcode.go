// Package reportcode generates the human-readable PS-###### codes given to
// citizens when they file an issue.
package reportcode

import (
	"fmt"
	"regexp"
	"sync"
	"time"
)

const modulus = 1_000_000

var pattern = regexp.MustCompile(`^PS-\d{6}$`)

// Generator derives codes from the last six digits of the millisecond
// clock. Within one process consecutive codes never repeat until the six
// digit space wraps.
type Generator struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
	used bool
}

// New returns a Generator backed by the wall clock.
func New() *Generator {
	return &Generator{now: time.Now}
}

// NewWithClock returns a Generator using the supplied clock.
func NewWithClock(now func() time.Time) *Generator {
	return &Generator{now: now}
}

// Next returns the next code.
func (g *Generator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if g.used && ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.used = true
	return fmt.Sprintf("PS-%06d", ms%modulus)
}

// Valid reports whether s looks like a report code.
func Valid(s string) bool {
	return pattern.MatchString(s)
}

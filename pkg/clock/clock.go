package clock

import (
	"sync"
	"time"
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

// Real reads the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Zoned reads the system clock in a fixed location, so calendar-day
// comparisons follow that zone rather than the host's.
type Zoned struct {
	Loc *time.Location
}

func (z Zoned) Now() time.Time { return time.Now().In(z.Loc) }

// In returns a clock in loc, or Real when loc is nil.
func In(loc *time.Location) Clock {
	if loc == nil {
		return Real{}
	}
	return Zoned{Loc: loc}
}

// Fake is deterministic and test-friendly.
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{t: start}
}

func (c *Fake) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *Fake) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func (c *Fake) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

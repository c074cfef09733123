package sim

import (
	"sync"
	"time"
)

// Clock is a virtual core.Clock. Delay advances time without sleeping.
type Clock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewClock returns a virtual clock at time zero
func NewClock() *Clock {
	return &Clock{}
}

// Now returns the virtual time
func (c *Clock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Delay advances the virtual time by d
func (c *Clock) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// Advance is Delay under a name that reads better in tests.
func (c *Clock) Advance(d time.Duration) {
	c.Delay(d)
}

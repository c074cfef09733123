//go:build !tinygo

package core

import "time"

// HostClock is a Clock backed by the Go runtime monotonic clock.
type HostClock struct {
	start time.Time
}

// NewHostClock returns a clock whose origin is the moment of the call.
func NewHostClock() *HostClock {
	return &HostClock{start: time.Now()}
}

// Now returns the time elapsed since the clock was created
func (c *HostClock) Now() time.Duration {
	return time.Since(c.start)
}

// Delay sleeps for d. Sub-millisecond delays are only as accurate as the
// host scheduler allows, which is fine for simulation.
func (c *HostClock) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	time.Sleep(d)
}

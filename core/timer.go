package core

import "time"

// Clock is the monotonic time source and blocking delay primitive used by
// the pulse generator and the homing timeout. Step timing is produced only
// through Delay; there is no other suspension point.
type Clock interface {
	// Now returns the time elapsed since an arbitrary fixed origin (boot).
	Now() time.Duration

	// Delay blocks for d.
	Delay(d time.Duration)
}

// Millis reports the clock reading in whole milliseconds.
func Millis(c Clock) uint32 {
	return uint32(c.Now() / time.Millisecond)
}

//go:build rp2040

package main

import (
	"runtime/volatile"
	"time"
	"unsafe"

	"tinygo.org/x/drivers/delay"
)

// RP2040 timer peripheral, free running at 1MHz
const (
	timerBase     = 0x40054000
	timerTIMERAWH = timerBase + 0x24 // Raw timer high word
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
)

var (
	timerRAWH = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWH)))
	timerRAWL = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
)

// HardwareClock implements core.Clock on the RP2040 microsecond timer
type HardwareClock struct{}

// GetHardwareUptime reads the full 64-bit microsecond counter
func GetHardwareUptime() uint64 {
	// High, low, high: retry if the high word rolled over in between
	for {
		high1 := timerRAWH.Get()
		low := timerRAWL.Get()
		high2 := timerRAWH.Get()
		if high1 == high2 {
			return (uint64(high1) << 32) | uint64(low)
		}
	}
}

// Now returns the time since boot
func (HardwareClock) Now() time.Duration {
	return time.Duration(GetHardwareUptime()) * time.Microsecond
}

// Delay busy-waits for short periods and sleeps for long ones.
func (HardwareClock) Delay(d time.Duration) {
	if d <= 0 {
		return
	}
	if d < time.Millisecond {
		delay.Sleep(d)
		return
	}
	time.Sleep(d)
}

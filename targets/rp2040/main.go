//go:build rp2040

// Command rp2040 is the monochromator firmware: it reads command lines from
// USB CDC, drives the stepper drivers and writes reply lines back.
package main

import (
	"machine"
	"time"

	"monoctl/config"
	"monoctl/controller"
	"monoctl/core"
)

var (
	// USB connection state tracking
	usbWasDisconnected       bool
	consecutiveWriteFailures uint32
	readErrors               uint32
)

func main() {
	// Clear any watchdog left running by a previous image
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	if err := InitUSB(); err != nil {
		fail()
	}

	table := config.Default()
	cfg, err := table.ToCore()
	if err != nil {
		fail()
	}

	machineState, err := core.NewMachine(cfg, NewRPGPIODriver(), HardwareClock{})
	if err != nil {
		fail()
	}

	mgr := controller.NewManager(machineState, controller.WithStrictArguments(table.StrictArguments))
	mgr.Start()
	writeUSB(mgr)

	for {
		func() {
			defer func() {
				if r := recover(); r != nil {
					readErrors++
				}
			}()
			pollUSB(mgr)
			writeUSB(mgr)
		}()

		// Yield to the USB stack
		time.Sleep(100 * time.Microsecond)
	}
}

// pollUSB feeds every pending USB byte to the manager. Commands run to
// completion inside ProcessByte, so no other input is read meanwhile.
func pollUSB(mgr *controller.Manager) {
	for USBAvailable() > 0 {
		b, err := USBRead()
		if err != nil {
			readErrors++
			return
		}
		if usbWasDisconnected {
			usbWasDisconnected = false
			consecutiveWriteFailures = 0
		}
		mgr.ProcessByte(b)
	}
}

// writeUSB drains queued reply lines. Output is dropped while the host is
// away so the queue cannot grow without bound.
func writeUSB(mgr *controller.Manager) {
	out := mgr.GetOutput()
	for len(out) > 0 {
		n, err := USBWriteBytes(out)
		if err != nil || n == 0 {
			consecutiveWriteFailures++
			if consecutiveWriteFailures > 100 {
				usbWasDisconnected = true
			}
			return
		}
		consecutiveWriteFailures = 0
		out = out[n:]
	}
}

// fail blinks the LED forever when the machine table is unusable
func fail() {
	led := machine.LED
	led.Configure(machine.PinConfig{Mode: machine.PinOutput})
	for {
		led.High()
		time.Sleep(100 * time.Millisecond)
		led.Low()
		time.Sleep(100 * time.Millisecond)
	}
}

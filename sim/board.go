// Package sim provides a virtual instrument: a GPIO pin bank whose stepper
// axes move simulated carriages against limit switches, and a virtual clock
// whose delays complete instantly. It lets the motion engine and the
// dispatcher run without hardware.
package sim

import (
	"fmt"
	"sync"

	"monoctl/core"
)

// PinMode is the configured function of a simulated pin
type PinMode uint8

const (
	PinUnconfigured PinMode = iota
	PinOutput
	PinInputPullUp
	PinInputPullDown
)

type pinState struct {
	mode  PinMode
	level bool
	err   error // injected write failure
}

// Carriage is the simulated mechanics of one axis.
type Carriage struct {
	Axis core.AxisConfig

	// Distance is the number of steps between the carriage and its limit
	// switch; at or below zero the switch reads its zero level.
	Distance int64

	// Stuck keeps the switch released whatever the carriage does.
	Stuck bool

	Pulses         uint64 // Rising step edges seen with drivers enabled
	PulsesDisabled uint64 // Rising step edges seen with drivers disabled
}

func (c *Carriage) atSwitch() bool {
	return !c.Stuck && c.Distance <= 0
}

// Board is an in-memory GPIODriver.
type Board struct {
	mu        sync.Mutex
	pins      map[core.GPIOPin]*pinState
	carriages map[core.GPIOPin]*Carriage // keyed by step pin
	limits    map[core.GPIOPin]*Carriage // keyed by limit pin
	enablePin core.GPIOPin
	hasEnable bool
	writes    uint64
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{
		pins:      make(map[core.GPIOPin]*pinState),
		carriages: make(map[core.GPIOPin]*Carriage),
		limits:    make(map[core.GPIOPin]*Carriage),
	}
}

// NewMachineBoard creates a board wired for cfg. distances gives the
// starting distance of each named carriage from its switch; axes not listed
// start 1000 steps away.
func NewMachineBoard(cfg core.MachineConfig, distances map[string]int64) *Board {
	b := NewBoard()
	b.SetEnablePin(cfg.EnablePin)
	for _, axis := range cfg.Axes {
		d, ok := distances[axis.Name]
		if !ok {
			d = 1000
		}
		b.AddCarriage(axis, d)
	}
	return b
}

// SetEnablePin declares the shared active-low driver enable line.
func (b *Board) SetEnablePin(pin core.GPIOPin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.enablePin = pin
	b.hasEnable = true
}

// AddCarriage attaches simulated mechanics to an axis' pins.
func (b *Board) AddCarriage(axis core.AxisConfig, distance int64) *Carriage {
	b.mu.Lock()
	defer b.mu.Unlock()
	c := &Carriage{Axis: axis, Distance: distance}
	b.carriages[axis.StepPin] = c
	b.limits[axis.LimitPin] = c
	return c
}

// Carriage returns the mechanics attached to the named axis
func (b *Board) Carriage(name string) (*Carriage, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.carriages {
		if c.Axis.Name == name {
			return c, true
		}
	}
	return nil, false
}

// FailWrites makes every later SetPin on pin return err. A nil err clears it.
func (b *Board) FailWrites(pin core.GPIOPin, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pin(pin).err = err
}

// Level returns the last level driven or read on pin.
func (b *Board) Level(pin core.GPIOPin) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level(pin)
}

// Mode returns the configured mode of pin
func (b *Board) Mode(pin core.GPIOPin) PinMode {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pin(pin).mode
}

// DriversEnabled reports whether the enable line is currently low.
func (b *Board) DriversEnabled() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.driversEnabled()
}

// Writes returns the number of successful SetPin calls
func (b *Board) Writes() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writes
}

// ConfigureOutput configures a pin as a digital output
func (b *Board) ConfigureOutput(pin core.GPIOPin) error {
	return b.configure(pin, PinOutput)
}

// ConfigureInputPullUp configures a pin as an input idling high
func (b *Board) ConfigureInputPullUp(pin core.GPIOPin) error {
	return b.configure(pin, PinInputPullUp)
}

// ConfigureInputPullDown configures a pin as an input idling low
func (b *Board) ConfigureInputPullDown(pin core.GPIOPin) error {
	return b.configure(pin, PinInputPullDown)
}

func (b *Board) configure(pin core.GPIOPin, mode PinMode) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := b.pin(pin)
	if p.mode != PinUnconfigured && p.mode != mode {
		return fmt.Errorf("sim: pin %d already configured as %d", pin, p.mode)
	}
	p.mode = mode
	p.level = mode == PinInputPullUp
	return nil
}

// SetPin drives an output. A rising edge on a step pin moves its carriage
// one step if the drivers are enabled.
func (b *Board) SetPin(pin core.GPIOPin, value bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	p := b.pin(pin)
	if p.err != nil {
		return p.err
	}
	if p.mode != PinOutput {
		return fmt.Errorf("sim: pin %d is not an output", pin)
	}

	rising := value && !p.level
	p.level = value
	b.writes++

	if c, ok := b.carriages[pin]; ok && rising {
		if !b.driversEnabled() {
			c.PulsesDisabled++
			return nil
		}
		c.Pulses++
		if b.level(c.Axis.DirPin) == c.Axis.ZeroDirection {
			c.Distance--
		} else {
			c.Distance++
		}
	}
	return nil
}

// ReadPin samples an input. Limit switch inputs follow their carriage.
func (b *Board) ReadPin(pin core.GPIOPin) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.level(pin)
}

func (b *Board) level(pin core.GPIOPin) bool {
	if c, ok := b.limits[pin]; ok {
		if c.atSwitch() {
			return c.Axis.ZeroLevel
		}
		return !c.Axis.ZeroLevel
	}
	return b.pin(pin).level
}

func (b *Board) driversEnabled() bool {
	if !b.hasEnable {
		return true
	}
	p := b.pin(b.enablePin)
	return p.mode == PinOutput && !p.level
}

func (b *Board) pin(pin core.GPIOPin) *pinState {
	p, ok := b.pins[pin]
	if !ok {
		p = &pinState{}
		b.pins[pin] = p
	}
	return p
}

package mono

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"monoctl/config"
	"monoctl/protocol"
)

// WavelengthAxis is the motor name of the grating drive
const WavelengthAxis = "WL"

// ErrOutOfRange is returned for targets beyond the configured travel
var ErrOutOfRange = errors.New("target out of range")

// Timeouts bounds how long each kind of exchange may take
type Timeouts struct {
	Reply time.Duration // ordinary commands
	Init  time.Duration // banner wait plus homing
}

// Monochromator tracks the grating position of one unit. Travel bounds are
// enforced here; the board itself never checks them.
type Monochromator struct {
	client   *Client
	name     string
	mapping  Mapping
	minStep  int64
	maxStep  int64
	timeouts Timeouts

	step  int64
	homed bool
	slits *Slits
}

// NewMonochromator builds the model of cfg on top of client
func NewMonochromator(client *Client, cfg config.Monochromator, timeouts Timeouts) (*Monochromator, error) {
	mapping, err := NewMapping(cfg)
	if err != nil {
		return nil, fmt.Errorf("monochromator %q: %w", cfg.Name, err)
	}
	m := &Monochromator{
		client:   client,
		name:     cfg.Name,
		mapping:  mapping,
		minStep:  cfg.MinStep,
		maxStep:  cfg.MaxStep,
		timeouts: timeouts,
	}
	if cfg.Slits != nil && cfg.Slits.Count > 0 {
		m.slits = NewSlits(client, *cfg.Slits, timeouts)
	}
	return m, nil
}

// Name returns the profile name of the unit
func (m *Monochromator) Name() string { return m.name }

// Slits returns the slit bank, or nil when the unit has none
func (m *Monochromator) Slits() *Slits { return m.slits }

// Step returns the tracked grating step
func (m *Monochromator) Step() int64 { return m.step }

// Homed reports whether the grating has been zeroed since connecting
func (m *Monochromator) Homed() bool { return m.homed }

// Wavelength returns the wavelength at the tracked step
func (m *Monochromator) Wavelength() float64 {
	return m.mapping.Wavelength(m.step)
}

// Range returns the wavelengths at the travel bounds
func (m *Monochromator) Range() (float64, float64) {
	return m.mapping.Wavelength(m.minStep), m.mapping.Wavelength(m.maxStep)
}

// Init waits for the board banner, then zeroes the grating and the slits
func (m *Monochromator) Init(ctx context.Context) error {
	if m.timeouts.Init > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeouts.Init)
		defer cancel()
	}
	if err := m.client.WaitReady(ctx); err != nil {
		return err
	}
	if err := m.FindZero(ctx); err != nil {
		return err
	}
	if m.slits != nil {
		return m.slits.FindZero(ctx)
	}
	return nil
}

// FindZero homes the grating and resets the tracked step
func (m *Monochromator) FindZero(ctx context.Context) error {
	m.homed = false
	if _, err := m.client.commandWithin(ctx, m.timeouts.Init, zeroLine(WavelengthAxis)); err != nil {
		return err
	}
	m.step = 0
	m.homed = true
	return nil
}

// MoveToStep moves the grating to an absolute step within the bounds
func (m *Monochromator) MoveToStep(ctx context.Context, target int64) error {
	if target < m.minStep || target > m.maxStep {
		return fmt.Errorf("%w: step %d not in [%d, %d]", ErrOutOfRange, target, m.minStep, m.maxStep)
	}
	if target == m.step {
		return nil
	}
	count, forward := delta(m.step, target)
	if count > math.MaxUint32 {
		return fmt.Errorf("%w: %d steps in one move", ErrOutOfRange, count)
	}
	if _, err := m.client.commandWithin(ctx, m.timeouts.Reply, moveLine(WavelengthAxis, count, forward)); err != nil {
		return err
	}
	m.step = target
	return nil
}

// MoveToWavelength moves the grating to the step nearest wavelength
func (m *Monochromator) MoveToWavelength(ctx context.Context, wavelength float64) error {
	target, err := m.mapping.Step(wavelength)
	if err != nil {
		return err
	}
	return m.MoveToStep(ctx, target)
}

// SetSpeed selects the board's move cadence
func (m *Monochromator) SetSpeed(ctx context.Context, high bool) error {
	arg := "LOW"
	if high {
		arg = protocol.ArgHigh
	}
	_, err := m.client.commandWithin(ctx, m.timeouts.Reply, protocol.VerbSpeed+string(protocol.Separator)+arg)
	return err
}

// OpenShutter opens the shutter
func (m *Monochromator) OpenShutter(ctx context.Context) error {
	return m.shutter(ctx, protocol.ArgOpen)
}

// CloseShutter closes the shutter
func (m *Monochromator) CloseShutter(ctx context.Context) error {
	return m.shutter(ctx, protocol.ArgClose)
}

func (m *Monochromator) shutter(ctx context.Context, arg string) error {
	_, err := m.client.commandWithin(ctx, m.timeouts.Reply, protocol.VerbShutter+string(protocol.Separator)+arg)
	return err
}

// SetResolution moves the slits to the given spectral bandwidth
func (m *Monochromator) SetResolution(ctx context.Context, value float64) error {
	if m.slits == nil {
		return fmt.Errorf("monochromator %q has no slits", m.name)
	}
	return m.slits.MoveToValue(ctx, value)
}

// delta returns the step count and direction from current to target
func delta(current, target int64) (uint64, bool) {
	if target > current {
		return uint64(target - current), true
	}
	return uint64(current - target), false
}

func zeroLine(axis string) string {
	return protocol.VerbZero + string(protocol.Separator) + axis
}

func moveLine(axis string, count uint64, forward bool) string {
	dir := protocol.ArgBackward
	if forward {
		dir = protocol.ArgForward
	}
	sep := string(protocol.Separator)
	return protocol.VerbMove + sep + axis + sep + strconv.FormatUint(count, 10) + sep + dir
}

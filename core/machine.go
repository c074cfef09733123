package core

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultHomingTimeout bounds a whole homing operation (back-off plus seek)
const DefaultHomingTimeout = 70 * time.Second

// MachineConfig is the static description of the instrument.
type MachineConfig struct {
	Axes          []AxisConfig
	EnablePin     GPIOPin       // Shared active-low driver enable
	ShutterPin    GPIOPin       // Shutter output, high = open
	HomingTimeout time.Duration // Zero means DefaultHomingTimeout
}

// AxisState is the mutable runtime state of one axis.
type AxisState struct {
	// Position is a signed step odometer. It is only a physical coordinate
	// once Homed is set.
	Position int64
	Homed    bool
}

// Machine owns the registry, the runtime state of every axis, the driver
// gate, the shutter and the current speed mode. It is not safe for
// concurrent use; the dispatcher serialises every operation.
type Machine struct {
	registry *Registry
	gpio     GPIODriver
	clock    Clock
	gate     *DriverGate
	shutter  *Shutter
	steps    *StepGenerator
	timeout  time.Duration
	log      zerolog.Logger

	axes []AxisState
	mode SpeedMode
}

// MachineOption customises a Machine
type MachineOption func(*Machine)

// WithLogger attaches a logger for per-operation debug output.
func WithLogger(log zerolog.Logger) MachineOption {
	return func(m *Machine) {
		m.log = log
	}
}

// NewMachine validates cfg, configures every pin and returns a machine with
// drivers disabled, shutter closed, slow mode selected and no axis homed.
func NewMachine(cfg MachineConfig, gpio GPIODriver, clock Clock, opts ...MachineOption) (*Machine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	registry, err := NewRegistry(cfg.Axes)
	if err != nil {
		return nil, err
	}

	timeout := cfg.HomingTimeout
	if timeout == 0 {
		timeout = DefaultHomingTimeout
	}

	m := &Machine{
		registry: registry,
		gpio:     gpio,
		clock:    clock,
		steps:    NewStepGenerator(gpio, clock),
		timeout:  timeout,
		log:      zerolog.Nop(),
		axes:     make([]AxisState, registry.Len()),
		mode:     SpeedSlow,
	}
	for _, opt := range opts {
		opt(m)
	}

	if m.gate, err = NewDriverGate(gpio, cfg.EnablePin); err != nil {
		return nil, fmt.Errorf("configure enable pin: %w", err)
	}
	if m.shutter, err = NewShutter(gpio, cfg.ShutterPin); err != nil {
		return nil, fmt.Errorf("configure shutter pin: %w", err)
	}

	for _, axis := range registry.Axes() {
		if err := m.steps.InitPins(axis); err != nil {
			return nil, fmt.Errorf("configure axis %s: %w", axis.Name, err)
		}
		if err := configureInput(gpio, axis.LimitPin, axis.LimitPullUp); err != nil {
			return nil, fmt.Errorf("configure axis %s limit switch: %w", axis.Name, err)
		}
	}

	return m, nil
}

// ValidateConfig checks cfg without touching any hardware.
func ValidateConfig(cfg MachineConfig) error {
	if cfg.HomingTimeout < 0 {
		return fmt.Errorf("%w: negative homing timeout", ErrInvalidConfig)
	}
	if err := validatePins(cfg); err != nil {
		return err
	}
	_, err := NewRegistry(cfg.Axes)
	return err
}

// validatePins rejects tables where two functions share one pin.
func validatePins(cfg MachineConfig) error {
	owner := map[GPIOPin]string{
		cfg.EnablePin: "enable",
	}
	claim := func(pin GPIOPin, what string) error {
		if prev, taken := owner[pin]; taken {
			return fmt.Errorf("%w: pin %d used by %s and %s", ErrInvalidConfig, pin, prev, what)
		}
		owner[pin] = what
		return nil
	}

	if err := claim(cfg.ShutterPin, "shutter"); err != nil {
		return err
	}
	for _, axis := range cfg.Axes {
		if err := claim(axis.DirPin, axis.Name+" dir"); err != nil {
			return err
		}
		if err := claim(axis.StepPin, axis.Name+" step"); err != nil {
			return err
		}
		if err := claim(axis.LimitPin, axis.Name+" limit"); err != nil {
			return err
		}
	}
	return nil
}

// Registry returns the axis table
func (m *Machine) Registry() *Registry {
	return m.registry
}

// Gate returns the shared driver gate
func (m *Machine) Gate() *DriverGate {
	return m.gate
}

// Shutter returns the shutter output
func (m *Machine) Shutter() *Shutter {
	return m.shutter
}

// HomingTimeout returns the bound applied to each homing operation
func (m *Machine) HomingTimeout() time.Duration {
	return m.timeout
}

// Mode returns the cadence used by subsequent moves
func (m *Machine) Mode() SpeedMode {
	return m.mode
}

// SetMode selects the cadence used by subsequent moves.
func (m *Machine) SetMode(mode SpeedMode) {
	m.mode = mode
	m.log.Debug().Stringer("mode", mode).Msg("speed mode set")
}

// State returns the runtime state of the axis at idx.
func (m *Machine) State(idx int) (AxisState, error) {
	if idx < 0 || idx >= len(m.axes) {
		return AxisState{}, fmt.Errorf("%w: %d", ErrInvalidAxis, idx)
	}
	return m.axes[idx], nil
}

// Position returns the tracked step position of a named axis and whether
// that axis has been homed since boot.
func (m *Machine) Position(name string) (int64, bool, error) {
	idx, ok := m.registry.Lookup(name)
	if !ok {
		return 0, false, fmt.Errorf("%w: %q", ErrUnknownMotor, name)
	}
	st := m.axes[idx]
	return st.Position, st.Homed, nil
}

// LimitTriggered reports whether the axis switch currently reads its zero level.
func (m *Machine) LimitTriggered(axis AxisConfig) bool {
	return m.gpio.ReadPin(axis.LimitPin) == axis.ZeroLevel
}

// AxisSnapshot is a diagnostic view of one axis
type AxisSnapshot struct {
	Name      string
	Position  int64
	Homed     bool
	LimitHigh bool
	AtZero    bool
}

// Snapshot is a diagnostic view of the whole machine
type Snapshot struct {
	Axes           []AxisSnapshot
	DriversEnabled bool
	ShutterOpen    bool
	Mode           SpeedMode
}

// Snapshot samples every limit switch and copies the runtime state.
func (m *Machine) Snapshot() Snapshot {
	snap := Snapshot{
		Axes:           make([]AxisSnapshot, 0, m.registry.Len()),
		DriversEnabled: m.gate.Enabled(),
		ShutterOpen:    m.shutter.IsOpen(),
		Mode:           m.mode,
	}
	for i, axis := range m.registry.axes {
		level := m.gpio.ReadPin(axis.LimitPin)
		snap.Axes = append(snap.Axes, AxisSnapshot{
			Name:      axis.Name,
			Position:  m.axes[i].Position,
			Homed:     m.axes[i].Homed,
			LimitHigh: level,
			AtZero:    level == axis.ZeroLevel,
		})
	}
	return snap
}

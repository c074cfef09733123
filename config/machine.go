// Package config describes the instrument: the firmware machine table and
// the host-side calibration profile.
package config

import (
	"fmt"
	"strings"
	"time"

	"monoctl/core"
)

// Level is a logic level written as LOW or HIGH in config files
type Level bool

const (
	Low  Level = false
	High Level = true
)

func (l Level) String() string {
	if l {
		return "HIGH"
	}
	return "LOW"
}

// MarshalText implements encoding.TextMarshaler
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (l *Level) UnmarshalText(text []byte) error {
	switch strings.ToUpper(strings.TrimSpace(string(text))) {
	case "HIGH", "1":
		*l = High
	case "LOW", "0":
		*l = Low
	default:
		return fmt.Errorf("level %q: want LOW or HIGH", text)
	}
	return nil
}

// Axis is one row of the motor table
type Axis struct {
	Name     string `toml:"name" json:"name"`
	DirPin   uint32 `toml:"dir_pin" json:"dir_pin"`
	StepPin  uint32 `toml:"step_pin" json:"step_pin"`
	LimitPin uint32 `toml:"limit_pin" json:"limit_pin"`

	SlowHalfPeriodUS int64 `toml:"slow_half_period_us" json:"slow_half_period_us"`
	FastHalfPeriodUS int64 `toml:"fast_half_period_us" json:"fast_half_period_us"`

	ZeroDirection Level `toml:"zero_direction" json:"zero_direction"`
	ZeroLevel     Level `toml:"zero_level" json:"zero_level"`
	LimitPullUp   bool  `toml:"limit_pull_up" json:"limit_pull_up"`
}

// Machine is the firmware side configuration
type Machine struct {
	EnablePin       uint32 `toml:"enable_pin" json:"enable_pin"`
	ShutterPin      uint32 `toml:"shutter_pin" json:"shutter_pin"`
	HomingTimeoutMS int64  `toml:"homing_timeout_ms" json:"homing_timeout_ms"`
	StrictArguments bool   `toml:"strict_arguments" json:"strict_arguments"`
	Axes            []Axis `toml:"axis" json:"axes"`
}

// Default returns the table of the stock instrument: a single wavelength
// axis on the reference board wiring.
func Default() *Machine {
	return &Machine{
		EnablePin:       8,
		ShutterPin:      9,
		HomingTimeoutMS: 70000,
		Axes: []Axis{
			{
				Name:             "WL",
				DirPin:           5,
				StepPin:          2,
				LimitPin:         14,
				SlowHalfPeriodUS: 50,
				FastHalfPeriodUS: 25,
				ZeroDirection:    Low,
				ZeroLevel:        High,
			},
		},
	}
}

// applyDefaults fills in missing values
func applyDefaults(m *Machine) {
	if m.HomingTimeoutMS == 0 {
		m.HomingTimeoutMS = core.DefaultHomingTimeout.Milliseconds()
	}
	for i := range m.Axes {
		axis := &m.Axes[i]
		axis.Name = strings.TrimSpace(axis.Name)
		if axis.SlowHalfPeriodUS == 0 {
			axis.SlowHalfPeriodUS = core.DefaultSlowHalfPeriod.Microseconds()
		}
		if axis.FastHalfPeriodUS == 0 {
			axis.FastHalfPeriodUS = core.DefaultFastHalfPeriod.Microseconds()
		}
	}
}

// Validate checks the table after defaults have been applied
func (m *Machine) Validate() error {
	if len(m.Axes) == 0 {
		return fmt.Errorf("%w: no axes", core.ErrInvalidConfig)
	}
	if m.HomingTimeoutMS <= 0 {
		return fmt.Errorf("%w: homing timeout %dms", core.ErrInvalidConfig, m.HomingTimeoutMS)
	}
	for _, axis := range m.Axes {
		if axis.SlowHalfPeriodUS <= 0 || axis.FastHalfPeriodUS <= 0 {
			return fmt.Errorf("%w: axis %q: half periods must be positive", core.ErrInvalidConfig, axis.Name)
		}
	}
	_, err := m.ToCore()
	return err
}

// ToCore converts the table to the engine configuration. Name and pin
// checks are done by core.NewRegistry and core.NewMachine.
func (m *Machine) ToCore() (core.MachineConfig, error) {
	cfg := core.MachineConfig{
		EnablePin:     core.GPIOPin(m.EnablePin),
		ShutterPin:    core.GPIOPin(m.ShutterPin),
		HomingTimeout: time.Duration(m.HomingTimeoutMS) * time.Millisecond,
		Axes:          make([]core.AxisConfig, 0, len(m.Axes)),
	}
	for _, axis := range m.Axes {
		cfg.Axes = append(cfg.Axes, core.AxisConfig{
			Name:           axis.Name,
			DirPin:         core.GPIOPin(axis.DirPin),
			StepPin:        core.GPIOPin(axis.StepPin),
			LimitPin:       core.GPIOPin(axis.LimitPin),
			SlowHalfPeriod: time.Duration(axis.SlowHalfPeriodUS) * time.Microsecond,
			FastHalfPeriod: time.Duration(axis.FastHalfPeriodUS) * time.Microsecond,
			ZeroDirection:  bool(axis.ZeroDirection),
			ZeroLevel:      bool(axis.ZeroLevel),
			LimitPullUp:    axis.LimitPullUp,
		})
	}
	if err := core.ValidateConfig(cfg); err != nil {
		return core.MachineConfig{}, err
	}
	return cfg, nil
}

package core

import (
	"fmt"
	"time"
)

// Default step half-periods applied when an axis leaves them unset
const (
	DefaultSlowHalfPeriod = 200 * time.Microsecond
	DefaultFastHalfPeriod = 50 * time.Microsecond
)

// AxisConfig is the immutable wiring and timing of one stepper axis.
type AxisConfig struct {
	Name     string  // Unique, case-sensitive axis name (e.g. "WL")
	DirPin   GPIOPin // Direction output
	StepPin  GPIOPin // Step pulse output
	LimitPin GPIOPin // Limit switch input

	SlowHalfPeriod time.Duration // High and low hold time per step, slow cadence
	FastHalfPeriod time.Duration // High and low hold time per step, fast cadence

	// ZeroDirection is the direction pin level that drives the axis toward
	// its limit switch. It also normalises "forward" for ordinary moves.
	ZeroDirection bool

	// ZeroLevel is the limit switch level read when the axis sits on its
	// zero reference.
	ZeroLevel bool

	// LimitPullUp selects a pull-up (true) or pull-down bias on the switch input.
	LimitPullUp bool
}

// HalfPeriod returns the hold duration for the given cadence.
func (a AxisConfig) HalfPeriod(mode SpeedMode) time.Duration {
	if mode == SpeedFast {
		return a.FastHalfPeriod
	}
	return a.SlowHalfPeriod
}

// Registry is the fixed table of axes, in declaration order.
type Registry struct {
	axes  []AxisConfig
	index map[string]int
}

// NewRegistry validates the axis table and builds the name index.
// Zero half-periods are replaced with the package defaults.
func NewRegistry(axes []AxisConfig) (*Registry, error) {
	r := &Registry{
		axes:  make([]AxisConfig, len(axes)),
		index: make(map[string]int, len(axes)),
	}

	for i, axis := range axes {
		if axis.Name == "" {
			return nil, fmt.Errorf("%w: axis %d has no name", ErrInvalidConfig, i)
		}
		if _, exists := r.index[axis.Name]; exists {
			return nil, fmt.Errorf("%w: duplicate axis name %q", ErrInvalidConfig, axis.Name)
		}
		if axis.DirPin == axis.StepPin || axis.DirPin == axis.LimitPin || axis.StepPin == axis.LimitPin {
			return nil, fmt.Errorf("%w: axis %q reuses a pin", ErrInvalidConfig, axis.Name)
		}
		if axis.SlowHalfPeriod == 0 {
			axis.SlowHalfPeriod = DefaultSlowHalfPeriod
		}
		if axis.FastHalfPeriod == 0 {
			axis.FastHalfPeriod = DefaultFastHalfPeriod
		}
		if axis.SlowHalfPeriod < 0 || axis.FastHalfPeriod < 0 {
			return nil, fmt.Errorf("%w: axis %q has a negative half-period", ErrInvalidConfig, axis.Name)
		}

		r.axes[i] = axis
		r.index[axis.Name] = i
	}

	return r, nil
}

// Lookup resolves an axis name by exact, case-sensitive match.
func (r *Registry) Lookup(name string) (int, bool) {
	idx, ok := r.index[name]
	return idx, ok
}

// Axis returns the configuration at index idx.
func (r *Registry) Axis(idx int) (AxisConfig, error) {
	if idx < 0 || idx >= len(r.axes) {
		return AxisConfig{}, fmt.Errorf("%w: %d", ErrInvalidAxis, idx)
	}
	return r.axes[idx], nil
}

// Len returns the number of registered axes
func (r *Registry) Len() int {
	return len(r.axes)
}

// Axes returns a copy of the table in registry order.
func (r *Registry) Axes() []AxisConfig {
	out := make([]AxisConfig, len(r.axes))
	copy(out, r.axes)
	return out
}

package mono

import (
	"fmt"
	"math"

	"monoctl/config"
)

// Mapping converts between a motor step and a wavelength in nm
type Mapping interface {
	Wavelength(step int64) float64
	Step(wavelength float64) (int64, error)
}

// Linear is offset + coefficient*step
type Linear struct {
	Offset      float64
	Coefficient float64
}

func (l Linear) Wavelength(step int64) float64 {
	return l.Offset + l.Coefficient*float64(step)
}

// Step truncates toward zero
func (l Linear) Step(wavelength float64) (int64, error) {
	if l.Coefficient == 0 {
		return 0, fmt.Errorf("linear mapping has a zero coefficient")
	}
	return int64((wavelength - l.Offset) / l.Coefficient), nil
}

// Sine is offset + coefficient*sin(phase*step)
type Sine struct {
	Offset      float64
	Coefficient float64
	Phase       float64
}

func (s Sine) Wavelength(step int64) float64 {
	return s.Offset + s.Coefficient*math.Sin(s.Phase*float64(step))
}

// Step inverts on the principal branch of asin
func (s Sine) Step(wavelength float64) (int64, error) {
	if s.Coefficient == 0 || s.Phase == 0 {
		return 0, fmt.Errorf("sine mapping needs a non-zero coefficient and phase")
	}
	ratio := (wavelength - s.Offset) / s.Coefficient
	if ratio < -1 || ratio > 1 {
		return 0, fmt.Errorf("%w: %.3f nm is outside the sine mapping", ErrOutOfRange, wavelength)
	}
	return int64(math.Asin(ratio) / s.Phase), nil
}

// NewMapping builds the mapping named by a profile entry
func NewMapping(cfg config.Monochromator) (Mapping, error) {
	switch cfg.Mapping {
	case config.MappingLinear, "":
		return Linear{Offset: cfg.Offset, Coefficient: cfg.Coefficient}, nil
	case config.MappingSine:
		return Sine{Offset: cfg.Offset, Coefficient: cfg.Coefficient, Phase: cfg.Phase}, nil
	}
	return nil, fmt.Errorf("unknown mapping %q", cfg.Mapping)
}

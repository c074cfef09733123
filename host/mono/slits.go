package mono

import (
	"context"
	"fmt"
	"math"
	"strconv"

	"monoctl/config"
)

// Slits drives the SLIT1..SLITn axes of a unit together. All slits share one
// calibration and are always moved to the same step.
type Slits struct {
	client   *Client
	names    []string
	mapping  Linear
	minStep  int64
	maxStep  int64
	timeouts Timeouts

	step  int64
	homed bool
}

// NewSlits builds the slit bank described by cfg
func NewSlits(client *Client, cfg config.Slits, timeouts Timeouts) *Slits {
	names := make([]string, cfg.Count)
	for i := range names {
		names[i] = "SLIT" + strconv.Itoa(i+1)
	}
	return &Slits{
		client:   client,
		names:    names,
		mapping:  Linear{Offset: cfg.Offset, Coefficient: cfg.Coefficient},
		minStep:  cfg.MinStep,
		maxStep:  cfg.MaxStep,
		timeouts: timeouts,
	}
}

// Names returns the motor names in homing order
func (s *Slits) Names() []string {
	return append([]string(nil), s.names...)
}

// Step returns the tracked step shared by every slit
func (s *Slits) Step() int64 { return s.step }

// Homed reports whether every slit has been zeroed
func (s *Slits) Homed() bool { return s.homed }

// Value returns the bandwidth at the tracked step
func (s *Slits) Value() float64 {
	return s.mapping.Wavelength(s.step)
}

// FindZero homes every slit in turn and stops at the first failure
func (s *Slits) FindZero(ctx context.Context) error {
	s.homed = false
	for _, name := range s.names {
		if _, err := s.client.commandWithin(ctx, s.timeouts.Init, zeroLine(name)); err != nil {
			return err
		}
	}
	s.step = 0
	s.homed = true
	return nil
}

// MoveToValue moves every slit to the step nearest value
func (s *Slits) MoveToValue(ctx context.Context, value float64) error {
	target, err := s.mapping.Step(value)
	if err != nil {
		return err
	}
	return s.MoveToStep(ctx, target)
}

// MoveToPercentage moves every slit to a fraction of the travel range
func (s *Slits) MoveToPercentage(ctx context.Context, percent float64) error {
	if percent < 0 || percent > 100 || math.IsNaN(percent) {
		return fmt.Errorf("%w: %.1f%% not in [0, 100]", ErrOutOfRange, percent)
	}
	target := s.minStep + int64(float64(s.maxStep-s.minStep)*percent/100)
	return s.MoveToStep(ctx, target)
}

// MoveToStep moves every slit to an absolute step. The tracked step only
// changes once every slit has moved; a failure part way clears Homed.
func (s *Slits) MoveToStep(ctx context.Context, target int64) error {
	if target < s.minStep || target > s.maxStep {
		return fmt.Errorf("%w: slit step %d not in [%d, %d]", ErrOutOfRange, target, s.minStep, s.maxStep)
	}
	if target == s.step {
		return nil
	}
	count, forward := delta(s.step, target)
	if count > math.MaxUint32 {
		return fmt.Errorf("%w: %d steps in one move", ErrOutOfRange, count)
	}
	for _, name := range s.names {
		if _, err := s.client.commandWithin(ctx, s.timeouts.Reply, moveLine(name, count, forward)); err != nil {
			// the bank may now be split across two positions
			s.homed = false
			return err
		}
	}
	s.step = target
	return nil
}

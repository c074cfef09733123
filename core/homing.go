package core

import (
	"fmt"
	"time"
)

// HomingPhase is a state of the per-axis zero-finding state machine
type HomingPhase uint8

const (
	PhaseCheckInitial HomingPhase = iota // Sample the switch once
	PhaseBackOff                         // Step away until the switch releases
	PhaseSeek                            // Step toward the switch until it triggers
	PhaseDone                            // Drivers off, position defined as 0
	PhaseFailed                          // Drivers off, position left as it was
)

func (p HomingPhase) String() string {
	switch p {
	case PhaseCheckInitial:
		return "check_initial"
	case PhaseBackOff:
		return "back_off"
	case PhaseSeek:
		return "seek"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// HomingResult describes how a homing operation ended
type HomingResult struct {
	Axis         string
	Phase        HomingPhase   // PhaseDone or PhaseFailed
	FailedIn     HomingPhase   // Phase that was running when the operation failed
	BackOffSteps uint32        // Pulses spent leaving the switch
	SeekSteps    uint32        // Pulses spent approaching the switch
	Elapsed      time.Duration // From entry to drivers released
}

// HomeAxis homes the named axis.
func (m *Machine) HomeAxis(name string) (HomingResult, error) {
	idx, ok := m.registry.Lookup(name)
	if !ok {
		return HomingResult{Axis: name, Phase: PhaseFailed}, fmt.Errorf("%w: %q", ErrUnknownMotor, name)
	}
	return m.Home(idx)
}

// Home drives axis idx onto its limit switch at slow cadence and defines
// that point as position 0. If the switch already reads its zero level the
// axis first backs off until it releases. The timeout covers both phases and
// is checked at every pulse boundary; on timeout the position is left
// untouched and the axis is marked un-homed. Drivers are released before
// Home returns on every path.
func (m *Machine) Home(idx int) (HomingResult, error) {
	axis, err := m.registry.Axis(idx)
	if err != nil {
		return HomingResult{Phase: PhaseFailed}, err
	}

	res := HomingResult{Axis: axis.Name, Phase: PhaseCheckInitial}
	start := m.clock.Now()

	m.log.Debug().Str("axis", axis.Name).Uint32("at_ms", Millis(m.clock)).Dur("timeout", m.timeout).Msg("homing started")

	err = m.gate.Run(func() error {
		return m.runHoming(axis, start, &res)
	})
	res.Elapsed = m.clock.Now() - start

	if err != nil {
		res.FailedIn = res.Phase
		res.Phase = PhaseFailed
		m.axes[idx].Homed = false
		m.log.Warn().Err(err).
			Str("axis", axis.Name).
			Stringer("phase", res.FailedIn).
			Dur("elapsed", res.Elapsed).
			Msg("homing failed")
		return res, err
	}

	res.Phase = PhaseDone
	m.axes[idx] = AxisState{Position: 0, Homed: true}
	m.log.Debug().
		Str("axis", axis.Name).
		Uint32("back_off_steps", res.BackOffSteps).
		Uint32("seek_steps", res.SeekSteps).
		Dur("elapsed", res.Elapsed).
		Msg("homing done")
	return res, nil
}

// runHoming walks the state machine until the switch is found or the
// deadline passes. res.Phase always names the running phase.
func (m *Machine) runHoming(axis AxisConfig, start time.Duration, res *HomingResult) error {
	expired := func() bool {
		return m.clock.Now()-start > m.timeout
	}

	for {
		switch res.Phase {
		case PhaseCheckInitial:
			if m.LimitTriggered(axis) {
				if err := m.steps.SetDirection(axis, true); err != nil {
					return err
				}
				res.Phase = PhaseBackOff
			} else {
				if err := m.steps.SetDirection(axis, false); err != nil {
					return err
				}
				res.Phase = PhaseSeek
			}

		case PhaseBackOff:
			if !m.LimitTriggered(axis) {
				if err := m.steps.SetDirection(axis, false); err != nil {
					return err
				}
				res.Phase = PhaseSeek
				continue
			}
			if expired() {
				return fmt.Errorf("axis %s: %w while backing off", axis.Name, ErrTimeout)
			}
			if err := m.steps.Pulse(axis, SpeedSlow); err != nil {
				return err
			}
			res.BackOffSteps++

		case PhaseSeek:
			if m.LimitTriggered(axis) {
				return nil
			}
			if expired() {
				return fmt.Errorf("axis %s: %w while seeking", axis.Name, ErrTimeout)
			}
			if err := m.steps.Pulse(axis, SpeedSlow); err != nil {
				return err
			}
			res.SeekSteps++

		default:
			return fmt.Errorf("axis %s: unexpected homing phase %s", axis.Name, res.Phase)
		}
	}
}

// HomeAll homes every axis in registry order and stops at the first failure.
// The returned results cover every axis attempted.
func (m *Machine) HomeAll() ([]HomingResult, error) {
	results := make([]HomingResult, 0, m.registry.Len())
	for idx := 0; idx < m.registry.Len(); idx++ {
		res, err := m.Home(idx)
		results = append(results, res)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

package core

import "fmt"

// Move steps axis idx by count pulses at the current speed mode, with the
// drivers enabled only for the duration of the train, then adds count to
// the odometer when forward and subtracts it otherwise.
//
// No travel limits are checked: the caller is trusted. Before the axis has
// been homed the position is an odometer of commanded steps only.
func (m *Machine) Move(idx int, count uint32, forward bool) error {
	axis, err := m.registry.Axis(idx)
	if err != nil {
		return err
	}

	mode := m.mode
	var done uint32
	err = m.gate.Run(func() error {
		var terr error
		done, terr = m.steps.Train(axis, count, forward, mode)
		return terr
	})

	// Pulses that actually went out are accounted even on a failed train.
	if forward {
		m.axes[idx].Position += int64(done)
	} else {
		m.axes[idx].Position -= int64(done)
	}

	if err != nil {
		m.log.Warn().Err(err).Str("axis", axis.Name).Uint32("done", done).Uint32("count", count).Msg("move aborted")
		return fmt.Errorf("move %s: %w", axis.Name, err)
	}

	m.log.Debug().
		Str("axis", axis.Name).
		Uint32("steps", count).
		Bool("forward", forward).
		Stringer("mode", mode).
		Int64("position", m.axes[idx].Position).
		Msg("move done")
	return nil
}

// MoveAxis resolves name and performs Move.
func (m *Machine) MoveAxis(name string, count uint32, forward bool) error {
	idx, ok := m.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMotor, name)
	}
	return m.Move(idx, count, forward)
}

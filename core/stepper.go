package core

// Step pulse generation by direct GPIO toggling.
// Every step is a high phase and a low phase of one half-period each, so a
// train of n steps takes about n*2*half-period and blocks the caller.

// SpeedMode selects the step cadence used by ordinary moves
type SpeedMode uint8

const (
	SpeedSlow SpeedMode = iota
	SpeedFast
)

func (m SpeedMode) String() string {
	if m == SpeedFast {
		return "fast"
	}
	return "slow"
}

// StepGenerator emits step pulses on an axis' step and direction pins.
type StepGenerator struct {
	gpio  GPIODriver
	clock Clock
}

// NewStepGenerator creates a pulse generator on the given GPIO driver and clock
func NewStepGenerator(gpio GPIODriver, clock Clock) *StepGenerator {
	return &StepGenerator{gpio: gpio, clock: clock}
}

// InitPins configures the step and direction outputs of an axis, step low.
func (s *StepGenerator) InitPins(axis AxisConfig) error {
	if err := s.gpio.ConfigureOutput(axis.StepPin); err != nil {
		return err
	}
	if err := s.gpio.ConfigureOutput(axis.DirPin); err != nil {
		return err
	}
	if err := s.gpio.SetPin(axis.StepPin, false); err != nil {
		return err
	}
	return s.gpio.SetPin(axis.DirPin, axis.ZeroDirection)
}

// SetDirection drives the direction pin. Forward means away from the limit
// switch: the physical level is forward XOR the axis zero direction.
func (s *StepGenerator) SetDirection(axis AxisConfig, forward bool) error {
	return s.gpio.SetPin(axis.DirPin, forward != axis.ZeroDirection)
}

// Pulse emits one step: step high, hold, step low, hold.
func (s *StepGenerator) Pulse(axis AxisConfig, mode SpeedMode) error {
	half := axis.HalfPeriod(mode)

	if err := s.gpio.SetPin(axis.StepPin, true); err != nil {
		return err
	}
	s.clock.Delay(half)

	if err := s.gpio.SetPin(axis.StepPin, false); err != nil {
		return err
	}
	s.clock.Delay(half)
	return nil
}

// Train sets the direction once and emits exactly count pulses.
// It returns the number of pulses completed, which is short of count only
// when a pin write fails.
func (s *StepGenerator) Train(axis AxisConfig, count uint32, forward bool, mode SpeedMode) (uint32, error) {
	if err := s.SetDirection(axis, forward); err != nil {
		return 0, err
	}

	var done uint32
	for done < count {
		if err := s.Pulse(axis, mode); err != nil {
			return done, err
		}
		done++
	}
	return done, nil
}

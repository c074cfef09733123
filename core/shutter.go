package core

// Shutter drives the light shutter output. High opens it.
type Shutter struct {
	gpio GPIODriver
	pin  GPIOPin
	open bool
}

// NewShutter configures the shutter pin as an output and closes it
func NewShutter(gpio GPIODriver, pin GPIOPin) (*Shutter, error) {
	s := &Shutter{gpio: gpio, pin: pin}
	if err := gpio.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	if err := s.Set(false); err != nil {
		return nil, err
	}
	return s, nil
}

// Set opens (true) or closes (false) the shutter
func (s *Shutter) Set(open bool) error {
	if err := s.gpio.SetPin(s.pin, open); err != nil {
		return err
	}
	s.open = open
	return nil
}

// IsOpen returns the last commanded shutter state
func (s *Shutter) IsOpen() bool {
	return s.open
}

package core

// DriverGate controls the enable line shared by every stepper driver.
// Drivers are wired active-low: enabled means the line is driven low.
type DriverGate struct {
	gpio    GPIODriver
	pin     GPIOPin
	enabled bool
}

// NewDriverGate configures the enable line as an output and leaves the
// drivers disabled.
func NewDriverGate(gpio GPIODriver, pin GPIOPin) (*DriverGate, error) {
	g := &DriverGate{gpio: gpio, pin: pin}
	if err := gpio.ConfigureOutput(pin); err != nil {
		return nil, err
	}
	if err := g.Disable(); err != nil {
		return nil, err
	}
	return g, nil
}

// Enable energises the drivers
func (g *DriverGate) Enable() error {
	if err := g.gpio.SetPin(g.pin, false); err != nil {
		return err
	}
	g.enabled = true
	return nil
}

// Disable releases the drivers
func (g *DriverGate) Disable() error {
	g.enabled = false
	return g.gpio.SetPin(g.pin, true)
}

// Enabled reports whether the drivers were last commanded on.
func (g *DriverGate) Enabled() bool {
	return g.enabled
}

// Run enables the drivers, runs fn, and disables the drivers on every exit
// path, including a panic inside fn. The first error wins.
func (g *DriverGate) Run(fn func() error) (err error) {
	defer func() {
		if derr := g.Disable(); err == nil {
			err = derr
		}
	}()

	if err = g.Enable(); err != nil {
		return err
	}
	return fn()
}

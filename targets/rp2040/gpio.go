//go:build rp2040

package main

import (
	"machine"

	"monoctl/core"
)

// maxGPIO is one past the highest user GPIO on the RP2040
const maxGPIO = 30

type pinError core.GPIOPin

func (e pinError) Error() string {
	return "gpio out of range"
}

// RPGPIODriver implements core.GPIODriver on the RP2040 pins
type RPGPIODriver struct {
	configuredPins map[core.GPIOPin]machine.Pin
}

// NewRPGPIODriver creates a new RP2040 GPIO driver
func NewRPGPIODriver() *RPGPIODriver {
	return &RPGPIODriver{
		configuredPins: make(map[core.GPIOPin]machine.Pin),
	}
}

func (d *RPGPIODriver) configure(pin core.GPIOPin, mode machine.PinMode) error {
	if pin >= maxGPIO {
		return pinError(pin)
	}
	mp := machine.Pin(pin)
	mp.Configure(machine.PinConfig{Mode: mode})
	d.configuredPins[pin] = mp
	return nil
}

// ConfigureOutput configures a pin as a digital output
func (d *RPGPIODriver) ConfigureOutput(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinOutput)
}

func (d *RPGPIODriver) ConfigureInputPullUp(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPullup)
}

func (d *RPGPIODriver) ConfigureInputPullDown(pin core.GPIOPin) error {
	return d.configure(pin, machine.PinInputPulldown)
}

// SetPin drives a configured output
func (d *RPGPIODriver) SetPin(pin core.GPIOPin, value bool) error {
	mp, ok := d.configuredPins[pin]
	if !ok {
		if err := d.ConfigureOutput(pin); err != nil {
			return err
		}
		mp = d.configuredPins[pin]
	}
	mp.Set(value)
	return nil
}

// ReadPin returns the pin level; unconfigured pins read low
func (d *RPGPIODriver) ReadPin(pin core.GPIOPin) bool {
	mp, ok := d.configuredPins[pin]
	if !ok {
		return false
	}
	return mp.Get()
}

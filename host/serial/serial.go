// Package serial opens the link to a controller board.
package serial

import (
	"io"
	"net"
	"time"
)

// Port represents a serial port interface.
// Implementations:
// - Native serial (using github.com/tarm/serial)
// - In-memory pipe (for tests and the simulator)
type Port interface {
	io.ReadWriteCloser

	// Flush discards any data received but not yet read
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate. The stock firmware runs at 9600; USB CDC ignores it.
	Baud int

	// Read timeout (0 = blocking)
	ReadTimeout time.Duration
}

// DefaultConfig returns the configuration of the stock firmware link
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        9600,
		ReadTimeout: 100 * time.Millisecond,
	}
}

// pipePort adapts one end of a net.Pipe
type pipePort struct {
	net.Conn
}

func (p pipePort) Flush() error {
	return nil
}

// Pipe returns two connected in-memory ports. Writes on one end block until
// the other end reads them.
func Pipe() (Port, Port) {
	a, b := net.Pipe()
	return pipePort{a}, pipePort{b}
}

// Package protocol implements the monochromator line protocol: newline
// terminated, comma separated text commands answered by exactly one
// terminal status line.
package protocol

// Version represents the firmware version
const Version = "0.1.0"

// Protocol constants
const (
	Separator     = ',' // Field separator
	MaxFields     = 4   // Fields beyond the fourth are dropped
	LineMax       = 128 // Longest accepted command line
	InputFifoSize = 256 // Receive FIFO size
)

// Verbs
const (
	VerbInit    = "INIT"
	VerbZero    = "ZERO"
	VerbSpeed   = "SPEED"
	VerbMove    = "MOVE"
	VerbShutter = "SHUTTER"
)

// Argument keywords
const (
	ArgHigh     = "HIGH"
	ArgOpen     = "OPEN"
	ArgClose    = "CLOSE"
	ArgForward  = "1"
	ArgBackward = "0"
)

// Banner is sent once after the controller has initialised
const Banner = "Monochromator Control Initialized"

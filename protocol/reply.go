package protocol

import "strings"

// Terminal status lines
const (
	ReplyInitDone        = "INIT,DONE"
	ReplyInitFailed      = "INIT,FAILED"
	ReplyZeroDone        = "ZERO,DONE"
	ReplyMoveDone        = "MOVE,DONE"
	ReplySpeedHigh       = SpeedReplyHead + ",HIGH SPEED"
	ReplySpeedLow        = SpeedReplyHead + ",LOW SPEED"
	ReplyShutterOpened   = "SHUTTER,OPENED"
	ReplyShutterClosed   = "SHUTTER,CLOSED"
	ReplyTimeout         = "ERROR,TIMEOUT"
	ReplyUnknownMotor    = "ERROR,UNKNOWN_MOTOR"
	ReplyUnknownCommand  = "ERROR,UNKNOWN_CMD"
	ReplyInvalidArgument = "ERROR,INVALID_ARGUMENT"
	ReplyHardware        = "ERROR,HARDWARE"
)

// SpeedReplyHead is the first field of both SPEED replies
const SpeedReplyHead = "ACTIVATED"

// Prefixes of informational (non-terminal) lines
const (
	InfoPrefix = "INFO,"
	EchoPrefix = "ECHO,"
)

// EchoLine builds the informational echo of an unrecognised line
func EchoLine(raw string) string {
	return EchoPrefix + raw
}

// InfoLine builds an informational line from its fields
func InfoLine(fields ...string) string {
	return InfoPrefix + strings.Join(fields, string(Separator))
}

// IsTerminal reports whether line ends a command exchange.
func IsTerminal(line string) bool {
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, InfoPrefix), strings.HasPrefix(line, EchoPrefix):
		return false
	case line == Banner:
		return false
	}
	head, _, _ := strings.Cut(line, string(Separator))
	switch head {
	case VerbInit, VerbZero, VerbMove, VerbShutter, SpeedReplyHead, "ERROR":
		return true
	}
	return false
}

// IsError reports whether a terminal line is an error reply
func IsError(line string) bool {
	return strings.HasPrefix(line, "ERROR,")
}

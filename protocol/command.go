package protocol

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// Parse failures
var (
	ErrUnknownCommand  = errors.New("unknown command")
	ErrInvalidArgument = errors.New("invalid argument")
)

// ParseError is returned for a line that does not yield a command.
type ParseError struct {
	Line   string // Raw trimmed line
	Err    error  // ErrUnknownCommand or ErrInvalidArgument
	Reason string
}

func (e *ParseError) Error() string {
	if e.Reason == "" {
		return e.Err.Error() + ": " + strconv.Quote(e.Line)
	}
	return e.Err.Error() + ": " + e.Reason + ": " + strconv.Quote(e.Line)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Command is one fully populated protocol request.
// The concrete types are Init, Zero, Speed, Move and Shutter.
type Command interface {
	Verb() string
}

// Init homes every axis in registry order
type Init struct{}

// Zero homes one axis
type Zero struct {
	Axis string
}

// Speed selects the cadence of later moves
type Speed struct {
	High bool
}

// Move steps one axis relative to its current position
type Move struct {
	Axis    string
	Steps   uint32
	Forward bool
}

// Shutter opens or closes the shutter
type Shutter struct {
	Open bool
}

func (Init) Verb() string    { return VerbInit }
func (Zero) Verb() string    { return VerbZero }
func (Speed) Verb() string   { return VerbSpeed }
func (Move) Verb() string    { return VerbMove }
func (Shutter) Verb() string { return VerbShutter }

// Parser turns command lines into commands.
//
// With Strict unset, MOVE arguments are read leniently: the step count is
// the leading integer of its field (0 when there is none, no motion when
// negative) and the direction is forward when its leading integer is
// non-zero. With Strict set, anything but a non-negative integer count and
// a direction of exactly "0" or "1" is ErrInvalidArgument.
type Parser struct {
	Strict bool
}

// NewParser creates a lenient parser
func NewParser() *Parser {
	return &Parser{}
}

// SplitFields splits a line on commas into at most MaxFields fields.
// Anything after the last kept field is dropped.
func SplitFields(line string) []string {
	fields := strings.SplitN(line, string(Separator), MaxFields+1)
	if len(fields) > MaxFields {
		fields = fields[:MaxFields]
	}
	return fields
}

// ParseLine parses one command line. Surrounding whitespace is trimmed; an
// empty line yields (nil, nil). Verbs match exactly and must carry exactly
// their own number of arguments, otherwise the line is ErrUnknownCommand.
func (p *Parser) ParseLine(line string) (Command, error) {
	line = strings.TrimSpace(line)
	if len(line) == 0 {
		return nil, nil
	}

	fields := SplitFields(line)
	verb, args := fields[0], fields[1:]

	switch {
	case verb == VerbInit && len(args) == 0:
		return Init{}, nil

	case verb == VerbZero && len(args) == 1:
		return Zero{Axis: args[0]}, nil

	case verb == VerbSpeed && len(args) == 1:
		return Speed{High: args[0] == ArgHigh}, nil

	case verb == VerbMove && len(args) == 3:
		return p.parseMove(line, args)

	case verb == VerbShutter && len(args) == 1:
		switch args[0] {
		case ArgOpen:
			return Shutter{Open: true}, nil
		case ArgClose:
			return Shutter{Open: false}, nil
		}
		return nil, &ParseError{Line: line, Err: ErrUnknownCommand, Reason: "shutter state"}
	}

	return nil, &ParseError{Line: line, Err: ErrUnknownCommand}
}

func (p *Parser) parseMove(line string, args []string) (Command, error) {
	cmd := Move{Axis: args[0]}

	if p.Strict {
		steps, err := strconv.ParseUint(args[1], 10, 32)
		if err != nil {
			return nil, &ParseError{Line: line, Err: ErrInvalidArgument, Reason: "step count"}
		}
		cmd.Steps = uint32(steps)

		switch args[2] {
		case ArgForward:
			cmd.Forward = true
		case ArgBackward:
			cmd.Forward = false
		default:
			return nil, &ParseError{Line: line, Err: ErrInvalidArgument, Reason: "direction"}
		}
		return cmd, nil
	}

	steps := parseLeadingInt(args[1])
	switch {
	case steps < 0:
		cmd.Steps = 0
	case steps > math.MaxUint32:
		cmd.Steps = math.MaxUint32
	default:
		cmd.Steps = uint32(steps)
	}
	cmd.Forward = parseLeadingInt(args[2]) != 0
	return cmd, nil
}

// parseLeadingInt reads an optionally signed decimal integer from the start
// of s after any leading blanks, stopping at the first non-digit. It returns
// 0 when no digits are present and saturates instead of overflowing.
func parseLeadingInt(s string) int64 {
	pos := 0
	for pos < len(s) && (s[pos] == ' ' || s[pos] == '\t') {
		pos++
	}

	negative := false
	if pos < len(s) && (s[pos] == '-' || s[pos] == '+') {
		negative = s[pos] == '-'
		pos++
	}

	var value int64
	for pos < len(s) && s[pos] >= '0' && s[pos] <= '9' {
		digit := int64(s[pos] - '0')
		if value > (math.MaxInt64-digit)/10 {
			value = math.MaxInt64
			break
		}
		value = value*10 + digit
		pos++
	}

	if negative {
		value = -value
	}
	return value
}

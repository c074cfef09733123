package protocol

import (
	"errors"
	"math"
	"testing"
)

func TestParseCommands(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input string
		want  Command
	}{
		{"INIT", Init{}},
		{"  INIT \r", Init{}},
		{"ZERO,WL", Zero{Axis: "WL"}},
		{"ZERO, WL", Zero{Axis: " WL"}},
		{"SPEED,HIGH", Speed{High: true}},
		{"SPEED,LOW", Speed{High: false}},
		{"SPEED,high", Speed{High: false}},
		{"MOVE,WL,100,1", Move{Axis: "WL", Steps: 100, Forward: true}},
		{"MOVE,SLIT1,25,0", Move{Axis: "SLIT1", Steps: 25, Forward: false}},
		{"SHUTTER,OPEN", Shutter{Open: true}},
		{"SHUTTER,CLOSE", Shutter{Open: false}},
	}

	for _, test := range tests {
		cmd, err := parser.ParseLine(test.input)
		if err != nil {
			t.Errorf("Failed to parse %q: %v", test.input, err)
			continue
		}
		if cmd != test.want {
			t.Errorf("%q: expected %#v, got %#v", test.input, test.want, cmd)
		}
	}
}

func TestParseEmptyLine(t *testing.T) {
	parser := NewParser()

	for _, input := range []string{"", "   ", "\r\n"} {
		cmd, err := parser.ParseLine(input)
		if cmd != nil || err != nil {
			t.Errorf("%q: expected no command, got %v, %v", input, cmd, err)
		}
	}
}

func TestParseUnknownCommands(t *testing.T) {
	parser := NewParser()

	inputs := []string{
		"FOO",
		"init",
		"INIT,WL",
		"ZERO",
		"ZERO,WL,1",
		"SPEED",
		"MOVE,WL,10",
		"MOVE",
		"SHUTTER",
		"SHUTTER,HALF",
		"SHUTTER, OPEN",
		",",
	}

	for _, input := range inputs {
		cmd, err := parser.ParseLine(input)
		if cmd != nil {
			t.Errorf("%q: expected no command, got %#v", input, cmd)
		}
		if !errors.Is(err, ErrUnknownCommand) {
			t.Errorf("%q: expected ErrUnknownCommand, got %v", input, err)
		}
		var perr *ParseError
		if errors.As(err, &perr) && perr.Line == "" {
			t.Errorf("%q: parse error lost the line", input)
		}
	}
}

func TestParseDropsExtraFields(t *testing.T) {
	parser := NewParser()

	cmd, err := parser.ParseLine("MOVE,WL,10,1,EXTRA,MORE")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	want := Move{Axis: "WL", Steps: 10, Forward: true}
	if cmd != want {
		t.Errorf("Expected %#v, got %#v", want, cmd)
	}

	fields := SplitFields("A,B,C,D,E,F")
	if len(fields) != MaxFields || fields[3] != "D" {
		t.Errorf("Expected 4 fields ending in D, got %q", fields)
	}
}

func TestParseLenientMove(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		input   string
		steps   uint32
		forward bool
	}{
		{"MOVE,WL,abc,1", 0, true},
		{"MOVE,WL,12abc,0", 12, false},
		{"MOVE,WL, 7,1", 7, true},
		{"MOVE,WL,+9,1", 9, true},
		{"MOVE,WL,-5,1", 0, true},
		{"MOVE,WL,10,2", 10, true},
		{"MOVE,WL,10,-1", 10, true},
		{"MOVE,WL,10,x", 10, false},
		{"MOVE,WL,10,True", 10, false},
		{"MOVE,WL,10,", 10, false},
		{"MOVE,WL,99999999999,1", math.MaxUint32, true},
	}

	for _, test := range tests {
		cmd, err := parser.ParseLine(test.input)
		if err != nil {
			t.Errorf("%q: unexpected error %v", test.input, err)
			continue
		}
		move, ok := cmd.(Move)
		if !ok {
			t.Errorf("%q: expected Move, got %T", test.input, cmd)
			continue
		}
		if move.Steps != test.steps || move.Forward != test.forward {
			t.Errorf("%q: expected steps=%d forward=%v, got steps=%d forward=%v",
				test.input, test.steps, test.forward, move.Steps, move.Forward)
		}
	}
}

func TestParseStrictMove(t *testing.T) {
	parser := &Parser{Strict: true}

	cmd, err := parser.ParseLine("MOVE,WL,100,0")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if want := (Move{Axis: "WL", Steps: 100}); cmd != want {
		t.Errorf("Expected %#v, got %#v", want, cmd)
	}

	for _, input := range []string{
		"MOVE,WL,-5,1",
		"MOVE,WL,12abc,1",
		"MOVE,WL,,1",
		"MOVE,WL,10,2",
		"MOVE,WL,10,yes",
		"MOVE,WL,99999999999,1",
	} {
		cmd, err := parser.ParseLine(input)
		if cmd != nil {
			t.Errorf("%q: expected no command, got %#v", input, cmd)
		}
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("%q: expected ErrInvalidArgument, got %v", input, err)
		}
	}

	// Arity is still checked before arguments
	if _, err := parser.ParseLine("MOVE,WL,abc"); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("Expected ErrUnknownCommand for short MOVE, got %v", err)
	}
}

func TestParseLeadingInt(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"", 0},
		{"42", 42},
		{"  42", 42},
		{"-17x", -17},
		{"+3", 3},
		{"x3", 0},
		{"-", 0},
		{"99999999999999999999", math.MaxInt64},
	}

	for _, test := range tests {
		if got := parseLeadingInt(test.input); got != test.want {
			t.Errorf("parseLeadingInt(%q) = %d, want %d", test.input, got, test.want)
		}
	}
}

func TestReplyClassification(t *testing.T) {
	if !IsTerminal(ReplyMoveDone) || !IsTerminal(ReplyTimeout) {
		t.Error("Status replies should be terminal")
	}
	if IsTerminal(InfoLine("HOMING", "WL")) || IsTerminal(EchoLine("FOO")) {
		t.Error("Info and echo lines should not be terminal")
	}
	if IsTerminal(Banner) {
		t.Error("Banner should not be terminal")
	}
	if !IsError(ReplyUnknownCommand) || IsError(ReplyZeroDone) {
		t.Error("IsError misclassified replies")
	}
	if got := EchoLine("FOO"); got != "ECHO,FOO" {
		t.Errorf("EchoLine = %q", got)
	}
	if got := InfoLine("TIMEOUT", "WL"); got != "INFO,TIMEOUT,WL" {
		t.Errorf("InfoLine = %q", got)
	}
}

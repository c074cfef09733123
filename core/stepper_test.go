package core

import (
	"errors"
	"testing"
	"time"
)

// recordingGPIO logs every write and fails writes on selected pins.
type recordingGPIO struct {
	levels map[GPIOPin]bool
	writes []pinWrite
	fail   map[GPIOPin]error
}

type pinWrite struct {
	pin   GPIOPin
	value bool
}

func newRecordingGPIO() *recordingGPIO {
	return &recordingGPIO{
		levels: make(map[GPIOPin]bool),
		fail:   make(map[GPIOPin]error),
	}
}

func (g *recordingGPIO) ConfigureOutput(pin GPIOPin) error        { return nil }
func (g *recordingGPIO) ConfigureInputPullUp(pin GPIOPin) error   { return nil }
func (g *recordingGPIO) ConfigureInputPullDown(pin GPIOPin) error { return nil }
func (g *recordingGPIO) ReadPin(pin GPIOPin) bool                 { return g.levels[pin] }

func (g *recordingGPIO) SetPin(pin GPIOPin, value bool) error {
	if err := g.fail[pin]; err != nil {
		return err
	}
	g.levels[pin] = value
	g.writes = append(g.writes, pinWrite{pin, value})
	return nil
}

// countingClock advances only through Delay and records each delay.
type countingClock struct {
	now    time.Duration
	delays []time.Duration
}

func (c *countingClock) Now() time.Duration { return c.now }
func (c *countingClock) Delay(d time.Duration) {
	c.now += d
	c.delays = append(c.delays, d)
}

func TestSetDirectionXorPolarity(t *testing.T) {
	tests := []struct {
		zeroDir bool
		forward bool
		level   bool
	}{
		{false, true, true},
		{false, false, false},
		{true, true, false},
		{true, false, true},
	}

	for _, tt := range tests {
		gpio := newRecordingGPIO()
		gen := NewStepGenerator(gpio, &countingClock{})
		axis := AxisConfig{Name: "A", DirPin: 1, StepPin: 2, ZeroDirection: tt.zeroDir}

		if err := gen.SetDirection(axis, tt.forward); err != nil {
			t.Fatalf("SetDirection failed: %v", err)
		}
		if gpio.levels[1] != tt.level {
			t.Errorf("zeroDir=%v forward=%v: dir level = %v, want %v", tt.zeroDir, tt.forward, gpio.levels[1], tt.level)
		}
	}
}

func TestTrainPulseShape(t *testing.T) {
	gpio := newRecordingGPIO()
	clock := &countingClock{}
	gen := NewStepGenerator(gpio, clock)
	axis := AxisConfig{Name: "A", DirPin: 1, StepPin: 2, SlowHalfPeriod: 200 * time.Microsecond, FastHalfPeriod: 50 * time.Microsecond}

	done, err := gen.Train(axis, 3, true, SpeedFast)
	if err != nil {
		t.Fatalf("Train failed: %v", err)
	}
	if done != 3 {
		t.Errorf("done = %d, want 3", done)
	}

	// Direction once, then high/low per step.
	want := []pinWrite{{1, true}, {2, true}, {2, false}, {2, true}, {2, false}, {2, true}, {2, false}}
	if len(gpio.writes) != len(want) {
		t.Fatalf("got %d writes, want %d: %v", len(gpio.writes), len(want), gpio.writes)
	}
	for i := range want {
		if gpio.writes[i] != want[i] {
			t.Errorf("write %d = %+v, want %+v", i, gpio.writes[i], want[i])
		}
	}

	if len(clock.delays) != 6 {
		t.Fatalf("got %d delays, want 6", len(clock.delays))
	}
	for i, d := range clock.delays {
		if d != 50*time.Microsecond {
			t.Errorf("delay %d = %v, want 50µs", i, d)
		}
	}
}

func TestTrainZeroCount(t *testing.T) {
	gpio := newRecordingGPIO()
	clock := &countingClock{}
	gen := NewStepGenerator(gpio, clock)
	axis := AxisConfig{Name: "A", DirPin: 1, StepPin: 2, SlowHalfPeriod: time.Millisecond}

	done, err := gen.Train(axis, 0, false, SpeedSlow)
	if err != nil || done != 0 {
		t.Fatalf("Train(0) = %d, %v", done, err)
	}
	if clock.now != 0 {
		t.Errorf("zero-count train took %v", clock.now)
	}
}

func TestTrainStopsOnWriteError(t *testing.T) {
	gpio := newRecordingGPIO()
	gen := NewStepGenerator(gpio, &countingClock{})
	axis := AxisConfig{Name: "A", DirPin: 1, StepPin: 2}
	boom := errors.New("boom")
	gpio.fail[2] = boom

	done, err := gen.Train(axis, 5, true, SpeedSlow)
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if done != 0 {
		t.Errorf("done = %d, want 0", done)
	}
}

func TestDriverGateRun(t *testing.T) {
	gpio := newRecordingGPIO()
	gate, err := NewDriverGate(gpio, 8)
	if err != nil {
		t.Fatalf("NewDriverGate failed: %v", err)
	}
	if !gpio.levels[8] || gate.Enabled() {
		t.Fatal("gate should start disabled (line high)")
	}

	var during bool
	err = gate.Run(func() error {
		during = !gpio.levels[8] && gate.Enabled()
		return nil
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !during {
		t.Error("line should be low while fn runs")
	}
	if !gpio.levels[8] || gate.Enabled() {
		t.Error("gate should be released after Run")
	}
}

func TestDriverGateReleasesOnErrorAndPanic(t *testing.T) {
	gpio := newRecordingGPIO()
	gate, _ := NewDriverGate(gpio, 8)
	boom := errors.New("boom")

	if err := gate.Run(func() error { return boom }); !errors.Is(err, boom) {
		t.Errorf("err = %v, want boom", err)
	}
	if !gpio.levels[8] {
		t.Error("gate left enabled after error")
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic to propagate")
			}
		}()
		_ = gate.Run(func() error { panic("stall") })
	}()
	if !gpio.levels[8] {
		t.Error("gate left enabled after panic")
	}
}

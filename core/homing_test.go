package core_test

import (
	"errors"
	"testing"
	"time"

	"monoctl/core"
)

func TestHomeSeekFromReleasedSwitch(t *testing.T) {
	r := newRig(t, testConfig(0), map[string]int64{"WL": 100})

	res, err := r.machine.HomeAxis("WL")
	if err != nil {
		t.Fatalf("HomeAxis failed: %v", err)
	}

	if res.Phase != core.PhaseDone {
		t.Errorf("phase = %v, want done", res.Phase)
	}
	if res.BackOffSteps != 0 {
		t.Errorf("back-off steps = %d, want 0", res.BackOffSteps)
	}
	if res.SeekSteps != 100 {
		t.Errorf("seek steps = %d, want 100", res.SeekSteps)
	}

	// Homing always runs at the slow cadence.
	wantElapsed := 100 * 2 * wlAxis.SlowHalfPeriod
	if res.Elapsed != wantElapsed {
		t.Errorf("elapsed = %v, want %v", res.Elapsed, wantElapsed)
	}

	pos, homed, _ := r.machine.Position("WL")
	if pos != 0 || !homed {
		t.Errorf("position = %d homed = %v, want 0 true", pos, homed)
	}
	if r.board.DriversEnabled() {
		t.Error("drivers left enabled after homing")
	}
	if c := r.carriage(t, "WL"); c.Distance != 0 {
		t.Errorf("carriage distance = %d, want 0", c.Distance)
	}
}

func TestHomeBacksOffWhenAlreadyOnSwitch(t *testing.T) {
	tests := []struct {
		name        string
		distance    int64
		wantBackOff uint32
	}{
		{"sitting on switch", 0, 1},
		{"past switch", -5, 6},
	}

	for _, tt := range tests {
		r := newRig(t, testConfig(0), map[string]int64{"WL": tt.distance})

		res, err := r.machine.HomeAxis("WL")
		if err != nil {
			t.Fatalf("%s: HomeAxis failed: %v", tt.name, err)
		}
		if res.BackOffSteps != tt.wantBackOff {
			t.Errorf("%s: back-off steps = %d, want %d", tt.name, res.BackOffSteps, tt.wantBackOff)
		}
		if res.SeekSteps != 1 {
			t.Errorf("%s: seek steps = %d, want 1", tt.name, res.SeekSteps)
		}
		if c := r.carriage(t, "WL"); c.Distance != 0 {
			t.Errorf("%s: carriage distance = %d, want 0", tt.name, c.Distance)
		}
		if r.board.DriversEnabled() {
			t.Errorf("%s: drivers left enabled", tt.name)
		}
	}
}

func TestHomeIsIdempotent(t *testing.T) {
	r := newRig(t, testConfig(time.Second), map[string]int64{"WL": 40})

	for i := 0; i < 3; i++ {
		before := r.clock.Now()
		res, err := r.machine.Home(0)
		if err != nil {
			t.Fatalf("pass %d: Home failed: %v", i, err)
		}
		if res.Elapsed > r.machine.HomingTimeout() {
			t.Errorf("pass %d: elapsed %v beyond timeout", i, res.Elapsed)
		}
		if r.clock.Now()-before != res.Elapsed {
			t.Errorf("pass %d: clock advanced %v, result says %v", i, r.clock.Now()-before, res.Elapsed)
		}
		if pos, homed, _ := r.machine.Position("WL"); pos != 0 || !homed {
			t.Errorf("pass %d: position = %d homed = %v", i, pos, homed)
		}
	}
}

func TestHomeTimeoutWhileSeeking(t *testing.T) {
	timeout := 10 * time.Millisecond
	r := newRig(t, testConfig(timeout), map[string]int64{"WL": 100})
	r.carriage(t, "WL").Stuck = true

	if err := r.machine.Move(0, 25, true); err != nil {
		t.Fatalf("Move failed: %v", err)
	}

	res, err := r.machine.Home(0)
	if !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if res.Phase != core.PhaseFailed || res.FailedIn != core.PhaseSeek {
		t.Errorf("phase = %v failed in %v, want failed in seek", res.Phase, res.FailedIn)
	}

	pulse := 2 * wlAxis.SlowHalfPeriod
	if res.Elapsed <= timeout {
		t.Errorf("timed out after %v, before the %v bound", res.Elapsed, timeout)
	}
	if res.Elapsed > timeout+pulse {
		t.Errorf("timed out after %v, later than bound plus one pulse (%v)", res.Elapsed, timeout+pulse)
	}

	if r.board.DriversEnabled() {
		t.Error("drivers left enabled after timeout")
	}
	pos, homed, _ := r.machine.Position("WL")
	if homed {
		t.Error("axis must not be homed after a timeout")
	}
	if pos != 25 {
		t.Errorf("position = %d, want untouched 25", pos)
	}
}

func TestHomeTimeoutWhileBackingOff(t *testing.T) {
	timeout := 5 * time.Millisecond
	r := newRig(t, testConfig(timeout), map[string]int64{"WL": -1000000})

	res, err := r.machine.Home(0)
	if !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if res.FailedIn != core.PhaseBackOff {
		t.Errorf("failed in %v, want back_off", res.FailedIn)
	}
	if res.SeekSteps != 0 {
		t.Errorf("seek steps = %d, want 0", res.SeekSteps)
	}
	if r.board.DriversEnabled() {
		t.Error("drivers left enabled after timeout")
	}
}

func TestHomeFailureClearsHomed(t *testing.T) {
	r := newRig(t, testConfig(5*time.Millisecond), map[string]int64{"WL": 3})

	if _, err := r.machine.Home(0); err != nil {
		t.Fatalf("first Home failed: %v", err)
	}
	r.carriage(t, "WL").Distance = 100
	r.carriage(t, "WL").Stuck = true

	if _, err := r.machine.Home(0); err == nil {
		t.Fatal("expected timeout")
	}
	if _, homed, _ := r.machine.Position("WL"); homed {
		t.Error("failed homing must clear the homed flag")
	}
}

func TestHomeAllStopsAtFirstFailure(t *testing.T) {
	third := core.AxisConfig{Name: "SLIT2", DirPin: 7, StepPin: 4, LimitPin: 10}
	r := newRig(t, testConfig(5*time.Millisecond, wlAxis, slitAxis, third), map[string]int64{"WL": 3, "SLIT1": 4, "SLIT2": 2})
	r.carriage(t, "SLIT1").Stuck = true

	results, err := r.machine.HomeAll()
	if !errors.Is(err, core.ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if len(results) != 2 {
		t.Fatalf("attempted %d axes, want 2", len(results))
	}
	if results[0].Phase != core.PhaseDone || results[1].Phase != core.PhaseFailed {
		t.Errorf("phases = %v, %v", results[0].Phase, results[1].Phase)
	}
	if c := r.carriage(t, "SLIT2"); c.Pulses != 0 {
		t.Errorf("SLIT2 moved %d steps after an earlier failure", c.Pulses)
	}
}

func TestHomeUsesZeroDirectionPolarity(t *testing.T) {
	// SLIT1 seeks with its direction pin high and reads low when zeroed.
	r := newRig(t, testConfig(0, wlAxis, slitAxis), map[string]int64{"SLIT1": 7})

	res, err := r.machine.HomeAxis("SLIT1")
	if err != nil {
		t.Fatalf("HomeAxis failed: %v", err)
	}
	if res.SeekSteps != 7 {
		t.Errorf("seek steps = %d, want 7", res.SeekSteps)
	}
	if !r.board.Level(slitAxis.DirPin) {
		t.Error("seek should leave the direction pin at the zero direction level")
	}
}

func TestHomeUnknownAxis(t *testing.T) {
	r := newRig(t, testConfig(0), nil)
	if _, err := r.machine.HomeAxis("XX"); !errors.Is(err, core.ErrUnknownMotor) {
		t.Errorf("err = %v, want ErrUnknownMotor", err)
	}
	if _, err := r.machine.Home(4); !errors.Is(err, core.ErrInvalidAxis) {
		t.Errorf("err = %v, want ErrInvalidAxis", err)
	}
}

func TestHomingPhaseString(t *testing.T) {
	tests := []struct {
		phase    core.HomingPhase
		expected string
	}{
		{core.PhaseCheckInitial, "check_initial"},
		{core.PhaseBackOff, "back_off"},
		{core.PhaseSeek, "seek"},
		{core.PhaseDone, "done"},
		{core.PhaseFailed, "failed"},
		{core.HomingPhase(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.expected {
			t.Errorf("%d.String() = %s, want %s", tt.phase, got, tt.expected)
		}
	}
}

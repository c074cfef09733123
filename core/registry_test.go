package core

import (
	"errors"
	"testing"
	"time"
)

func testAxes() []AxisConfig {
	return []AxisConfig{
		{Name: "WL", DirPin: 5, StepPin: 2, LimitPin: 14, SlowHalfPeriod: 50 * time.Microsecond, FastHalfPeriod: 25 * time.Microsecond, ZeroLevel: true},
		{Name: "SLIT1", DirPin: 13, StepPin: 12, LimitPin: 11},
	}
}

func TestRegistryLookupExact(t *testing.T) {
	r, err := NewRegistry(testAxes())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	for i, axis := range testAxes() {
		idx, ok := r.Lookup(axis.Name)
		if !ok {
			t.Errorf("Lookup(%q) not found", axis.Name)
			continue
		}
		if idx != i {
			t.Errorf("Lookup(%q) = %d, want %d", axis.Name, idx, i)
		}
	}

	misses := []string{"wl", "Wl", " WL", "WL ", "W", "WLX", "", "slit1"}
	for _, name := range misses {
		if _, ok := r.Lookup(name); ok {
			t.Errorf("Lookup(%q) should not resolve", name)
		}
	}
}

func TestRegistryDefaults(t *testing.T) {
	r, err := NewRegistry(testAxes())
	if err != nil {
		t.Fatalf("NewRegistry failed: %v", err)
	}

	slit, err := r.Axis(1)
	if err != nil {
		t.Fatalf("Axis(1) failed: %v", err)
	}
	if slit.SlowHalfPeriod != DefaultSlowHalfPeriod {
		t.Errorf("SlowHalfPeriod = %v, want %v", slit.SlowHalfPeriod, DefaultSlowHalfPeriod)
	}
	if slit.FastHalfPeriod != DefaultFastHalfPeriod {
		t.Errorf("FastHalfPeriod = %v, want %v", slit.FastHalfPeriod, DefaultFastHalfPeriod)
	}

	wl, _ := r.Axis(0)
	if wl.HalfPeriod(SpeedSlow) != 50*time.Microsecond {
		t.Errorf("slow half-period = %v, want 50µs", wl.HalfPeriod(SpeedSlow))
	}
	if wl.HalfPeriod(SpeedFast) != 25*time.Microsecond {
		t.Errorf("fast half-period = %v, want 25µs", wl.HalfPeriod(SpeedFast))
	}
}

func TestRegistryRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		axes []AxisConfig
	}{
		{"empty name", []AxisConfig{{DirPin: 1, StepPin: 2, LimitPin: 3}}},
		{"duplicate name", []AxisConfig{
			{Name: "WL", DirPin: 1, StepPin: 2, LimitPin: 3},
			{Name: "WL", DirPin: 4, StepPin: 5, LimitPin: 6},
		}},
		{"shared pin", []AxisConfig{{Name: "WL", DirPin: 1, StepPin: 1, LimitPin: 3}}},
		{"negative period", []AxisConfig{{Name: "WL", DirPin: 1, StepPin: 2, LimitPin: 3, SlowHalfPeriod: -1}}},
	}

	for _, tt := range tests {
		if _, err := NewRegistry(tt.axes); !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("%s: err = %v, want ErrInvalidConfig", tt.name, err)
		}
	}
}

func TestRegistryAxisOutOfRange(t *testing.T) {
	r, _ := NewRegistry(testAxes())

	if _, err := r.Axis(-1); !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("Axis(-1) err = %v, want ErrInvalidAxis", err)
	}
	if _, err := r.Axis(r.Len()); !errors.Is(err, ErrInvalidAxis) {
		t.Errorf("Axis(Len) err = %v, want ErrInvalidAxis", err)
	}

	axes := r.Axes()
	axes[0].Name = "changed"
	if first, _ := r.Axis(0); first.Name != "WL" {
		t.Error("Axes() must return a copy")
	}
}

//go:build !tinygo

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Wavelength mappings
const (
	MappingLinear = "linear" // offset + coefficient*step
	MappingSine   = "sine"   // offset + coefficient*sin(phase*step)
)

// Host defaults
const (
	DefaultBaud         = 9600
	DefaultReplyTimeout = 20 * time.Second
	DefaultInitTimeout  = 100 * time.Second
)

// Slits is the calibration shared by the SLIT1..SLITn axes of one unit
type Slits struct {
	Count       int     `toml:"count"`
	Offset      float64 `toml:"offset"`
	Coefficient float64 `toml:"coefficient"`
	MinStep     int64   `toml:"min_step"`
	MaxStep     int64   `toml:"max_step"`
}

// Monochromator is the host view of one controller board
type Monochromator struct {
	Name   string `toml:"name"`
	Device string `toml:"device"`
	Baud   int    `toml:"baud"`

	Mapping     string  `toml:"mapping"`
	Offset      float64 `toml:"offset"`
	Coefficient float64 `toml:"coefficient"`
	Phase       float64 `toml:"phase"`
	MinStep     int64   `toml:"min_step"`
	MaxStep     int64   `toml:"max_step"`

	Slits *Slits `toml:"slits"`
}

// Instrument is the host profile: one entry per monochromator
type Instrument struct {
	ReplyTimeout   time.Duration   `toml:"reply_timeout"`
	InitTimeout    time.Duration   `toml:"init_timeout"`
	Monochromators []Monochromator `toml:"monochromator"`
}

// DefaultInstrument returns a profile with a single linear unit
func DefaultInstrument() *Instrument {
	inst := &Instrument{
		Monochromators: []Monochromator{{Name: "excitation"}},
	}
	applyInstrumentDefaults(inst)
	return inst
}

// LoadInstrument reads a host profile from a TOML file
func LoadInstrument(path string) (*Instrument, error) {
	var inst Instrument
	meta, err := toml.DecodeFile(path, &inst)
	if err != nil {
		return nil, fmt.Errorf("load instrument profile: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("load instrument profile: unknown key %q", undecoded[0].String())
	}

	applyInstrumentDefaults(&inst)
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return &inst, nil
}

// Unit returns the monochromator called name, or the first one when name is
// empty.
func (i *Instrument) Unit(name string) (*Monochromator, error) {
	if len(i.Monochromators) == 0 {
		return nil, fmt.Errorf("instrument has no monochromator")
	}
	if name == "" {
		return &i.Monochromators[0], nil
	}
	for idx := range i.Monochromators {
		if i.Monochromators[idx].Name == name {
			return &i.Monochromators[idx], nil
		}
	}
	return nil, fmt.Errorf("no monochromator %q", name)
}

func applyInstrumentDefaults(inst *Instrument) {
	if inst.ReplyTimeout == 0 {
		inst.ReplyTimeout = DefaultReplyTimeout
	}
	if inst.InitTimeout == 0 {
		inst.InitTimeout = DefaultInitTimeout
	}
	for idx := range inst.Monochromators {
		mono := &inst.Monochromators[idx]
		mono.Name = strings.TrimSpace(mono.Name)
		if mono.Baud == 0 {
			mono.Baud = DefaultBaud
		}
		if mono.Mapping == "" {
			mono.Mapping = MappingLinear
		}
		if mono.Coefficient == 0 {
			mono.Coefficient = 1
		}
		if mono.MaxStep == 0 && mono.MinStep == 0 {
			mono.MaxStep = 10000
		}
		if s := mono.Slits; s != nil {
			if s.Count == 0 {
				s.Count = 1
			}
			if s.Coefficient == 0 {
				s.Coefficient = 1
			}
			if s.MaxStep == 0 && s.MinStep == 0 {
				s.MinStep, s.MaxStep = -1000, 10000
			}
		}
	}
}

// Validate checks the profile after defaults have been applied
func (i *Instrument) Validate() error {
	if len(i.Monochromators) == 0 {
		return fmt.Errorf("instrument profile: no monochromator")
	}
	seen := make(map[string]bool, len(i.Monochromators))
	for _, mono := range i.Monochromators {
		if seen[mono.Name] {
			return fmt.Errorf("instrument profile: duplicate monochromator %q", mono.Name)
		}
		seen[mono.Name] = true

		switch mono.Mapping {
		case MappingLinear:
		case MappingSine:
			if mono.Phase == 0 {
				return fmt.Errorf("monochromator %q: sine mapping needs a phase", mono.Name)
			}
		default:
			return fmt.Errorf("monochromator %q: unknown mapping %q", mono.Name, mono.Mapping)
		}
		if mono.MinStep >= mono.MaxStep {
			return fmt.Errorf("monochromator %q: min_step must be below max_step", mono.Name)
		}
		if s := mono.Slits; s != nil {
			if s.Count < 0 {
				return fmt.Errorf("monochromator %q: negative slit count", mono.Name)
			}
			if s.MinStep >= s.MaxStep {
				return fmt.Errorf("monochromator %q: slit min_step must be below max_step", mono.Name)
			}
		}
	}
	return nil
}

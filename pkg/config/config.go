// Package config is the operator-facing configuration surface: YAML tuner
// profiles, loaded once at startup. Range validation happens here, before any
// value reaches a governor policy; the core deliberately accepts whatever it
// is handed.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ecogov/ecodemand/pkg/governor"
)

// Duration wraps time.Duration so profiles can say "10ms" or "1s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: bad duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Profile is one set of tuner values. Zero fields are "unset" and inherit
// from the default profile, then from the governor's stock defaults.
type Profile struct {
	UpThreshold        uint     `yaml:"up_threshold"`
	DownThreshold      uint     `yaml:"down_threshold"`
	FreqStep           uint     `yaml:"freq_step"`
	SamplingRate       Duration `yaml:"sampling_rate"`
	SamplingDownFactor uint     `yaml:"sampling_down_factor"`
	PowersaveBias      int      `yaml:"powersave_bias"`
}

// File is the on-disk configuration document.
type File struct {
	MetricsAddr string             `yaml:"metrics_addr"`
	Default     Profile            `yaml:"default"`
	Policies    map[string]Profile `yaml:"policies"`
}

// valueRange bounds an integer tuner. Values outside the range are clamped,
// not rejected; zero always means "unset".
type valueRange struct {
	min, max int
}

var (
	thresholdRange    = &valueRange{min: 1, max: 100}
	freqStepRange     = &valueRange{min: 1, max: 100}
	biasRange         = &valueRange{min: -100, max: 100}
	samplingRateFloor = time.Millisecond
)

func clampUint(v uint, r *valueRange) uint {
	if v == 0 {
		return 0
	}
	if int(v) < r.min {
		return uint(r.min)
	}
	if int(v) > r.max {
		return uint(r.max)
	}
	return v
}

func clampInt(v int, r *valueRange) int {
	if v < r.min {
		return r.min
	}
	if v > r.max {
		return r.max
	}
	return v
}

// Load reads and validates a configuration file. Per-policy profiles are
// overlaid on the default profile before validation, so a profile that only
// tweaks the bias is still checked against the thresholds it will actually
// run with.
func Load(path string) (*File, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	f.Default = sanitize(f.Default)
	if err := validate("default", f.Default); err != nil {
		return nil, err
	}
	for name, p := range f.Policies {
		p = sanitize(overlay(f.Default, p))
		if err := validate(name, p); err != nil {
			return nil, err
		}
		f.Policies[name] = p
	}
	return &f, nil
}

// ProfileFor returns the effective profile for a policy domain.
func (f *File) ProfileFor(policy string) Profile {
	if p, ok := f.Policies[policy]; ok {
		return p
	}
	return f.Default
}

// Tuners converts a profile into the governor's tuner set. Unset fields stay
// zero; governor.New defaults them.
func (p Profile) Tuners() *governor.Tuners {
	return &governor.Tuners{
		UpThreshold:        p.UpThreshold,
		DownThreshold:      p.DownThreshold,
		FreqStep:           p.FreqStep,
		SamplingRate:       time.Duration(p.SamplingRate),
		SamplingDownFactor: p.SamplingDownFactor,
		PowersaveBias:      p.PowersaveBias,
	}
}

// overlay fills over's unset fields from base.
func overlay(base, over Profile) Profile {
	out := over
	if out.UpThreshold == 0 {
		out.UpThreshold = base.UpThreshold
	}
	if out.DownThreshold == 0 {
		out.DownThreshold = base.DownThreshold
	}
	if out.FreqStep == 0 {
		out.FreqStep = base.FreqStep
	}
	if out.SamplingRate == 0 {
		out.SamplingRate = base.SamplingRate
	}
	if out.SamplingDownFactor == 0 {
		out.SamplingDownFactor = base.SamplingDownFactor
	}
	if out.PowersaveBias == 0 {
		out.PowersaveBias = base.PowersaveBias
	}
	return out
}

// sanitize clamps set fields into their valid ranges.
func sanitize(p Profile) Profile {
	p.UpThreshold = clampUint(p.UpThreshold, thresholdRange)
	p.DownThreshold = clampUint(p.DownThreshold, thresholdRange)
	p.FreqStep = clampUint(p.FreqStep, freqStepRange)
	p.PowersaveBias = clampInt(p.PowersaveBias, biasRange)
	if p.SamplingRate != 0 && time.Duration(p.SamplingRate) < samplingRateFloor {
		p.SamplingRate = Duration(samplingRateFloor)
	}
	return p
}

// validate rejects profiles the state machine has no sensible interpretation
// for. Inverted thresholds are checked against the values the policy will
// effectively run with, governor defaults included.
func validate(name string, p Profile) error {
	def := governor.Defaults()
	up, down := p.UpThreshold, p.DownThreshold
	if up == 0 {
		up = def.UpThreshold
	}
	if down == 0 {
		down = def.DownThreshold
	}
	if down >= up {
		return fmt.Errorf("config: profile %q: down_threshold (%d) must be below up_threshold (%d)", name, down, up)
	}
	return nil
}

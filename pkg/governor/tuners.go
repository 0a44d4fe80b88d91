package governor

import "time"

// Tuners holds the governor's operator-adjustable parameters.
// Units:
//   - UpThreshold/DownThreshold: effective-load percent, 0..100
//   - FreqStep: percent of the domain's maximum frequency
//   - SamplingRate: tick interval
//   - SamplingDownFactor: consecutive below-threshold ticks before a step-down
//   - PowersaveBias: percent, -100..100, subtracted from load before thresholding
//
// DownThreshold < UpThreshold is expected but not enforced here; an inverted
// pair degrades into a stable (if useless) behavior rather than an error.
// The configuration surface (pkg/config) rejects such profiles before they
// reach a Policy.
type Tuners struct {
	UpThreshold        uint
	DownThreshold      uint
	FreqStep           uint
	SamplingRate       time.Duration
	SamplingDownFactor uint
	PowersaveBias      int
}

// _defaultTuners returns a Tuners pre-filled with the stock defaults:
// 80/20 thresholds, 5% step, 10ms sampling, no debounce beyond one tick,
// no bias.
func _defaultTuners() *Tuners {
	return &Tuners{
		UpThreshold:        80,
		DownThreshold:      20,
		FreqStep:           5,
		SamplingRate:       10 * time.Millisecond,
		SamplingDownFactor: 1,
		PowersaveBias:      0,
	}
}

// Defaults returns the stock tuner values.
func Defaults() Tuners { return *_defaultTuners() }

// mergeTuners overlays t on the defaults.
// Fields > 0 in t override defaults.
// Notes:
//   - PowersaveBias is taken verbatim (0 is a valid bias and also the default).
//   - DownThreshold 0 is treated as "unset"; a profile that truly wants a zero
//     down threshold gets a permanently idle down path, which no operator asks
//     for on purpose.
func mergeTuners(t *Tuners) Tuners {
	base := _defaultTuners()

	if t == nil {
		return *base
	}

	merged := *base

	if t.UpThreshold > 0 {
		merged.UpThreshold = t.UpThreshold
	}
	if t.DownThreshold > 0 {
		merged.DownThreshold = t.DownThreshold
	}
	if t.FreqStep > 0 {
		merged.FreqStep = t.FreqStep
	}
	if t.SamplingRate > 0 {
		merged.SamplingRate = t.SamplingRate
	}
	if t.SamplingDownFactor > 0 {
		merged.SamplingDownFactor = t.SamplingDownFactor
	}
	merged.PowersaveBias = t.PowersaveBias

	return merged
}

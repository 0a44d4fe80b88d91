package types

import "fmt"

// Freq is a uint64 wrapper representing a CPU frequency in kilohertz,
// the unit cpufreq sysfs files use.
type Freq uint64

// Humanized returns a human-readable string with automatic unit (kHz, MHz, GHz).
func (f Freq) Humanized() string {
	v := float64(f)
	switch {
	case f >= 1_000_000:
		return fmt.Sprintf("%.2f GHz", v/1_000_000)
	case f >= 1_000:
		return fmt.Sprintf("%.2f MHz", v/1_000)
	default:
		return fmt.Sprintf("%d kHz", uint64(f))
	}
}

// KHz returns the frequency in kilohertz.
func (f Freq) KHz() uint64 { return uint64(f) }

// MHz returns the frequency in megahertz.
func (f Freq) MHz() float64 { return float64(f) / 1_000 }

// GHz returns the frequency in gigahertz.
func (f Freq) GHz() float64 { return float64(f) / 1_000_000 }

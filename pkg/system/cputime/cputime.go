//go:build linux

// Package cputime provides per-CPU cumulative idle/wall time accounting for
// the governor, with two backends:
//
//   - StatSource: jiffy counters from per-cpu /proc/stat lines (primary).
//   - IdleStateSource: cpuidle state residency from sysfs plus a monotonic
//     wall clock (fallback for units whose /proc/stat accounting is absent).
//
// Both report cumulative microseconds. NewSource chains them so a unit the
// primary cannot account for is retried on the fallback, and a unit neither
// supports simply contributes no load.
package cputime

import (
	"os"
	"strconv"

	"github.com/ecogov/ecodemand/pkg/governor"
)

// ClockTicks returns the number of jiffies (clock ticks) per second.
// It first checks the env var CLK_TCK (useful for testing), otherwise
// falls back to 100 (common default).
//
// Note: On real systems, the authoritative way is `sysconf(_SC_CLK_TCK)`,
// but calling that requires cgo. For portability in a pure-Go library,
// this simplified approach is acceptable.
func ClockTicks() int {
	v, _ := strconv.Atoi(os.Getenv("CLK_TCK"))
	if v > 0 {
		return v
	}
	return 100
}

// NewSource returns the standard time source for real hardware:
// /proc/stat jiffy accounting with the cpuidle residency fallback.
func NewSource() governor.TimeSource {
	return governor.Fallback(NewStatSource(), NewIdleStateSource())
}

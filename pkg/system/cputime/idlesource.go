//go:build linux

package cputime

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// IdleStateSource derives idle time from cpuidle state residency:
// the sum of /sys/devices/system/cpu/cpu<N>/cpuidle/state*/time, which the
// kernel reports in cumulative microseconds. Wall time is measured against a
// monotonic epoch taken at construction, so readings from one source instance
// are mutually comparable the way the governor needs, while absolute values
// are meaningless, like any other arbitrary-epoch counter.
type IdleStateSource struct {
	root  string
	epoch time.Time
}

// NewIdleStateSource returns a source over the live sysfs cpu tree.
func NewIdleStateSource() *IdleStateSource {
	return &IdleStateSource{
		root:  "/sys/devices/system/cpu",
		epoch: time.Now(),
	}
}

// Sample returns cumulative (idle, wall) microseconds for one cpu.
func (s *IdleStateSource) Sample(unit int) (uint64, uint64, error) {
	glob := filepath.Join(s.root, fmt.Sprintf("cpu%d", unit), "cpuidle", "state*", "time")
	paths, _ := filepath.Glob(glob)
	if len(paths) == 0 {
		return 0, 0, fmt.Errorf("%w: cpu%d", ErrNoCPUIdle, unit)
	}

	var idle uint64
	read := 0
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		v, err := strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
		if err != nil {
			continue
		}
		idle += v
		read++
	}
	if read == 0 {
		return 0, 0, fmt.Errorf("%w: cpu%d", ErrNoCPUIdle, unit)
	}

	wall := uint64(time.Since(s.epoch).Microseconds())
	if idle > wall {
		// Residency accumulated before our epoch; report a fully idle
		// interval rather than busy time the cpu never spent.
		idle = wall
	}
	return idle, wall, nil
}

//go:build linux

package cputime

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// StatSource reads per-cpu jiffy counters from /proc/stat.
//
// For a "cpuN" line the fields are user, nice, system, idle, iowait, irq,
// softirq, steal (plus guest fields newer kernels append). Wall time is the
// sum of all of them; idle time is the idle field alone, so iowait counts as
// busy, matching the accounting the step thresholds were tuned against.
// Jiffies are converted to microseconds with the system tick rate.
type StatSource struct {
	path   string
	clkTck uint64
}

// NewStatSource returns a source reading the live /proc/stat.
func NewStatSource() *StatSource {
	return &StatSource{
		path:   "/proc/stat",
		clkTck: uint64(ClockTicks()),
	}
}

// Sample returns cumulative (idle, wall) microseconds for one cpu.
func (s *StatSource) Sample(unit int) (uint64, uint64, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	want := "cpu" + strconv.Itoa(unit)

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fs := strings.Fields(sc.Text())
		if len(fs) == 0 || fs[0] != want {
			continue
		}
		if len(fs) < 9 {
			return 0, 0, fmt.Errorf("%w: cpu%d has %d fields", ErrShortLine, unit, len(fs)-1)
		}
		var idle, wall uint64
		for i, v := range fs[1:] {
			n, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return 0, 0, fmt.Errorf("cputime: parse %s field %d: %w", want, i, err)
			}
			wall += n
			if i == 3 { // idle
				idle = n
			}
		}
		return s.toUsec(idle), s.toUsec(wall), nil
	}
	if err := sc.Err(); err != nil {
		return 0, 0, err
	}
	return 0, 0, fmt.Errorf("%w: cpu%d", ErrNoCPU, unit)
}

func (s *StatSource) toUsec(jiffies uint64) uint64 {
	tck := s.clkTck
	if tck == 0 {
		tck = 100
	}
	return jiffies * 1_000_000 / tck
}

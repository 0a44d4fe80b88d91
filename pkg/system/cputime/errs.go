package cputime

import "errors"

var (
	// ErrNoCPU indicates /proc/stat had no line for the requested cpu.
	ErrNoCPU = errors.New("cputime: no cpu line")

	// ErrShortLine indicates a per-cpu /proc/stat line had fewer time
	// fields than expected.
	ErrShortLine = errors.New("cputime: short cpu line")

	// ErrNoCPUIdle indicates the cpu exposes no cpuidle states in sysfs.
	ErrNoCPUIdle = errors.New("cputime: no cpuidle states")
)

package cpufreq

import "errors"

var (
	// ErrNoDomains indicates no policy* directories exist under the root.
	ErrNoDomains = errors.New("cpufreq: no policy domains")

	// ErrNoAffectedCPUs indicates a policy directory lists no cpus.
	ErrNoAffectedCPUs = errors.New("cpufreq: no affected cpus")
)

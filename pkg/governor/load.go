package governor

import "github.com/ecogov/ecodemand/pkg/types"

// normalizeLoad converts the group's busy/wall deltas into a
// frequency-invariant load in [0,100]:
//
//	load = (busy/wall * 100) * cur/max
//
// The cur/max scaling makes the metric reflect absolute work done: the same
// CPU-bound workload reports proportionally lower load at a lower operating
// frequency. Zero wall time means no measurable interval elapsed and yields
// load 0, not an error.
func normalizeLoad(busy, wall uint64, cur, max types.Freq) uint {
	if wall == 0 || max == 0 {
		return 0
	}

	raw := busy * 100 / wall
	if raw > 100 {
		raw = 100
	}

	load := raw * uint64(cur) / uint64(max)
	if load > 100 {
		load = 100
	}
	return uint(load)
}

// effectiveLoad applies the powersave bias and clamps to [0,100]. A positive
// bias makes the system look less loaded (slower to step up, faster to step
// down); a negative bias looks more loaded.
func effectiveLoad(load uint, bias int) uint {
	e := int(load) - bias
	if e < 0 {
		e = 0
	}
	if e > 100 {
		e = 100
	}
	return uint(e)
}

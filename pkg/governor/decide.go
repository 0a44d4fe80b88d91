package governor

import "github.com/ecogov/ecodemand/pkg/types"

// Relation tells the actuator which way to round a requested frequency when
// the platform only supports discrete steps.
type Relation int

const (
	// AtLeast asks for any supported frequency >= the target.
	AtLeast Relation = iota
	// AtMost asks for any supported frequency <= the target.
	AtMost
)

func (r Relation) String() string {
	switch r {
	case AtLeast:
		return "at-least"
	case AtMost:
		return "at-most"
	default:
		return "unknown"
	}
}

// Bounds are a frequency domain's limits and current operating point, queried
// fresh from the actuator every tick.
type Bounds struct {
	Min types.Freq
	Cur types.Freq
	Max types.Freq
}

// Request is one actuation decision emitted by the step controller.
type Request struct {
	Target   types.Freq
	Relation Relation
}

// minStep is substituted when the percentage step truncates to zero:
// 1 MHz, the smallest granularity cpufreq platforms meaningfully expose.
const minStep = types.Freq(1000)

// decide runs one evaluation of the step controller and returns the actuation
// request, or nil to hold. downCount is the policy's debounce counter and is
// mutated in place.
//
// Upward demand is serviced immediately; downward transitions are damped by
// requiring SamplingDownFactor consecutive below-threshold ticks. Between the
// thresholds nothing happens and the counter is cleared, so transient dips
// never accumulate toward a step-down.
func decide(t *Tuners, b Bounds, load uint, downCount *uint) *Request {
	step := b.Max * types.Freq(t.FreqStep) / 100
	if step == 0 {
		step = minStep
	}

	switch {
	case load > t.UpThreshold:
		*downCount = 0
		if b.Cur >= b.Max {
			return nil
		}
		next := b.Cur + step
		if next > b.Max {
			next = b.Max
		}
		return &Request{Target: next, Relation: AtLeast}

	case load < t.DownThreshold:
		*downCount++
		if *downCount < t.SamplingDownFactor {
			return nil
		}
		*downCount = 0
		if b.Cur <= b.Min {
			return nil
		}
		next := b.Min
		if b.Cur > step {
			next = b.Cur - step
		}
		if next < b.Min {
			next = b.Min
		}
		return &Request{Target: next, Relation: AtMost}

	default:
		// Hysteresis band: hold at the current frequency.
		*downCount = 0
		return nil
	}
}

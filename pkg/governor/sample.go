package governor

// TimeSource supplies cumulative idle and wall time for one managed unit,
// both in microseconds since an arbitrary epoch. Counters are expected to be
// monotonically non-decreasing; resets are tolerated by the sampler (the
// affected interval is skipped, not reported).
type TimeSource interface {
	Sample(unit int) (idle, wall uint64, err error)
}

type chainSource struct {
	primary, secondary TimeSource
}

// Fallback returns a TimeSource that tries primary first and, when it errors,
// retries the same unit on secondary. The two-step lookup replaces sentinel
// return values: a source that cannot account for a unit says so with an
// error, not a zero reading.
func Fallback(primary, secondary TimeSource) TimeSource {
	return &chainSource{primary: primary, secondary: secondary}
}

func (c *chainSource) Sample(unit int) (uint64, uint64, error) {
	idle, wall, err := c.primary.Sample(unit)
	if err == nil {
		return idle, wall, nil
	}
	return c.secondary.Sample(unit)
}

// unitSample carries one unit's accounting state between ticks. Idle time is
// derived from the pair (prevTotal - prevBusy), so a single pair of counters
// suffices.
type unitSample struct {
	prevTotal uint64
	prevBusy  uint64
}

// seed initializes the sample from a baseline reading.
func (s *unitSample) seed(idle, wall uint64) {
	s.prevTotal = wall
	if idle > wall {
		idle = wall
	}
	s.prevBusy = wall - idle
}

// advance folds one reading into the sample and returns the interval's busy
// and wall deltas. ok is false when no measurable interval elapsed for this
// unit (zero or negative wall delta, i.e. a counter reset or clock anomaly);
// the stored counters are resynced either way so the next tick starts clean.
func (s *unitSample) advance(idle, wall uint64) (busy, dt uint64, ok bool) {
	wallDelta := int64(wall) - int64(s.prevTotal)
	prevIdle := s.prevTotal - s.prevBusy
	idleDelta := int64(idle) - int64(prevIdle)

	s.seed(idle, wall)

	if wallDelta <= 0 {
		return 0, 0, false
	}

	busyDelta := wallDelta - idleDelta
	if busyDelta < 0 {
		busyDelta = 0
	}
	if busyDelta > wallDelta {
		busyDelta = wallDelta
	}
	return uint64(busyDelta), uint64(wallDelta), true
}

// sampleGroup reads every unit once, updates the per-unit state in place, and
// returns the group-wide busy and wall deltas. A unit whose source errors
// contributes nothing this tick.
func sampleGroup(src TimeSource, stats map[int]*unitSample) (busy, wall uint64) {
	for unit, st := range stats {
		idle, total, err := src.Sample(unit)
		if err != nil {
			continue
		}
		b, dt, ok := st.advance(idle, total)
		if !ok {
			continue
		}
		busy += b
		wall += dt
	}
	return busy, wall
}

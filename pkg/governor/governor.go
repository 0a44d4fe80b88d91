package governor

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ecogov/ecodemand/pkg/types"
)

// Actuator carries out frequency changes for one managed domain. Units lists
// the domain's accounted members and is fixed for the domain's lifetime;
// Bounds may change between calls and is queried fresh every tick.
type Actuator interface {
	Units() []int
	Bounds() (Bounds, error)
	Target(target types.Freq, rel Relation) error
}

// Tick describes one completed evaluation, for observers (logging, CSV rows).
type Tick struct {
	At            time.Time
	Bounds        Bounds
	Load          uint
	EffectiveLoad uint
	Request       *Request // nil when holding
	Accepted      bool     // false when Request was rejected by the actuator
}

// Policy runs the governor for one frequency domain: it owns the per-unit
// accounting state, the tuners and the down-debounce counter, and drives the
// sample -> normalize -> bias -> decide -> actuate pipeline on its own
// goroutine.
//
// Ticks are strictly serialized: the tick body, SetTuners and Stop all
// contend for the same mutex, so a reconfiguration never interleaves an
// in-progress decision.
type Policy struct {
	name string
	src  TimeSource
	act  Actuator
	log  *slog.Logger

	// OnTick, when set before Start, is invoked after every tick with the
	// evaluation result. It runs on the policy goroutine under the tick
	// lock; keep it cheap.
	OnTick func(Tick)

	mu        sync.Mutex
	tuners    Tuners
	stats     map[int]*unitSample
	downCount uint

	running bool
	stopc   chan struct{}
	done    chan struct{}
}

// New allocates a policy for the actuator's domain and seeds the per-unit
// accounting baselines from an initial time-source read. Zero-valued fields
// in t fall back to the stock defaults; pass nil for all defaults. The policy
// does not tick until Start.
func New(name string, src TimeSource, act Actuator, t *Tuners, log *slog.Logger) (*Policy, error) {
	if src == nil {
		return nil, ErrNoTimeSource
	}
	if act == nil {
		return nil, ErrNoActuator
	}
	units := act.Units()
	if len(units) == 0 {
		return nil, ErrNoUnits
	}
	if log == nil {
		log = slog.Default()
	}

	p := &Policy{
		name:   name,
		src:    src,
		act:    act,
		log:    log.With("policy", name),
		tuners: mergeTuners(t),
		stats:  make(map[int]*unitSample, len(units)),
	}

	for _, unit := range units {
		st := &unitSample{}
		if idle, wall, err := src.Sample(unit); err == nil {
			st.seed(idle, wall)
		}
		// On error the unit starts from a zero baseline; its first tick
		// reports the lifetime average and settles from there.
		p.stats[unit] = st
	}

	return p, nil
}

// Name returns the policy's domain name.
func (p *Policy) Name() string { return p.name }

// Tuners returns a copy of the current tuner values.
func (p *Policy) Tuners() Tuners {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tuners
}

// SetTuners replaces the tuner values, waiting out any in-flight tick. Zero
// fields are defaulted the same way as in New. Takes effect from the next
// tick; a changed SamplingRate applies when the current interval expires.
func (p *Policy) SetTuners(t *Tuners) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tuners = mergeTuners(t)
}

// Start arms the sampling loop. It fails with ErrStarted on a running policy.
func (p *Policy) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrStarted
	}
	p.running = true
	p.stopc = make(chan struct{})
	p.done = make(chan struct{})
	go p.run(p.stopc, p.done)
	p.log.Info("policy started", "sampling_rate", p.tuners.SamplingRate)
	return nil
}

// Stop cancels the sampling loop and blocks until any in-flight tick has
// completed. No tick runs after Stop returns. Safe to call on a stopped
// policy.
func (p *Policy) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	stopc, done := p.stopc, p.done
	p.mu.Unlock()

	close(stopc)
	<-done
	p.log.Info("policy stopped")
}

// run reschedules itself after each completed tick rather than on a fixed
// phase, so a slow actuation call delays the next tick instead of bunching
// ticks behind it.
func (p *Policy) run(stopc, done chan struct{}) {
	defer close(done)

	timer := time.NewTimer(p.samplingRate())
	defer timer.Stop()

	for {
		select {
		case <-stopc:
			return
		case <-timer.C:
			p.tick()
			timer.Reset(p.samplingRate())
		}
	}
}

func (p *Policy) samplingRate() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.tuners.SamplingRate
}

// tick runs one full evaluation under the policy lock. Nothing in here
// returns an error: sampling anomalies under-report load, unusable bounds
// hold the current frequency, and an actuator rejection is left for the next
// tick to re-evaluate.
func (p *Policy) tick() {
	p.mu.Lock()
	defer p.mu.Unlock()

	bounds, err := p.act.Bounds()
	if err != nil {
		p.log.Warn("bounds unavailable, holding", "err", err)
		return
	}
	if bounds.Max == 0 {
		p.log.Warn("degenerate bounds, holding", "max", 0)
		return
	}

	busy, wall := sampleGroup(p.src, p.stats)
	load := normalizeLoad(busy, wall, bounds.Cur, bounds.Max)
	eff := effectiveLoad(load, p.tuners.PowersaveBias)

	req := decide(&p.tuners, bounds, eff, &p.downCount)

	accepted := false
	if req != nil {
		if err := p.act.Target(req.Target, req.Relation); err != nil {
			p.log.Debug("actuation rejected", "target", req.Target, "err", err)
		} else {
			accepted = true
		}
	}

	p.observe(bounds, load, eff, req, accepted)

	if p.OnTick != nil {
		p.OnTick(Tick{
			At:            time.Now(),
			Bounds:        bounds,
			Load:          load,
			EffectiveLoad: eff,
			Request:       req,
			Accepted:      accepted,
		})
	}
}

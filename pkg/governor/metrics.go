package governor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricLoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ecodemand",
			Name:      "load",
			Help:      "Frequency-invariant load [0,100]",
		},
		[]string{"policy"},
	)

	metricEffectiveLoad = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ecodemand",
			Name:      "effective_load",
			Help:      "Load after powersave bias [0,100]",
		},
		[]string{"policy"},
	)

	metricCurFreq = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ecodemand",
			Name:      "current_frequency_khz",
			Help:      "Domain operating frequency at sampling time (kHz)",
		},
		[]string{"policy"},
	)

	metricTargetFreq = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "ecodemand",
			Name:      "target_frequency_khz",
			Help:      "Most recently requested frequency (kHz)",
		},
		[]string{"policy"},
	)

	metricSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecodemand",
			Name:      "steps_total",
			Help:      "Accepted actuation requests by direction",
		},
		[]string{"policy", "direction"},
	)

	metricRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ecodemand",
			Name:      "rejected_requests_total",
			Help:      "Actuation requests the platform rejected",
		},
		[]string{"policy"},
	)
)

func (p *Policy) observe(b Bounds, load, eff uint, req *Request, accepted bool) {
	metricLoad.WithLabelValues(p.name).Set(float64(load))
	metricEffectiveLoad.WithLabelValues(p.name).Set(float64(eff))
	metricCurFreq.WithLabelValues(p.name).Set(float64(b.Cur))

	if req == nil {
		return
	}
	metricTargetFreq.WithLabelValues(p.name).Set(float64(req.Target))
	if !accepted {
		metricRejected.WithLabelValues(p.name).Inc()
		return
	}
	dir := "up"
	if req.Relation == AtMost {
		dir = "down"
	}
	metricSteps.WithLabelValues(p.name, dir).Inc()
}

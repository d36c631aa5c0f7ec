package history

import "github.com/prometheus/client_golang/prometheus"

// Outcomes reported by the records counter.
const (
	outcomeWritten  = "written"
	outcomeSkipped  = "skipped"
	outcomeDropped  = "dropped"
	outcomeNoActor  = "actor_not_found"
	outcomeFailed   = "failed"
	outcomeNoChange = "no_change"
)

// Metrics are the recorder's prometheus collectors.
type Metrics struct {
	records    *prometheus.CounterVec
	queueDepth prometheus.Gauge
}

// NewMetrics registers the recorder collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "invoicer",
			Subsystem: "history",
			Name:      "records_total",
			Help:      "History records by change kind and outcome.",
		}, []string{"kind", "outcome"}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "invoicer",
			Subsystem: "history",
			Name:      "queue_depth",
			Help:      "History records waiting to be written.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.records, m.queueDepth)
	}
	return m
}

func (m *Metrics) observe(kind Kind, outcome string) {
	if m == nil {
		return
	}
	m.records.With(prometheus.Labels{"kind": string(kind), "outcome": outcome}).Inc()
}

func (m *Metrics) setDepth(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

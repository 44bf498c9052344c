package node

import "github.com/prometheus/client_golang/prometheus"

// Metrics is the small counter/histogram set a Node exposes about its
// own transition pipeline.
type Metrics struct {
	transitionsTotal  prometheus.Counter
	daPostFailures    prometheus.Counter
	proofSeconds      prometheus.Histogram
}

// NewMetrics builds and registers a Node's metrics against reg. reg
// may be prometheus.NewRegistry() for an isolated test registry, or
// prometheus.DefaultRegisterer for a process-wide one.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zkstate_transitions_total",
			Help: "Number of transitions successfully committed.",
		}),
		daPostFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "zkstate_da_post_failures_total",
			Help: "Number of blob submissions to the DA layer that failed.",
		}),
		proofSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "zkstate_proof_seconds",
			Help:    "Time spent in the harness's Execute/Prove call per transition.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.transitionsTotal, m.daPostFailures, m.proofSeconds} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// noopMetrics is used when a Node is constructed without an explicit
// registry, so ApplyTransition never has to nil-check m.
func noopMetrics() *Metrics {
	return &Metrics{
		transitionsTotal: prometheus.NewCounter(prometheus.CounterOpts{Name: "zkstate_transitions_total_unregistered", Help: "unregistered"}),
		daPostFailures:   prometheus.NewCounter(prometheus.CounterOpts{Name: "zkstate_da_post_failures_total_unregistered", Help: "unregistered"}),
		proofSeconds:     prometheus.NewHistogram(prometheus.HistogramOpts{Name: "zkstate_proof_seconds_unregistered", Help: "unregistered"}),
	}
}

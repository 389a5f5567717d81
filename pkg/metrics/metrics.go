// Package metrics exposes the Prometheus counters and histograms this
// repo's domain stack wires in on top of the fault-generation pipeline's
// core trio: verdict tallies, SAT solve duration and Fsim pass duration,
// grounded on the registration pattern chaos-utils uses for
// its own monitoring client (pkg/monitoring/prometheus/client.go),
// adapted here to the instrumentation (push/collect) side of
// client_golang rather than its query-client side.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns one Prometheus registry scoped to a single run; unlike a
// package-level default registry, this keeps the design notes' "no
// global state" rule intact for library callers that don't want a CLI.
type Metrics struct {
	registry *prometheus.Registry

	faultsTotal  *prometheus.CounterVec
	satDuration  prometheus.Histogram
	fsimDuration prometheus.Histogram
}

// New builds a fresh, self-registered Metrics instance.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		faultsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "druid_atpg",
			Name:      "faults_total",
			Help:      "Faults processed by Dtpg, partitioned by verdict.",
		}, []string{"verdict"}),
		satDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "druid_atpg",
			Name:      "sat_solve_seconds",
			Help:      "Wall time of one satsolver.Solve call.",
			Buckets:   prometheus.DefBuckets,
		}),
		fsimDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "druid_atpg",
			Name:      "fsim_pass_seconds",
			Help:      "Wall time of one Fsim PPSFP/SPPFP pass.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(m.faultsTotal, m.satDuration, m.fsimDuration)
	return m
}

// RecordVerdict increments the tally for one fault's outcome: "detected",
// "untestable" or "undecided".
func (m *Metrics) RecordVerdict(verdict string) {
	m.faultsTotal.WithLabelValues(verdict).Inc()
}

// ObserveSatSolve records one SAT solve call's duration.
func (m *Metrics) ObserveSatSolve(d time.Duration) {
	m.satDuration.Observe(d.Seconds())
}

// ObserveFsimPass records one Fsim pass's duration.
func (m *Metrics) ObserveFsimPass(d time.Duration) {
	m.fsimDuration.Observe(d.Seconds())
}

// Handler returns the HTTP handler `druid run --metrics-addr` mounts at
// /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

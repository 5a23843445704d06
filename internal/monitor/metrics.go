package monitor

import (
	"github.com/ingluisfelipemunoz/turnqueue/internal/state"
	"github.com/ingluisfelipemunoz/turnqueue/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
)

const namespace = "turnqueue"

// Metrics owns a private registry so tests and multiple containers never
// collide on the global one.
type Metrics struct {
	registry     *prometheus.Registry
	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	queueJobs    *prometheus.GaugeVec
	purged       prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by outcome.",
		}, []string{"outcome"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Time from claiming a job to re-enqueuing its player.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		queueJobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_jobs",
			Help:      "Jobs in the queue by state, as of the last stats report.",
		}, []string{"state"}),
		purged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "purged_jobs_total",
			Help:      "Completed jobs removed after retention.",
		}),
	}
	m.registry.MustRegister(
		m.turns,
		m.turnDuration,
		m.queueJobs,
		m.purged,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	// export zero series before the first turn
	for _, outcome := range types.TurnOutcomes {
		m.turns.WithLabelValues(string(outcome))
	}
	return m
}

func (m *Metrics) ObserveTurn(result types.TurnResult) {
	m.turns.WithLabelValues(string(result.Outcome)).Inc()
	if d := result.Duration(); d > 0 {
		m.turnDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) SetQueueJobs(counts map[state.JobState]int) {
	for _, st := range state.AllStates {
		m.queueJobs.WithLabelValues(st.String()).Set(float64(counts[st]))
	}
}

func (m *Metrics) AddPurged(n int) {
	m.purged.Add(float64(n))
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5}

// Metrics provides observability for the catalog module.
// Tracks workflow outcomes, recomputation cost and statistics cache efficiency.
type Metrics struct {
	Transitions        *prometheus.CounterVec
	RecomputeDuration  prometheus.Histogram
	RecomputedEntities *prometheus.CounterVec
	RebuildDuration    *prometheus.HistogramVec
	CacheLookups       *prometheus.CounterVec
	DueControls        prometheus.Gauge
}

// New creates a new Metrics instance with all catalog metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "complyhub_control_transitions_total",
			Help: "Control state transitions by target state and outcome",
		}, []string{"to", "outcome"}),
		RecomputeDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "complyhub_statistics_recompute_duration_seconds",
			Help:    "Duration of statistics recomputation triggered by a write",
			Buckets: durationBuckets,
		}),
		RecomputedEntities: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "complyhub_statistics_recomputed_total",
			Help: "Domains and standards whose statistics were recomputed",
		}, []string{"kind"}),
		RebuildDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "complyhub_hierarchy_rebuild_duration_seconds",
			Help:    "Duration of full hierarchy rebuilds",
			Buckets: durationBuckets,
		}, []string{"kind"}),
		CacheLookups: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "complyhub_statistics_cache_lookups_total",
			Help: "Statistics cache lookups by result",
		}, []string{"result"}),
		DueControls: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "complyhub_controls_due_for_test",
			Help: "Controls found due for testing in the last scheduler pass",
		}),
	}
}

// IncrementTransition records a transition attempt. outcome is "ok" or an error code.
func (m *Metrics) IncrementTransition(to, outcome string) {
	m.Transitions.WithLabelValues(to, outcome).Inc()
}

// ObserveRecompute records one recomputation pass.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRecompute(start time.Time, domains, standards int) {
	m.RecomputeDuration.Observe(time.Since(start).Seconds())
	m.RecomputedEntities.WithLabelValues("domain").Add(float64(domains))
	m.RecomputedEntities.WithLabelValues("standard").Add(float64(standards))
}

func (m *Metrics) ObserveRebuild(kind string, start time.Time) {
	m.RebuildDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementCacheHit() {
	m.CacheLookups.WithLabelValues("hit").Inc()
}

func (m *Metrics) IncrementCacheMiss() {
	m.CacheLookups.WithLabelValues("miss").Inc()
}

func (m *Metrics) SetDueControls(n int) {
	m.DueControls.Set(float64(n))
}

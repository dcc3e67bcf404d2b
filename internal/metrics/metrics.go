// Package metrics exposes Prometheus instrumentation for search,
// validation, and reconciliation.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/geotarget/internal/model"
)

const namespace = "geotarget"

// Metrics holds the service's collectors. A nil *Metrics records nothing.
type Metrics struct {
	Searches        *prometheus.CounterVec // labels: variant={typeahead,batch}, outcome={hit,empty,blocked}
	SearchDuration  *prometheus.HistogramVec
	Validations     *prometheus.CounterVec // labels: classification
	ReconcileTarget *prometheus.CounterVec // labels: action={added,removed,unresolved}
	ReconcileErrors prometheus.Counter
	ReconcileTime   prometheus.Histogram
	IndexRows       prometheus.Gauge
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Searches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "searches_total",
			Help:      "Location searches by variant and outcome.",
		}, []string{"variant", "outcome"}),
		SearchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Location search latency by variant.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"variant"}),
		Validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "address_validations_total",
			Help:      "Address validations by classification.",
		}, []string{"classification"}),
		ReconcileTarget: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_targets_total",
			Help:      "Geo-targets touched by reconciliation, by action.",
		}, []string{"action"}),
		ReconcileErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_errors_total",
			Help:      "Reconciliations that failed on a platform call.",
		}),
		ReconcileTime: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of a full reconciliation including platform calls.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),
		IndexRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "index_rows",
			Help:      "Rows in the address index at start-up.",
		}),
	}

	reg.MustRegister(
		m.Searches,
		m.SearchDuration,
		m.Validations,
		m.ReconcileTarget,
		m.ReconcileErrors,
		m.ReconcileTime,
		m.IndexRows,
	)
	return m
}

// ObserveSearch records one search. variant is "typeahead" or "batch".
func (m *Metrics) ObserveSearch(variant, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.Searches.WithLabelValues(variant, outcome).Inc()
	m.SearchDuration.WithLabelValues(variant).Observe(d.Seconds())
}

// ObserveValidations counts results by classification.
func (m *Metrics) ObserveValidations(results []model.ValidationResult) {
	if m == nil {
		return
	}
	for _, r := range results {
		m.Validations.WithLabelValues(string(r.Classification)).Inc()
	}
}

// ObserveReconcile records a finished reconciliation. res is nil when err
// is set.
func (m *Metrics) ObserveReconcile(res *model.ReconciliationResult, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.ReconcileTime.Observe(d.Seconds())
	if err != nil {
		m.ReconcileErrors.Inc()
		return
	}
	m.ReconcileTarget.WithLabelValues("added").Add(float64(res.AddedCount))
	m.ReconcileTarget.WithLabelValues("removed").Add(float64(res.RemovedCount))
	m.ReconcileTarget.WithLabelValues("unresolved").Add(float64(len(res.Unresolved)))
}

// SetIndexRows records the index size.
func (m *Metrics) SetIndexRows(n int) {
	if m == nil {
		return
	}
	m.IndexRows.Set(float64(n))
}

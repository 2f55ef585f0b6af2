// Package metrics holds the Prometheus metrics of a single batch run. Each run
// owns its registry so the textfile only ever describes the latest run.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "parcel_mileage"

// Row outcomes.
const (
	OutcomeMeasured = "measured"
	OutcomeSkipped  = "skipped"
	OutcomeError    = "error"
)

type BatchMetrics struct {
	registry *prometheus.Registry

	rows        *prometheus.CounterVec
	excluded    *prometheus.CounterVec
	groundMiles prometheus.Counter
	airMiles    prometheus.Counter
	rowDuration prometheus.Histogram
	finishedAt  prometheus.Gauge
}

func NewBatchMetrics(runID string) *BatchMetrics {
	labels := prometheus.Labels{"run_id": runID}

	m := &BatchMetrics{
		registry: prometheus.NewRegistry(),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_total",
			Help:        "Rows attempted in the batch run, by outcome.",
			ConstLabels: labels,
		}, []string{"outcome"}),
		excluded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "rows_excluded_total",
			Help:        "Input rows not attempted, by reason.",
			ConstLabels: labels,
		}, []string{"reason"}),
		groundMiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "ground_miles_total",
			Help:        "Ground miles measured in the batch run.",
			ConstLabels: labels,
		}),
		airMiles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   namespace,
			Name:        "air_miles_total",
			Help:        "Air miles measured in the batch run.",
			ConstLabels: labels,
		}),
		rowDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace:   namespace,
			Name:        "row_duration_seconds",
			Help:        "Time spent measuring a single row.",
			ConstLabels: labels,
			Buckets:     []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		finishedAt: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   namespace,
			Name:        "last_run_finished_timestamp_seconds",
			Help:        "Unix time the batch run finished.",
			ConstLabels: labels,
		}),
	}

	m.registry.MustRegister(m.rows, m.excluded, m.groundMiles, m.airMiles, m.rowDuration, m.finishedAt)
	return m
}

func (m *BatchMetrics) ObserveRow(outcome string, groundMiles, airMiles float64, elapsed time.Duration) {
	m.rows.WithLabelValues(outcome).Inc()
	m.groundMiles.Add(groundMiles)
	m.airMiles.Add(airMiles)
	m.rowDuration.Observe(elapsed.Seconds())
}

func (m *BatchMetrics) ObserveExcluded(reason string, count int) {
	m.excluded.WithLabelValues(reason).Add(float64(count))
}

func (m *BatchMetrics) Finish(at time.Time) {
	m.finishedAt.Set(float64(at.Unix()))
}

// WriteTextfile writes the registry for the node exporter textfile collector.
func (m *BatchMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

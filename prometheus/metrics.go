// Package prometheus records pipeline runs as Prometheus metrics and writes
// them in the node_exporter textfile format.
package prometheus

import (
	"time"

	"github.com/fwojciec/wikifuse/pipeline"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the metrics of pipeline runs.
type Metrics struct {
	registry *prometheus.Registry

	Events      *prometheus.CounterVec
	Pages       *prometheus.CounterVec
	Quality     prometheus.Histogram
	Conflicts   prometheus.Counter
	Entities    prometheus.Counter
	RunDuration prometheus.Gauge
	LastRun     prometheus.Gauge
}

// NewMetrics creates metrics registered on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		Events: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikifuse_progress_events_total",
				Help: "Progress events delivered, by stage",
			},
			[]string{"stage"},
		),
		Pages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wikifuse_pages_total",
				Help: "Pages processed, by outcome",
			},
			[]string{"source", "outcome"},
		),
		Quality: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "wikifuse_record_quality",
				Help:    "Quality score of normalized records",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),
		Conflicts: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifuse_merge_conflicts_total",
				Help: "Fields with conflicting values across sources",
			},
		),
		Entities: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "wikifuse_entities_fused_total",
				Help: "Canonical entities stored",
			},
		),
		RunDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wikifuse_run_duration_seconds",
				Help: "Duration of the last run",
			},
		),
		LastRun: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "wikifuse_last_run_timestamp_seconds",
				Help: "Unix time the last run finished",
			},
		),
	}
}

// Progress returns a ProgressFunc that records each event and then calls
// next, if set.
func (m *Metrics) Progress(next pipeline.ProgressFunc) pipeline.ProgressFunc {
	return func(e pipeline.Event) {
		m.Events.WithLabelValues(string(e.Stage)).Inc()
		if e.Stage == pipeline.StageScored {
			m.Quality.Observe(e.Quality)
		}
		if next != nil {
			next(e)
		}
	}
}

// ObserveRun records the outcome of a run. Progress events may be dropped,
// so page counts come from the summary.
func (m *Metrics) ObserveRun(source string, summary *pipeline.Summary, duration time.Duration, finished time.Time) {
	m.Pages.WithLabelValues(source, "succeeded").Add(float64(summary.Succeeded))
	m.Pages.WithLabelValues(source, "skipped").Add(float64(summary.Skipped))
	for _, f := range summary.Failures {
		m.Pages.WithLabelValues(source, string(f.Stage)).Inc()
	}
	m.Conflicts.Add(float64(summary.ConflictsDetected))
	m.Entities.Add(float64(len(summary.Entities)))
	m.RunDuration.Set(duration.Seconds())
	m.LastRun.Set(float64(finished.Unix()))
}

// Gatherer returns the registry holding the metrics.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteToTextfile writes the metrics to path atomically.
func (m *Metrics) WriteToTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

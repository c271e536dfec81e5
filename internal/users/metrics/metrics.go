package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"roster/internal/users/models"
)

// File outcomes.
const (
	FileProcessed = "processed"
	FileRejected  = "rejected"
	FileFailed    = "failed"
)

// Pass outcomes.
const (
	PassPublished = "published"
	PassFailed    = "failed"
)

// Metrics holds Prometheus collectors for the ingestion pipeline.
type Metrics struct {
	Passes        *prometheus.CounterVec
	Files         *prometheus.CounterVec
	Users         *prometheus.CounterVec
	MissingImages prometheus.Counter
	PassDuration  prometheus.Histogram
	LastPassFiles prometheus.Gauge
	BusyRejected  prometheus.Counter
}

// New registers the pipeline collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Passes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_passes_total",
			Help: "Total number of completed passes by trigger and outcome",
		}, []string{"trigger", "outcome"}),
		Files: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_files_total",
			Help: "Total number of source files seen by outcome",
		}, []string{"outcome", "code"}),
		Users: f.NewCounterVec(prometheus.CounterOpts{
			Name: "roster_users_reconciled_total",
			Help: "Total number of reconciled users by action",
		}, []string{"action"}),
		MissingImages: f.NewCounter(prometheus.CounterOpts{
			Name: "roster_missing_images_total",
			Help: "Total number of users reconciled without a portrait",
		}),
		PassDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "roster_pass_duration_seconds",
			Help:    "Wall time of a pass in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}),
		LastPassFiles: f.NewGauge(prometheus.GaugeOpts{
			Name: "roster_last_pass_files",
			Help: "Number of source files listed by the most recent pass",
		}),
		BusyRejected: f.NewCounter(prometheus.CounterOpts{
			Name: "roster_pass_busy_rejections_total",
			Help: "Passes not started because another pass was running",
		}),
	}
}

func (m *Metrics) ObserveFile(outcome, code string) {
	if m == nil {
		return
	}
	m.Files.WithLabelValues(outcome, code).Inc()
}

func (m *Metrics) ObserveUser(action models.Action) {
	if m == nil {
		return
	}
	m.Users.WithLabelValues(string(action)).Inc()
}

func (m *Metrics) IncrementMissingImages() {
	if m == nil {
		return
	}
	m.MissingImages.Inc()
}

func (m *Metrics) IncrementBusyRejected() {
	if m == nil {
		return
	}
	m.BusyRejected.Inc()
}

// ObservePass records the final counters of a pass.
func (m *Metrics) ObservePass(result models.PassResult, elapsed time.Duration) {
	if m == nil {
		return
	}
	outcome := PassPublished
	if !result.Published {
		outcome = PassFailed
	}
	m.Passes.WithLabelValues(result.Trigger, outcome).Inc()
	m.PassDuration.Observe(elapsed.Seconds())
	m.LastPassFiles.Set(float64(result.Total))
}

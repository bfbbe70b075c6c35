package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Batch outcomes.
const (
	BatchCompleted   = "completed"
	BatchCanceled    = "canceled"
	BatchInvalid     = "invalid_settings"
	BatchUnsupported = "unsupported_context"
)

// Archive outcomes.
const (
	ArchivePacked = "packed"
	ArchiveEmpty  = "empty"
	ArchiveFailed = "failed"
)

// Metrics holds the Prometheus collectors for rendering. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RendersTotal   *prometheus.CounterVec
	RenderDuration prometheus.Histogram
	BatchesTotal   *prometheus.CounterVec
	BatchSize      prometheus.Histogram
	ArchivesTotal  *prometheus.CounterVec
	ArchiveBytes   prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		RendersTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thumbnail_renders_total",
				Help: "Thumbnails rendered, by result status",
			},
			[]string{"status"},
		),

		RenderDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "thumbnail_render_duration_seconds",
				Help:    "Time to decode, crop, resize and encode one thumbnail",
				Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			},
		),

		BatchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thumbnail_batches_total",
				Help: "Batches processed, by outcome",
			},
			[]string{"outcome"},
		),

		BatchSize: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "thumbnail_batch_size",
				Help:    "Number of source images per batch",
				Buckets: []float64{1, 2, 5, 10, 20, 50, 100},
			},
		),

		ArchivesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "thumbnail_archives_total",
				Help: "Archive packaging attempts, by outcome",
			},
			[]string{"outcome"},
		),

		ArchiveBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "thumbnail_archive_bytes",
				Help:    "Size of packaged archives",
				Buckets: prometheus.ExponentialBuckets(16*1024, 4, 8),
			},
		),
	}
}

func (m *Metrics) ObserveRender(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RendersTotal.WithLabelValues(status).Inc()
	m.RenderDuration.Observe(elapsed.Seconds())
}

func (m *Metrics) ObserveBatch(outcome string, size int) {
	if m == nil {
		return
	}
	m.BatchesTotal.WithLabelValues(outcome).Inc()
	if outcome == BatchCompleted {
		m.BatchSize.Observe(float64(size))
	}
}

func (m *Metrics) ObserveArchive(outcome string, size int) {
	if m == nil {
		return
	}
	m.ArchivesTotal.WithLabelValues(outcome).Inc()
	if outcome == ArchivePacked {
		m.ArchiveBytes.Observe(float64(size))
	}
}

// Package telemetry holds the Prometheus metrics and tracing setup shared by
// the archiver and the uploader.
package telemetry

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	once sync.Once

	// Counters
	MessagesArchived   prometheus.Counter
	AttachmentsSkipped prometheus.Counter
	BatchesCommitted   prometheus.Counter
	Retries            *prometheus.CounterVec
	ThrottleWaits      prometheus.Counter
	Runs               *prometheus.CounterVec
	VideosUploaded     *prometheus.CounterVec

	// Histograms (seconds)
	SendDuration   prometheus.Observer
	BatchDuration  prometheus.Observer
	UploadDuration prometheus.Observer

	// Gauges
	CursorGauge    prometheus.Gauge
	ThrottledGauge prometheus.Gauge // 1=waiting,0=not
)

// Init registers metrics (idempotent).
func Init() {
	once.Do(func() {
		MessagesArchived = promauto.NewCounter(prometheus.CounterOpts{Name: "archive_messages_delivered_total", Help: "Messages fully delivered to the destination"})
		AttachmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{Name: "archive_attachments_skipped_total", Help: "Attachments replaced by a placeholder"})
		BatchesCommitted = promauto.NewCounter(prometheus.CounterOpts{Name: "archive_batches_committed_total", Help: "Batches whose cursor was committed"})
		Retries = promauto.NewCounterVec(prometheus.CounterOpts{Name: "archive_retries_total", Help: "Retried operations by stage"}, []string{"stage"})
		ThrottleWaits = promauto.NewCounter(prometheus.CounterOpts{Name: "archive_throttle_waits_total", Help: "Mandatory waits requested by the remote side"})
		Runs = promauto.NewCounterVec(prometheus.CounterOpts{Name: "archive_runs_total", Help: "Archive runs by final state"}, []string{"state"})
		VideosUploaded = promauto.NewCounterVec(prometheus.CounterOpts{Name: "uploader_videos_total", Help: "Manifest entries by outcome"}, []string{"outcome"})
		SendDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "archive_send_duration_seconds", Help: "Per-message delivery duration seconds", Buckets: prometheus.DefBuckets})
		BatchDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "archive_batch_duration_seconds", Help: "Per-batch dispatch duration seconds", Buckets: prometheus.DefBuckets})
		UploadDuration = promauto.NewHistogram(prometheus.HistogramOpts{Name: "uploader_upload_duration_seconds", Help: "Video download+upload duration seconds", Buckets: prometheus.ExponentialBuckets(1, 2, 12)})
		CursorGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "archive_cursor_last_id", Help: "Last committed message id"})
		ThrottledGauge = promauto.NewGauge(prometheus.GaugeOpts{Name: "archive_throttled", Help: "Throttle wait in progress=1 idle=0"})
	})
}

// Inc increments c if metrics are initialized.
func Inc(c prometheus.Counter) {
	if c != nil {
		c.Inc()
	}
}

// IncLabel increments the labelled series of v if metrics are initialized.
func IncLabel(v *prometheus.CounterVec, label string) {
	if v != nil {
		v.WithLabelValues(label).Inc()
	}
}

// SetCursor records the last committed message id.
func SetCursor(id int64) {
	if CursorGauge != nil {
		CursorGauge.Set(float64(id))
	}
}

// SetThrottled sets gauge to 1 while a throttle wait is in progress.
func SetThrottled(waiting bool) {
	if ThrottledGauge != nil {
		if waiting {
			ThrottledGauge.Set(1)
		} else {
			ThrottledGauge.Set(0)
		}
	}
}

// Observe records d in obs if non-nil.
func Observe(obs prometheus.Observer, d time.Duration) {
	if obs != nil {
		obs.Observe(d.Seconds())
	}
}

// TimeFunc measures the duration of fn and records in observer if non-nil.
func TimeFunc(obs prometheus.Observer, fn func()) time.Duration {
	start := time.Now()
	fn()
	d := time.Since(start)
	Observe(obs, d)
	return d
}

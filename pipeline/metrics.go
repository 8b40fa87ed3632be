package pipeline

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"orderproof/browser"
	"orderproof/console"
	"orderproof/ledger"
	"orderproof/publish"
)

// Metrics bundles Prometheus collectors for the pipeline.
type Metrics struct {
	Registry        *prometheus.Registry
	OrdersTotal     *prometheus.CounterVec
	CapturesTotal   prometheus.Counter
	UploadsTotal    prometheus.Counter
	UploadDuration  prometheus.Histogram
	CheckpointWaits *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	orders := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderproof_orders_total",
			Help: "Orders processed by final outcome.",
		},
		[]string{"outcome"},
	)
	captures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderproof_captures_total",
			Help: "Screenshots captured successfully.",
		},
	)
	uploads := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orderproof_uploads_total",
			Help: "Artifacts uploaded successfully.",
		},
	)
	uploadDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orderproof_upload_duration_seconds",
			Help:    "Artifact upload latency.",
			Buckets: prometheus.DefBuckets,
		},
	)
	checkpointWaits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderproof_checkpoint_waits_total",
			Help: "Operator checkpoint suspensions by checkpoint name.",
		},
		[]string{"checkpoint"},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orderproof_errors_total",
			Help: "Pipeline errors by type.",
		},
		[]string{"error_type"},
	)

	registry.MustRegister(orders, captures, uploads, uploadDuration, checkpointWaits, errorsTotal)

	return &Metrics{
		Registry:        registry,
		OrdersTotal:     orders,
		CapturesTotal:   captures,
		UploadsTotal:    uploads,
		UploadDuration:  uploadDuration,
		CheckpointWaits: checkpointWaits,
		ErrorsTotal:     errorsTotal,
	}
}

// IncOrder counts a finished order by outcome.
func (m *Metrics) IncOrder(outcome string) {
	if m == nil {
		return
	}
	m.OrdersTotal.WithLabelValues(outcome).Inc()
}

// IncCapture counts a successful screenshot.
func (m *Metrics) IncCapture() {
	if m == nil {
		return
	}
	m.CapturesTotal.Inc()
}

// IncUpload counts a successful upload.
func (m *Metrics) IncUpload() {
	if m == nil {
		return
	}
	m.UploadsTotal.Inc()
}

// ObserveUpload records an upload duration.
func (m *Metrics) ObserveUpload(d time.Duration) {
	if m == nil {
		return
	}
	m.UploadDuration.Observe(d.Seconds())
}

// IncCheckpoint counts a checkpoint suspension.
func (m *Metrics) IncCheckpoint(name string) {
	if m == nil {
		return
	}
	m.CheckpointWaits.WithLabelValues(name).Inc()
}

// IncError counts an error by its classified type.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// errorTypeLabel collapses the pipeline's error taxonomy into short labels
// for metrics and logs.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	if label := browser.ErrorLabel(err); label != "other" && label != "unknown" {
		return label
	}
	if publish.IsUploadError(err) {
		return "upload"
	}
	if ledger.IsCorrupt(err) {
		return "ledger_corrupt"
	}
	var aborted console.ErrAborted
	if errors.As(err, &aborted) {
		return "aborted"
	}
	return "other"
}

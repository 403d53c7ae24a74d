// Package metrics provides Prometheus metrics for secretmask.
// All metrics use the "secretmask" namespace and are registered with the
// default Prometheus registry via promauto, so they are scraped on /metrics.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/codeready-toolchain/secretmask/pkg/masking"
)

const namespace = "secretmask"

// File outcomes.
const (
	StatusMasked    = "masked"
	StatusUnchanged = "unchanged"
	StatusFailed    = "failed"
)

// Field error types.
const (
	ErrorTypeDecode     = "decode"
	ErrorTypeAnnotation = "annotation"
	ErrorTypeWrite      = "write"
	ErrorTypeOther      = "other"
)

var (
	// FilesTotal counts masked files and documents by outcome.
	// status: masked | unchanged | failed
	FilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_total",
			Help:      "Total number of masked files and documents by outcome.",
		},
		[]string{"status"},
	)

	// ResourcesTotal counts masked resources by strategy.
	// strategy: secret | plaintext
	ResourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resources_total",
			Help:      "Total number of masked resources by strategy.",
		},
		[]string{"strategy"},
	)

	// FieldsRedactedTotal counts redacted values by strategy.
	FieldsRedactedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_redacted_total",
			Help:      "Total number of redacted values by strategy.",
		},
		[]string{"strategy"},
	)

	// FieldErrorsTotal counts non-fatal field problems by type.
	// type: decode | annotation | write | other
	FieldErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "field_errors_total",
			Help:      "Total number of non-fatal field errors by type.",
		},
		[]string{"type"},
	)

	// RunDurationSeconds tracks batch run wall time.
	RunDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of batch masking runs in seconds.",
			// 10ms → 20ms → ... → ~41s
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 13),
		},
	)
)

// ObserveReport records one per-file (or per-request) masking report.
func ObserveReport(report *masking.Report) {
	if report == nil {
		return
	}

	FilesTotal.WithLabelValues(Status(report)).Inc()
	for _, r := range report.Resources {
		strategy := r.Strategy.String()
		ResourcesTotal.WithLabelValues(strategy).Inc()
		if r.Redacted > 0 {
			FieldsRedactedTotal.WithLabelValues(strategy).Add(float64(r.Redacted))
		}
	}
	for _, err := range report.FieldErrors {
		FieldErrorsTotal.WithLabelValues(ErrorType(err)).Inc()
	}
}

// ObserveRun records the duration of a batch run.
func ObserveRun(d time.Duration) {
	RunDurationSeconds.Observe(d.Seconds())
}

// Status returns the files_total label for a report.
func Status(report *masking.Report) string {
	switch {
	case report.Err != nil:
		return StatusFailed
	case report.Redacted > 0:
		return StatusMasked
	default:
		return StatusUnchanged
	}
}

// ErrorType returns the field_errors_total label for a field error.
func ErrorType(err error) string {
	var decodeErr *masking.DecodeError
	var annotationErr *masking.AnnotationParseError
	var writeErr *masking.WriteError
	switch {
	case errors.As(err, &decodeErr):
		return ErrorTypeDecode
	case errors.As(err, &annotationErr):
		return ErrorTypeAnnotation
	case errors.As(err, &writeErr):
		return ErrorTypeWrite
	default:
		return ErrorTypeOther
	}
}

// Package metrics provides Prometheus metrics for the compressor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "imagecompressor"

var (
	// CompressionsTotal counts compression requests by media kind and outcome.
	CompressionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compressions_total",
			Help:      "Total number of compression operations",
		},
		[]string{"kind", "status"},
	)

	// CompressionDuration measures compression duration.
	CompressionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "compression_duration_seconds",
			Help:      "Duration of compression operations in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	// BytesProcessed counts input and output bytes.
	BytesProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Total bytes read and written by compression",
		},
		[]string{"direction"},
	)

	// SizeRatio observes compressed/original size ratios.
	SizeRatio = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "size_ratio",
			Help:      "Distribution of compressed to original size ratios",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 0.75, 1, 1.5, 2},
		},
		[]string{"kind"},
	)

	// ErrorsTotal counts errors by operation and code.
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total number of errors",
		},
		[]string{"operation", "code"},
	)

	// ActiveConnections tracks open websocket connections.
	ActiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Number of open websocket connections",
		},
	)
)

// RecordCompression records a successful compression.
func RecordCompression(kind string, duration time.Duration, bytesIn, bytesOut int64) {
	CompressionsTotal.WithLabelValues(kind, "success").Inc()
	CompressionDuration.WithLabelValues(kind).Observe(duration.Seconds())
	BytesProcessed.WithLabelValues("in").Add(float64(bytesIn))
	BytesProcessed.WithLabelValues("out").Add(float64(bytesOut))
	if bytesIn > 0 {
		SizeRatio.WithLabelValues(kind).Observe(float64(bytesOut) / float64(bytesIn))
	}
}

// RecordFailure records a failed compression.
func RecordFailure(kind, code string, duration time.Duration) {
	CompressionsTotal.WithLabelValues(kind, "error").Inc()
	CompressionDuration.WithLabelValues(kind).Observe(duration.Seconds())
	ErrorsTotal.WithLabelValues("compress", code).Inc()
}

// RecordError records an error outside of compression.
func RecordError(operation, code string) {
	ErrorsTotal.WithLabelValues(operation, code).Inc()
}

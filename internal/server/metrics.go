package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testflow_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "testflow_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	recognitionRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testflow_recognition_requests_total",
			Help: "Total number of recognition requests",
		},
		[]string{"type", "status"}, // type: frame, image, pdf, text
	)

	recognitionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "testflow_recognition_duration_seconds",
			Help:    "Recognition processing duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"type"},
	)

	formulasExtracted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testflow_formulas_extracted_total",
			Help: "Total number of formulas extracted",
		},
		[]string{"type"},
	)

	cacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "testflow_cache_hits_total",
			Help: "Response cache hits and misses",
		},
		[]string{"result"}, // result: hit, miss
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "testflow_upload_size_bytes",
			Help:    "Size of uploaded files in bytes",
			Buckets: []float64{1 << 10, 10 << 10, 100 << 10, 1 << 20, 10 << 20, 50 << 20},
		},
	)

	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "testflow_websocket_active_connections",
			Help: "Number of active WebSocket frame streams",
		},
	)
)

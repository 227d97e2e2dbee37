package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "podcaster"

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
		[]string{"method", "path"},
	)

	HTTPRequestBytes = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_body_bytes",
			Help:      "Declared request body size of requests that carry one",
			Buckets:   prometheus.ExponentialBuckets(1024, 8, 8),
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Current number of HTTP requests being processed",
		},
	)
)

// Business metrics
var (
	AccountsRegistered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "accounts_registered_total",
			Help:      "Total number of accounts registered",
		},
		[]string{"plan"},
	)

	FeedsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feeds_created_total",
			Help:      "Total number of feeds created",
		},
	)

	FeedsDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "feeds_deleted_total",
			Help:      "Total number of feeds deleted",
		},
	)

	EpisodesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_created_total",
			Help:      "Total number of episodes created",
		},
	)

	EpisodesDeleted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "episodes_deleted_total",
			Help:      "Total number of episodes deleted, including feed cascades",
		},
	)
)

// Quota and storage accounting metrics (aggregate totals - no user label to avoid cardinality)
var (
	QuotaRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_rejections_total",
			Help:      "Total number of writes rejected by a plan limit",
		},
		[]string{"kind"}, // "feeds", "episodes" or "storage"
	)

	StorageBytesIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_bytes_ingested_total",
			Help:      "Total bytes added to account storage counters",
		},
	)

	StorageBytesReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_bytes_released_total",
			Help:      "Total bytes released from account storage counters",
		},
	)
)

// Blob store metrics
var (
	AssetUploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_uploads_total",
			Help:      "Total number of asset uploads to the blob store",
		},
		[]string{"kind", "status"},
	)

	AssetUploadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "asset_upload_duration_seconds",
			Help:      "Asset upload latency distribution",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"kind"},
	)

	AssetDeletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "asset_deletes_total",
			Help:      "Total number of best-effort asset deletions",
		},
		[]string{"kind", "status"},
	)
)

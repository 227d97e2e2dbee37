package metrics

import "time"

// QuotaRejected records a write refused by the plan limit of the given kind.
func QuotaRejected(kind string) {
	QuotaRejectionsTotal.WithLabelValues(kind).Inc()
}

// BytesIngested records bytes added to an account's storage counter.
func BytesIngested(n int64) {
	if n > 0 {
		StorageBytesIngested.Add(float64(n))
	}
}

// BytesReleased records bytes removed from an account's storage counter.
func BytesReleased(n int64) {
	if n > 0 {
		StorageBytesReleased.Add(float64(n))
	}
}

// UploadCompleted records a successful asset upload
func UploadCompleted(kind string, duration time.Duration) {
	AssetUploadsTotal.WithLabelValues(kind, "completed").Inc()
	AssetUploadDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// UploadFailed records an asset upload failure
func UploadFailed(kind string) {
	AssetUploadsTotal.WithLabelValues(kind, "failed").Inc()
}

// AssetDeleted records the outcome of a best-effort asset deletion.
// status is "deleted", "failed" or "skipped" (no identifier could be resolved).
func AssetDeleted(kind, status string) {
	AssetDeletesTotal.WithLabelValues(kind, status).Inc()
}

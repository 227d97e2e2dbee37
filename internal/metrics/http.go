package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// idSegment matches a UUID path segment; feeds, episodes and accounts are
// all keyed by one.
var idSegment = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)

// statusRecorder remembers the first status written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	if sr.status == 0 {
		sr.status = code
	}
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	return sr.ResponseWriter.Write(b)
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func (sr *statusRecorder) code() string {
	if sr.status == 0 {
		return "200"
	}
	return strconv.Itoa(sr.status)
}

// normalizePath turns a request path into a bounded label: ids become {id}
// and every locally served asset shares "/files/*".
func normalizePath(path string) string {
	if strings.HasPrefix(path, "/files/") {
		return "/files/*"
	}
	return idSegment.ReplaceAllString(path, "{id}")
}

// unobserved paths are scrape and probe traffic.
func unobserved(path string) bool {
	return path == "/metrics" || path == "/health"
}

// Middleware counts requests, their latency and, for requests with a body,
// the declared upload size.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if unobserved(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		HTTPRequestsInFlight.Inc()
		defer HTTPRequestsInFlight.Dec()

		path := normalizePath(r.URL.Path)
		if r.ContentLength > 0 {
			HTTPRequestBytes.WithLabelValues(r.Method, path).Observe(float64(r.ContentLength))
		}

		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(sr, r)

		HTTPRequestsTotal.WithLabelValues(r.Method, path, sr.code()).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}

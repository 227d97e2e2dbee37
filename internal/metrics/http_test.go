package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/api/feeds", "/api/feeds"},
		{"/api/feeds/5f0c1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a5b/episodes", "/api/feeds/{id}/episodes"},
		{"/api/episodes/5F0C1A2B-3C4D-4E5F-8A9B-0C1D2E3F4A5B", "/api/episodes/{id}"},
		{"/files/podcaster/users/x/cover.png", "/files/*"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizePath(tt.path))
		})
	}
}

func TestMiddleware_RecordsStatus(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/api/test-teapot", "418")
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/test-teapot", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestMiddleware_ImplicitOKAndBodySize(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	counter := HTTPRequestsTotal.WithLabelValues("POST", "/api/feeds/{id}/episodes", "200")
	before := testutil.ToFloat64(counter)
	samples := testutil.CollectAndCount(HTTPRequestBytes)

	req := httptest.NewRequest(http.MethodPost, "/api/feeds/5f0c1a2b-3c4d-4e5f-8a9b-0c1d2e3f4a5b/episodes", strings.NewReader("ID3-audio"))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.GreaterOrEqual(t, testutil.CollectAndCount(HTTPRequestBytes), samples)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(HTTPRequestBytes), 1)
}

func TestMiddleware_SkipsHealth(t *testing.T) {
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	counter := HTTPRequestsTotal.WithLabelValues("GET", "/health", "200")
	before := testutil.ToFloat64(counter)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, before, testutil.ToFloat64(counter))
}

func TestAccountingHelpers(t *testing.T) {
	before := testutil.ToFloat64(StorageBytesIngested)
	BytesIngested(1024)
	BytesIngested(0)
	BytesIngested(-5)
	assert.Equal(t, before+1024, testutil.ToFloat64(StorageBytesIngested))

	rejected := QuotaRejectionsTotal.WithLabelValues("storage")
	beforeRejected := testutil.ToFloat64(rejected)
	QuotaRejected("storage")
	assert.Equal(t, beforeRejected+1, testutil.ToFloat64(rejected))
}

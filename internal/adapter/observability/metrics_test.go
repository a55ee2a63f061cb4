package observability

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestHTTPMetricsMiddleware_RecordsNumericStatus(t *testing.T) {
	t.Parallel()
	handler := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test-missing", nil))

	got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/metrics-test-missing", http.MethodGet, "404"))
	assert.Equal(t, 1.0, got)
}

func TestHTTPMetricsMiddleware_DefaultsTo200(t *testing.T) {
	t.Parallel()
	handler := HTTPMetricsMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics-test-ok", nil))

	got := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("/metrics-test-ok", http.MethodGet, "200"))
	assert.Equal(t, 1.0, got)
}

package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestServer(t *testing.T) (*Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewServer("127.0.0.1:0", reg, zaptest.NewLogger(t)), reg
}

func TestHealthzReturnsOK(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ok"`)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestReadyzReturnsReady(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"ready"`)
}

func TestMetricsExposesRegisteredSeries(t *testing.T) {
	t.Parallel()

	s, reg := newTestServer(t)
	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "onionwatch_test_total",
		Help: "Test counter.",
	})
	reg.MustRegister(counter)
	counter.Add(3)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, strings.Contains(rec.Body.String(), "onionwatch_test_total 3"))
}

func TestUnknownRouteReturns404(t *testing.T) {
	t.Parallel()

	s, _ := newTestServer(t)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
}

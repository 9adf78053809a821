package obs_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/catalogo-muebles/internal/obs"
)

func TestRequestLoggerWritesStructuredEntry(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)
	handler := obs.RequestLogger{Logger: logger}.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("ok"))
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/catalog?category=Salas", nil)
	req = req.WithContext(obs.WithRoutePattern(req.Context(), "/api/v1/catalog"))
	req.Header.Set("X-Forwarded-For", "203.0.113.7")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	require.Equal(t, "http_request", entry["message"])
	require.Equal(t, "/api/v1/catalog", entry["route"])
	require.EqualValues(t, http.StatusTeapot, entry["status"])
	require.EqualValues(t, 2, entry["bytes"])
	require.Equal(t, "203.0.113.7", entry["client_ip"])
	require.Equal(t, "category=Salas", entry["query"])
}

func TestDomainMetricsRegisterOnce(t *testing.T) {
	registry := prometheus.NewRegistry()
	obs.MustRegisterDomainMetrics("catalogo", registry)
	obs.MustRegisterDomainMetrics("catalogo", registry)

	obs.IncCounter(obs.CatalogFallbackTotal, "source_error")
	require.Equal(t, float64(1), testutil.ToFloat64(obs.CatalogFallbackTotal.WithLabelValues("source_error")))

	obs.IncCounter(nil, "ignored")
}

func TestInitTracerNoneExporter(t *testing.T) {
	shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{ServiceName: "catalogo", Exporter: "none"})
	require.NoError(t, err)
	require.NoError(t, shutdown(context.Background()))

	_, err = obs.InitTracer(context.Background(), obs.TracingConfig{Exporter: "zipkin"})
	require.Error(t, err)
}

func TestStartSpanWithoutProvider(t *testing.T) {
	ctx, span := obs.StartSpan(context.Background(), "catalog", "catalog.test", "source", "static")
	require.NotNil(t, ctx)
	span.End()
}

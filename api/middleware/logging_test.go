package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/creatorhub-backend/pkg/logger"
)

func loggedRouter(buf *bytes.Buffer) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Level: "info", Output: buf})
	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/api/v1/releases/{releaseId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	})
	r.Get("/health/live", func(http.ResponseWriter, *http.Request) {})
	return r
}

func TestLoggingWritesAccessLine(t *testing.T) {
	buf := &bytes.Buffer{}
	loggedRouter(buf).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/releases/abc", nil))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "request.complete", line["message"])
	assert.EqualValues(t, http.StatusTeapot, line["status"])
	assert.EqualValues(t, len("short and stout"), line["bytes"])
	assert.Equal(t, "/api/v1/releases/{releaseId}", line["route"])
	assert.Equal(t, "/api/v1/releases/abc", line["path"])
}

func TestLoggingDemotesHealthChecks(t *testing.T) {
	buf := &bytes.Buffer{}
	loggedRouter(buf).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Zero(t, buf.Len(), buf.String())
}

type recordedObservation struct {
	method, route string
	status        int
}

type observerFunc func(method, route string, status int, elapsed time.Duration)

func (f observerFunc) ObserveRequest(method, route string, status int, elapsed time.Duration) {
	f(method, route, status, elapsed)
}

func TestMetricsUsesRoutePattern(t *testing.T) {
	var got []recordedObservation
	r := chi.NewRouter()
	r.Use(Metrics(observerFunc(func(method, route string, status int, _ time.Duration) {
		got = append(got, recordedObservation{method, route, status})
	})))
	r.Get("/api/v1/photos/{photoId}", func(http.ResponseWriter, *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/v1/photos/123", nil))
	require.Len(t, got, 1)
	assert.Equal(t, recordedObservation{http.MethodGet, "/api/v1/photos/{photoId}", http.StatusOK}, got[0])
}

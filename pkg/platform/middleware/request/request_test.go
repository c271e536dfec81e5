package request

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestID(t *testing.T) {
	capture := func(id *string) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*id = GetRequestID(r.Context())
		})
	}

	t.Run("generates UUID when no header provided", func(t *testing.T) {
		var got string
		w := httptest.NewRecorder()
		RequestID(capture(&got)).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data", nil))

		assert.Len(t, got, 36)
		assert.Equal(t, got, w.Header().Get("X-Request-ID"))
	})

	t.Run("reuses valid client id", func(t *testing.T) {
		var got string
		req := httptest.NewRequest(http.MethodPost, "/data", nil)
		req.Header.Set("X-Request-ID", "cron.trigger_42")
		RequestID(capture(&got)).ServeHTTP(httptest.NewRecorder(), req)

		assert.Equal(t, "cron.trigger_42", got)
	})

	t.Run("replaces unsafe client ids", func(t *testing.T) {
		for _, bad := range []string{
			"has space",
			"line\nbreak",
			`quote"d`,
			strings.Repeat("a", MaxRequestIDLength+1),
		} {
			var got string
			req := httptest.NewRequest(http.MethodGet, "/data", nil)
			req.Header.Set("X-Request-ID", bad)
			RequestID(capture(&got)).ServeHTTP(httptest.NewRecorder(), req)

			assert.NotEqual(t, bad, got)
			assert.Len(t, got, 36)
		}
	})

	t.Run("accepts id at exactly max length", func(t *testing.T) {
		assert.True(t, isValidRequestID(strings.Repeat("x", MaxRequestIDLength)))
	})
}

func TestGetRequestIDEmptyContext(t *testing.T) {
	assert.Equal(t, "", GetRequestID(context.Background()))
}

func TestRecovery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Recovery(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestLoggerSkipsHealthyHealthChecks(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	h := Logger(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	assert.Empty(t, buf.String())

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/data", nil))
	assert.Contains(t, buf.String(), `"path":"/data"`)
}

func TestTimeoutSetsDeadline(t *testing.T) {
	var hasDeadline bool
	h := Timeout(time.Second)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/data", nil))
	assert.True(t, hasDeadline)

	hasDeadline = false
	Timeout(0)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	})).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/data", nil))
	assert.False(t, hasDeadline)
}

func TestLatencyMiddlewareUsesRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetricsWithRegistry(reg)
	h := LatencyMiddleware(m, func(*http.Request) string { return "/data" })(
		http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}),
	)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/data?min_age=3", nil))

	count, err := testutil.GatherAndCount(reg, "roster_endpoint_latency_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

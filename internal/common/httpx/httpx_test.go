package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"production-tracker/internal/common/logger"
)

func TestWithRequestLog(t *testing.T) {
	base := logger.New("test")
	var seen *logger.Logger
	h := WithRequestLog(base, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = LoggerFrom(r.Context(), nil)
		w.WriteHeader(http.StatusTeapot)
	}))

	t.Run("generates an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))

		assert.Equal(t, http.StatusTeapot, rec.Code)
		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
		assert.NotNil(t, seen)
	})

	t.Run("keeps the gateway id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		req.Header.Set(RequestIDHeader, "gw-42")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, "gw-42", rec.Header().Get(RequestIDHeader))
	})
}

func TestLoggerFromFallback(t *testing.T) {
	fb := logger.New("fallback")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Same(t, fb, LoggerFrom(req.Context(), fb))
}

func TestWriteProblem(t *testing.T) {
	rec := httptest.NewRecorder()
	WriteProblem(rec, http.StatusNotFound, "not_found", "order not found")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/problem+json; charset=utf-8", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not_found", body["type"])
	assert.Equal(t, "Not Found", body["title"])
	assert.EqualValues(t, 404, body["status"])
	assert.Equal(t, "order not found", body["detail"])
}

func TestAtoiDefault(t *testing.T) {
	assert.Equal(t, 7, AtoiDefault("", 7))
	assert.Equal(t, 7, AtoiDefault("x", 7))
	assert.Equal(t, 12, AtoiDefault("12", 7))
}

func TestWithConcurrencyLimit(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	h := WithConcurrencyLimit(1, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		entered <- struct{}{}
		<-release
	}))

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
	}()
	<-entered

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	close(release)
	<-done

	go func() { <-entered }()
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

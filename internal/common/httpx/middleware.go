package httpx

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"production-tracker/internal/common/logger"
)

const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// LoggerFrom returns the request scoped logger set by WithRequestLog, or
// fallback when there is none.
func LoggerFrom(ctx context.Context, fallback *logger.Logger) *logger.Logger {
	if lg, ok := ctx.Value(ctxKey{}).(*logger.Logger); ok {
		return lg
	}
	return fallback
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

// WithRequestLog assigns every request an id (reusing X-Request-ID when the
// gateway sent one), stores a logger carrying it in the context and logs
// the finished request.
func WithRequestLog(lg *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)

		rl := lg.WithRequestID(id)
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		start := time.Now()

		next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), ctxKey{}, rl)))

		rl.Debug("http_request", map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.code,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	})
}

// WithConcurrencyLimit answers 503 while max requests are already in flight.
func WithConcurrencyLimit(max int64, next http.Handler) http.Handler {
	if max <= 0 {
		return next
	}
	sem := semaphore.NewWeighted(max)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !sem.TryAcquire(1) {
			WriteProblem(w, http.StatusServiceUnavailable, "overloaded", "too many concurrent requests")
			return
		}
		defer sem.Release(1)
		next.ServeHTTP(w, r)
	})
}

// Package middleware holds the HTTP middleware of the strategy API
package middleware

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"product-strategy-gateway/internal/logging"
)

type contextKey string

// RequestIDKey is the context key for request ID
const RequestIDKey contextKey = "request_id"

// slowRequest is the duration above which a request is logged as slow.
// Generation endpoints routinely exceed it, so it only raises the level to warn.
const slowRequest = 10 * time.Second

// LoggingMiddleware logs every request and propagates a request ID. The request ID
// doubles as the trace ID seen by the gateway logs.
type LoggingMiddleware struct {
	logger logging.Logger
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(logger logging.Logger) *LoggingMiddleware {
	if logger == nil {
		logger = logging.NewNoOpLogger()
	}
	return &LoggingMiddleware{logger: logger.WithComponent("http")}
}

// Handler returns the logging middleware handler
func (lm *LoggingMiddleware) Handler() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = logging.WithTraceID(ctx, requestID)
			r = r.WithContext(ctx)
			w.Header().Set("X-Request-ID", requestID)

			wrapper := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapper, r)

			if isHealthCheck(r.URL.Path) {
				return
			}
			lm.logResponse(r, wrapper.statusCode, time.Since(start))
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader captures the status code
func (rw *responseWriter) WriteHeader(statusCode int) {
	rw.statusCode = statusCode
	rw.ResponseWriter.WriteHeader(statusCode)
}

// Unwrap exposes the underlying writer so http.ResponseController and the
// websocket upgrader can reach the hijacker.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets websocket upgrades pass through the wrapper
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not support hijacking")
	}
	return hijacker.Hijack()
}

func (lm *LoggingMiddleware) logResponse(r *http.Request, statusCode int, duration time.Duration) {
	fields := []interface{}{
		"method", r.Method,
		"path", r.URL.Path,
		"status", statusCode,
		"duration_ms", duration.Milliseconds(),
		"remote", r.RemoteAddr,
	}

	switch {
	case statusCode >= 500:
		lm.logger.ErrorContext(r.Context(), "request failed", fields...)
	case statusCode >= 400:
		lm.logger.WarnContext(r.Context(), "request rejected", fields...)
	case duration > slowRequest:
		lm.logger.WarnContext(r.Context(), "slow request", fields...)
	default:
		lm.logger.InfoContext(r.Context(), "request completed", fields...)
	}
}

func isHealthCheck(path string) bool {
	return path == "/health" || path == "/api/v1/health" || path == "/ping"
}

// GetRequestID extracts request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

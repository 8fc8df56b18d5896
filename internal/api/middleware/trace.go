package middleware

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/positionhq/position-api/internal/api/shared"
	"github.com/positionhq/position-api/internal/platform/logger"
)

// traceHeader carries the trace ID to and from clients.
const traceHeader = "X-Trace-Id"

// Trace assigns each request a trace ID (honoring one supplied by the
// caller), stores a trace-scoped logger in the context, and echoes the ID
// on the response.
func Trace(log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(traceHeader)
			if traceID == "" {
				traceID = uuid.NewString()
			}

			ctx := shared.WithTraceID(r.Context(), traceID)
			ctx = logger.WithContext(ctx, log.With(slog.String("trace_id", traceID)))

			w.Header().Set(traceHeader, traceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

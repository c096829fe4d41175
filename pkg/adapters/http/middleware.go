package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
)

// RequestIDHeader carries the request ID in both directions.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

type requestScope struct {
	id     string
	logger *slog.Logger
}

// RequestID tags every request with an ID, taken from the X-Request-ID
// header or generated, echoes it in the response and scopes a logger to it.
func RequestID(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(RequestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(RequestIDHeader, id)

			scope := requestScope{id: id, logger: logger.With("request_id", id)}
			ctx := context.WithValue(r.Context(), ctxKey{}, scope)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFrom returns the request ID stored in ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	scope, _ := ctx.Value(ctxKey{}).(requestScope)
	return scope.id
}

// LoggerFrom returns the request-scoped logger, or fallback.
func LoggerFrom(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if scope, ok := ctx.Value(ctxKey{}).(requestScope); ok && scope.logger != nil {
		return scope.logger
	}
	return fallback
}

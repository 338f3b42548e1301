package middleware

import (
	"log/slog"
	"net/http"

	"github.com/Sivaraj16/medicals/pkg/logger"
)

// RequestLogger stores a request-scoped logger in the context, carrying the
// correlation id, the authenticated operator and the active trace. Mount it
// after RequestLogging and Tracing; handlers get it with logger.FromContext.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if id := OperatorIDFromContext(ctx); id != "" && logger.OperatorIDFromContext(ctx) == "" {
				ctx = logger.WithOperatorID(ctx, id)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

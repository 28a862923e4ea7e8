package middleware

import (
	"net/http"

	apperrors "github.com/alchemorsel/mealplanner/pkg/errors"
	"github.com/getsentry/sentry-go"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Sentry gives each request its own hub and turns panics into a captured
// event and a 500 response
func Sentry(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			hub := sentry.GetHubFromContext(ctx)
			if hub == nil {
				hub = sentry.CurrentHub().Clone()
				ctx = sentry.SetHubOnContext(ctx, hub)
				r = r.WithContext(ctx)
			}
			hub.Scope().SetRequest(r)
			if id := chimiddleware.GetReqID(ctx); id != "" {
				hub.Scope().SetTag("request_id", id)
			}

			wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				if rec := recover(); rec != nil {
					hub.RecoverWithContext(ctx, rec)
					logger.Error("Panic recovered",
						zap.String("request_id", chimiddleware.GetReqID(ctx)),
						zap.String("method", r.Method),
						zap.String("path", r.URL.Path),
						zap.Any("panic", rec),
						zap.Stack("stack"),
					)
					WriteError(wrapped, r, apperrors.NewInternalError(""))
				}
			}()

			next.ServeHTTP(wrapped, r)

			if wrapped.statusCode >= http.StatusInternalServerError {
				hub.CaptureMessage(r.Method + " " + r.URL.Path + " returned " + http.StatusText(wrapped.statusCode))
			}
		})
	}
}

package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

type webContextKey string

const webIdentityKey webContextKey = "identity"

// GuardMiddleware redirects to the sign-in page unless a token is stored,
// and adds what the token says about the operator to the context.
func (s *Server) GuardMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.App.Auth.Guard(r.Context()) {
			http.Redirect(w, r, "/signin", http.StatusSeeOther)
			return
		}

		ctx := r.Context()
		if id, err := s.App.Auth.Whoami(ctx); err == nil {
			ctx = context.WithValue(ctx, webIdentityKey, id)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// statusRecorder wraps http.ResponseWriter to capture the status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs HTTP requests with method, path, status, and duration.
func LoggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.RequestURI(), "status", rec.status, "duration", time.Since(start).Round(time.Millisecond))
		})
	}
}

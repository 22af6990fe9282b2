package router

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/craftline/leadtrack/internal/export"
	"github.com/craftline/leadtrack/internal/lead"
	leadrepo "github.com/craftline/leadtrack/internal/lead/repo"
	"github.com/craftline/leadtrack/internal/metrics"
	"github.com/craftline/leadtrack/internal/session"
	"github.com/craftline/leadtrack/internal/user"
	"github.com/craftline/leadtrack/pkg/utilities"
)

// loggingResponseWriter wraps http.ResponseWriter to capture status and size.
type loggingResponseWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.status = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.status == 0 {
		lrw.status = http.StatusOK
	}
	n, err := lrw.ResponseWriter.Write(b)
	lrw.size += n
	return n, err
}

// RequestIDMiddleware assigns a correlation id to every request and echoes it
// back in the response headers.
func RequestIDMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rid := r.Header.Get("X-Request-ID")
			if rid == "" {
				rid = utilities.NewKSUID()
			}
			w.Header().Set("X-Request-ID", rid)
			next.ServeHTTP(w, r)
		})
	}
}

// LoggingMiddleware logs requests at debug level using the provided sugared logger.
func LoggingMiddleware(logger *zap.SugaredLogger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			lrw := &loggingResponseWriter{ResponseWriter: w}
			next.ServeHTTP(lrw, r)
			dur := time.Since(start)
			status := lrw.status
			if status == 0 {
				status = http.StatusOK
			}
			logger.Debugw("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"status", status,
				"duration_ms", float64(dur.Microseconds())/1000.0,
				"size", lrw.size,
				"request_id", lrw.Header().Get("X-Request-ID"),
			)
		})
	}
}

// SecurityHeadersMiddleware sets common HTTP security headers.
// It is intentionally simple and conservative so it works with most setups.
func SecurityHeadersMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "no-referrer-when-downgrade")
			if r.TLS != nil {
				w.Header().Set("Strict-Transport-Security", "max-age=2592000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RegisterRoutes mounts HTTP handlers on the standard library's ServeMux and
// returns the composed handler chain. The returned user service still needs
// its bootstrap step run by the caller.
func RegisterRoutes(logger *zap.SugaredLogger, db *sqlx.DB) (http.Handler, *user.Service) {
	mux := http.NewServeMux()

	sessions := session.NewManager(session.ConfigFromEnv())

	leads := leadrepo.NewLeadRepo(db)
	leadHandler := lead.NewHandlerWithService(lead.NewService(db, leads), logger)
	exportHandler := export.NewHandler(export.NewService(leads), logger)
	userHandler := user.NewHandler(db, sessions, logger)

	// public
	mux.HandleFunc("GET /leadtrack-api/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("POST /leadtrack-api/login", userHandler.Login)
	mux.Handle("GET /metrics", metrics.Handler())

	// authenticated
	authed := func(h http.HandlerFunc) http.Handler {
		return sessions.RequireAuth(h)
	}
	mux.Handle("GET /leadtrack-api/dashboard", authed(leadHandler.Dashboard))
	mux.Handle("POST /leadtrack-api/leads", authed(leadHandler.Create))
	mux.Handle("GET /leadtrack-api/leads", authed(leadHandler.List))
	mux.Handle("GET /leadtrack-api/leads/{leadID}", authed(leadHandler.Get))
	mux.Handle("POST /leadtrack-api/leads/assign", authed(leadHandler.Assign))
	mux.Handle("POST /leadtrack-api/leads/reschedule", authed(leadHandler.Reschedule))
	mux.Handle("POST /leadtrack-api/leads/follow-ups", authed(leadHandler.FollowUps))
	mux.Handle("POST /leadtrack-api/export", authed(exportHandler.Export))

	// admin only
	adminOnly := func(h http.HandlerFunc) http.Handler {
		return sessions.RequireAuth(sessions.RequireAdmin(h))
	}
	mux.Handle("GET /leadtrack-api/users", adminOnly(userHandler.List))
	mux.Handle("POST /leadtrack-api/users", adminOnly(userHandler.Create))

	handler := RequestIDMiddleware()(
		LoggingMiddleware(logger)(
			metrics.Middleware(
				SecurityHeadersMiddleware()(mux))))
	return handler, userHandler.Service()
}

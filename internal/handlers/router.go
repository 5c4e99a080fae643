package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/notekeeper/apiserver/internal/metrics"
	"github.com/notekeeper/apiserver/internal/services"
)

// requestTimeout bounds the work a handler does downstream. It stays below
// the server's WriteTimeout so the JSON error can still be written.
const requestTimeout = 10 * time.Second

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Logger     zerolog.Logger
	Users      *services.UserService
	Notes      *services.NoteService
	Categories *services.CategoryService
	Tokens     TokenValidator
	DBClock    DBClock
}

// NewRouter builds the chi router with middleware, public routes and the
// authenticated /api/notes and /api/categories trees.
func NewRouter(cfg RouterConfig) *chi.Mux {
	router := chi.NewRouter()
	router.Use(
		middleware.RealIP,
		hlog.NewHandler(cfg.Logger),
		hlog.RequestIDHandler("request_id", "X-Request-Id"),
		accessLog,
		recoverJSON,
		instrument,
		requestDeadline(requestTimeout),
	)
	router.NotFound(notFound)
	router.MethodNotAllowed(methodNotAllowed)

	router.Get("/health", Health)
	router.Get("/db-test", DBTest(cfg.DBClock))
	router.Handle("/metrics", promhttp.Handler())

	authMiddleware := RequireAuth(cfg.Tokens)
	router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			AuthRouter(r, cfg.Users)
		})
		r.Route("/notes", func(r chi.Router) {
			r.Use(authMiddleware)
			NoteRouter(r, cfg.Notes)
		})
		r.Route("/categories", func(r chi.Router) {
			r.Use(authMiddleware)
			CategoryRouter(r, cfg.Categories)
		})
	})

	return router
}

var accessLog = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
})

// recoverJSON turns a handler panic into the generic 500 body.
func recoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				hlog.FromRequest(r).Error().
					Interface("panic", rec).
					Str("path", r.URL.Path).
					Msg("recovered from panic")
				writeError(w, http.StatusInternalServerError, msgInternalError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// requestDeadline cancels the request context after d. Store calls then fail
// with context.DeadlineExceeded, which writeServiceError reports as 504.
func requestDeadline(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// instrument records request latency by route pattern, so /api/notes/7 and
// /api/notes/8 share a series.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

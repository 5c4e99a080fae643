package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/notekeeper/apiserver/config"
	"github.com/notekeeper/apiserver/internal/auth"
	"github.com/notekeeper/apiserver/internal/db"
	"github.com/notekeeper/apiserver/internal/handlers"
	"github.com/notekeeper/apiserver/internal/mq"
	"github.com/notekeeper/apiserver/internal/services"
	"github.com/notekeeper/apiserver/internal/storage"
	"github.com/notekeeper/apiserver/internal/store"
)

// ErrMissingSecret is returned by New when JWT_SECRET is empty.
var ErrMissingSecret = errors.New("JWT_SECRET is required")

// Server wraps the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.EventBus
	objects    *storage.Storage
	logger     zerolog.Logger
}

// New wires storage, services and routes. The signing secret is checked
// before any connection is opened.
func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return nil, ErrMissingSecret
	}
	tokens, err := auth.NewTokenManager(cfg.JWTSecret)
	if err != nil {
		return nil, err
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	events, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open event bus: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		_ = events.Close()
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	userRepo := store.NewUserRepository(dbConn)
	noteRepo := store.NewNoteRepository(dbConn)
	categoryRepo := store.NewCategoryRepository(dbConn)

	// A nil *EventBus drops events; a nil store disables exports. Both are
	// passed through interfaces, so the typed nils are converted explicitly.
	var publisher services.EventPublisher
	if events != nil {
		publisher = events
	}
	var exportStore services.ObjectStore
	if objects != nil {
		exportStore = objects
	}

	userService, err := services.NewUserService(userRepo, auth.NewPasswordHasher(), tokens, publisher)
	if err != nil {
		_ = objects.Close()
		_ = events.Close()
		_ = dbConn.Close()
		return nil, err
	}
	noteService := services.NewNoteService(noteRepo, categoryRepo, exportStore, publisher)
	categoryService := services.NewCategoryService(categoryRepo, publisher)

	router := handlers.NewRouter(handlers.RouterConfig{
		Logger:     logger,
		Users:      userService,
		Notes:      noteService,
		Categories: categoryService,
		Tokens:     tokens,
		DBClock: func(ctx context.Context) (time.Time, error) {
			return db.Now(ctx, dbConn)
		},
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	startup := logger.Info().
		Int("port", port).
		Str("mq_backend", cfg.MQ.Backend).
		Str("storage_backend", cfg.Storage.Backend).
		Bool("exports", noteService.ExportsEnabled())
	if objects != nil {
		startup = startup.Str("export_bucket", objects.Bucket())
	}
	if events != nil {
		startup = startup.Str("events_channel", events.Channel())
	}
	startup.Msg("server configured")

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		objects:    objects,
		logger:     logger,
	}, nil
}

// Router exposes the chi router.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until it is shut down. A graceful shutdown is
// not reported as an error.
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("listening")
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the event bus, the
// export storage client and the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if closeErr := s.events.Close(); closeErr != nil {
		s.logger.Warn().Err(closeErr).Msg("close event bus")
	}
	if closeErr := s.objects.Close(); closeErr != nil {
		s.logger.Warn().Err(closeErr).Msg("close export storage")
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}

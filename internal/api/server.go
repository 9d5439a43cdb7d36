// Package api provides the HTTP server of the build service.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/Chailang/appPack/internal/api/handlers"
	"github.com/Chailang/appPack/internal/api/middleware"
	"github.com/Chailang/appPack/internal/build"
	"github.com/Chailang/appPack/internal/detector"
	"github.com/Chailang/appPack/internal/settings"
	"github.com/Chailang/appPack/pkg/config"
)

// Version is the current version of the server.
// This should be set at build time using ldflags.
var Version = "dev"

// Server represents the HTTP server.
type Server struct {
	router       chi.Router
	httpServer   *http.Server
	orchestrator *build.Orchestrator
	settings     *settings.Store
	config       *config.Config
	logger       *slog.Logger
}

// NewServer creates a new server with the given dependencies.
func NewServer(cfg *config.Config, orch *build.Orchestrator, st *settings.Store, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		orchestrator: orch,
		settings:     st,
		config:       cfg,
		logger:       logger,
	}
	s.setupRouter()
	return s
}

// setupRouter configures the router with middleware and routes.
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(middleware.Recovery(s.logger))

	detectHandler := handlers.NewDetectHandler(detector.New(), s.logger)
	buildHandler := handlers.NewBuildHandler(s.orchestrator, s.orchestrator, s.config.Session.PollInterval, s.logger)
	settingsHandler := handlers.NewSettingsHandler(s.settings, s.logger)
	directoriesHandler := handlers.NewDirectoriesHandler(s.logger)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	})

	// The progress streams hold their connections open for the whole build,
	// so they mount outside the Timeout wrapper.
	r.Group(func(r chi.Router) {
		r.Get("/api/build/progress/{sessionID}", buildHandler.Progress)
		r.Get("/api/build/ws/{sessionID}", buildHandler.Stream)
	})

	r.Group(func(r chi.Router) {
		r.Use(chimiddleware.Timeout(60 * time.Second))

		r.Post("/api/check-project", detectHandler.CheckProject)
		r.Post("/api/build/start", buildHandler.Start)

		r.Get("/api/config", settingsHandler.Get)
		r.Post("/api/config", settingsHandler.Update)
		r.Post("/api/config/add-path", settingsHandler.AddPath)

		r.Get("/api/directories", directoriesHandler.List)
	})

	s.router = r
}

// Router returns the configured router, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start begins listening for HTTP requests. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              s.config.ListenAddr(),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("http server starting", "addr", s.config.ListenAddr(), "version", Version)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

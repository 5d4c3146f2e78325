package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/atsforge/internal/app"
)

// Server exposes the operator admin API over the application's pipeline
// and storage layer.
type Server struct {
	app          *app.App
	router       *http.ServeMux
	server       *http.Server
	shutdownChan chan struct{}
}

// New builds a Server bound to application's configured host/port.
func New(application *app.App) *Server {
	s := &Server{app: application}
	s.router = s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", application.Config.Server.Host, application.Config.Server.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withMiddleware(s.router),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// SetShutdownChannel wires a channel that callers can close to trigger a
// graceful shutdown without an OS signal.
func (s *Server) SetShutdownChannel(ch chan struct{}) {
	s.shutdownChan = ch
}

// Start runs the HTTP server until it errors or is shut down.
func (s *Server) Start() error {
	s.app.Logger.Info().Str("address", s.server.Addr).Msg("admin server starting")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server, waiting for in-flight requests up to
// the deadline on ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	s.app.Logger.Info().Msg("admin server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	return nil
}

// Handler returns the configured handler, for use in tests via httptest.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

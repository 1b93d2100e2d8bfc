package sandbox

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"
)

// Server wraps the HTTP server serving a Sandbox
type Server struct {
	srv    *http.Server
	logger *slog.Logger
}

// NewServer creates a server for sb listening on addr
func NewServer(addr string, sb *Sandbox) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         addr,
			Handler:      sb.Router(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		logger: sb.logger,
	}
}

// Start starts the HTTP server and blocks until it stops. A graceful shutdown
// is not reported as an error.
func (s *Server) Start() error {
	s.logger.Info("Sandbox listening", "addr", s.srv.Addr)
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down sandbox...")

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

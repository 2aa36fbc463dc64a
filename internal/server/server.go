package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/BioHazard786/roomrelay/internal/config"
	"github.com/BioHazard786/roomrelay/internal/metrics"
	"github.com/BioHazard786/roomrelay/internal/signaling"
)

// Server serves the relay over HTTP and owns the hub's lifetime.
type Server struct {
	cfg *config.Config
	hub *signaling.Hub
	log *slog.Logger
}

// New creates a Server for hub.
func New(cfg *config.Config, hub *signaling.Hub, log *slog.Logger) *Server {
	return &Server{cfg: cfg, hub: hub, log: log}
}

// Handler returns the HTTP routes: /ws, /health, /rooms and, when enabled,
// the metrics endpoint.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthCheckHandler)
	mux.HandleFunc("/rooms", roomsHandler(s.hub, s.log))
	mux.HandleFunc("/ws", ServeWs(s.hub, s.cfg, s.log))
	if s.cfg.MetricsEnabled {
		mux.Handle(s.cfg.MetricsPath, metrics.Handler())
	}
	return mux
}

// Run starts the hub and the HTTP server and blocks until ctx is cancelled
// or the listener fails. On cancellation it stops accepting connections,
// then stops the hub, which closes every participant.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.ListenAddr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		s.hub.Run(hubCtx)
	}()
	defer func() {
		stopHub()
		<-hubDone
	}()

	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		s.log.Info("signaling relay listening", "addr", ln.Addr().String())
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.log.Info("shutting down", "timeout", s.cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/juniperhq/concierge/internal/flow"
	"github.com/juniperhq/concierge/internal/models"
	"github.com/juniperhq/concierge/internal/store"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// DefaultShutdownTimeout bounds graceful shutdown on termination.
const DefaultShutdownTimeout = 10 * time.Second

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server is the Concierge HTTP API server.
type Server struct {
	addr   string
	engine *flow.Engine
	st     store.Store
	srv    *http.Server
}

// NewServer creates an API server around the dialogue engine and the
// transcript store.
func NewServer(engine *flow.Engine, st store.Store, opts ...Option) *Server {
	cfg := Opts{Addr: DefaultAddr}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := &Server{addr: cfg.Addr, engine: engine, st: st}

	mux := http.NewServeMux()
	mux.HandleFunc("/chat", s.chatHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/sessions/", s.sessionTurnsHandler)
	mux.Handle("/metrics", promhttp.Handler())

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.recoverMiddleware(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
	slog.Debug("api.NewServer: server created", "addr", cfg.Addr)
	return s
}

// Run starts the HTTP server and blocks until the context is cancelled or
// the listener fails. On cancellation the server drains in-flight requests
// for up to DefaultShutdownTimeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Server.Run: API server listening", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Server.Run: shutdown requested, draining connections")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
		defer cancel()
		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server.Run: graceful shutdown failed", "error", err)
			return err
		}
		slog.Info("Server.Run: server stopped")
		return nil
	}
}

// recoverMiddleware converts handler panics into a 500 envelope with a
// correlation id so callers can report faults without seeing internals.
func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				requestID := uuid.NewString()
				slog.Error("Server.recoverMiddleware: handler panicked", "panic", rec, "path", r.URL.Path, "request_id", requestID)
				resp := models.Error("Internal server error")
				resp.RequestID = requestID
				resp.Timestamp = time.Now().UTC().Format(time.RFC3339)
				writeJSONResponse(w, http.StatusInternalServerError, resp)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

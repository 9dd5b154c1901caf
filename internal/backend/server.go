package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/WOCOMLABS/jmv-arch/internal/config"
	"github.com/WOCOMLABS/jmv-arch/internal/fixture"
	"github.com/WOCOMLABS/jmv-arch/internal/metrics"
)

// ShutdownTimeout bounds graceful shutdown once Run's context is done.
const ShutdownTimeout = 5 * time.Second

// Server is the mock backend.
type Server struct {
	cfg     config.Server
	logger  *slog.Logger
	payload []byte
	token   string
	limiter *RateLimiter
	router  *mux.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithPayload replaces the periodic-table body. Default: the embedded
// elements fixture.
func WithPayload(payload []byte) Option {
	return func(s *Server) {
		s.payload = payload
	}
}

// WithToken makes /periodic-table require "Authorization: Bearer <token>".
func WithToken(token string) Option {
	return func(s *Server) {
		s.token = token
	}
}

// New builds the server and its routes.
func New(cfg config.Server, opts ...Option) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.payload == nil {
		payload, err := fixture.Read(fixture.Elements)
		if err != nil {
			return nil, err
		}
		s.payload = payload
	}
	if !json.Valid(s.payload) {
		return nil, errors.New("backend payload is not valid JSON")
	}

	s.logger = s.logger.With("component", "backend")
	s.limiter = NewRateLimiter(cfg.RateLimit, cfg.Burst, s.logger)
	s.router = s.routes()
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(loggingMiddleware(s.logger), metrics.InstrumentHandler, s.limiter.Middleware)

	r.HandleFunc("/periodic-table", s.handlePeriodicTable).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	return r
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address and serves until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	s.limiter.StartCleanup(ctx, CleanupInterval)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("backend listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handlePeriodicTable(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(s.payload)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

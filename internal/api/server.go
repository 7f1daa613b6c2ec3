// Package api provides the HTTP REST API for the support agent.
//
// Endpoints:
//
//	POST   /api/chat                      - synchronous chat (via genkit.Handler)
//	POST   /api/chat/stream               - streaming chat (Server-Sent Events)
//	GET    /api/sessions                  - list sessions
//	POST   /api/sessions                  - create session
//	GET    /api/sessions/{id}             - get session
//	DELETE /api/sessions/{id}             - delete session
//	GET    /api/sessions/{id}/messages    - list session messages
//	GET    /api/tickets                   - list tickets
//	POST   /api/tickets                   - create ticket
//	GET    /api/tickets/{id}              - get ticket
//	POST   /api/tickets/{id}/respond      - record a human answer, close ticket
//	GET    /health                        - liveness probe
//	GET    /ready                         - readiness probe
//
// File structure:
//   - server.go: HTTP server setup and lifecycle
//   - middleware.go: HTTP middleware (recovery, logging)
//   - ratelimit.go: per-IP rate limiting
//   - health.go: health check endpoints
//   - session.go: session management endpoints
//   - ticket.go: ticket endpoints
//   - chat.go: chat endpoints via the Genkit flow
//   - response.go: JSON response helpers
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/resolvo/resolvo/internal/agent"
	"github.com/resolvo/resolvo/internal/session"
	"github.com/resolvo/resolvo/internal/ticket"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds header reads (Slowloris protection).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Streaming chat responses need headroom for slow model turns.
	WriteTimeout = 120 * time.Second

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 120 * time.Second
)

// Rate limiting defaults: refill per second and burst per client IP.
const (
	DefaultRateLimit = 5.0
	DefaultRateBurst = 10
)

// Config holds server construction parameters.
type Config struct {
	Pool     *pgxpool.Pool
	Sessions *session.Store
	Tickets  *ticket.Store
	Flow     *agent.Flow
	Logger   *slog.Logger

	// TrustProxy enables X-Real-IP / X-Forwarded-For for client IPs.
	// Leave false unless a reverse proxy fronts the server.
	TrustProxy bool

	// CORSOrigins lists origins allowed cross-origin access.
	CORSOrigins []string

	// RateLimit and RateBurst override the per-IP token bucket.
	// Zero values use the defaults.
	RateLimit float64
	RateBurst int
}

// Server is the HTTP server for the support agent's REST API.
type Server struct {
	mux         *http.ServeMux
	logger      *slog.Logger
	limiter     *rateLimiter
	trustProxy  bool
	corsOrigins []string
}

// NewServer creates a server with all routes registered.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if cfg.Tickets == nil {
		return nil, fmt.Errorf("ticket store is required")
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	limit := cfg.RateLimit
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = DefaultRateBurst
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:         mux,
		logger:      cfg.Logger,
		limiter:     newRateLimiter(limit, burst),
		trustProxy:  cfg.TrustProxy,
		corsOrigins: cfg.CORSOrigins,
	}

	newHealthHandler(cfg.Pool, cfg.Logger).registerRoutes(mux)
	newSessionHandler(cfg.Sessions, cfg.Logger).registerRoutes(mux)
	newTicketHandler(cfg.Tickets, cfg.Logger).registerRoutes(mux)
	newChatHandler(cfg.Flow, cfg.Logger).registerRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery, CORS, logging, rate limit, routes. Preflight requests
// are answered before they reach the rate limiter.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		corsMiddleware(s.corsOrigins),
		loggingMiddleware(s.logger),
		rateLimitMiddleware(s.limiter, s.trustProxy, s.logger),
	)
}

// Run starts the HTTP server and blocks until the context is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		WriteTimeout:      WriteTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

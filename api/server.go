// Package api provides the HTTP REST API for engram.
//
// Endpoints:
//
//	POST   /api/chat                          retrieval-augmented chat turn
//	GET    /api/memories                      list (optional ?q= substring filter)
//	POST   /api/memories                      create memory + embedding
//	PUT    /api/memories/{id}                 update memory, replace embedding
//	DELETE /api/memories/{id}                 delete memory
//	GET    /api/profile                       caller's profile (defaults when absent)
//	PUT    /api/profile                       create/update profile
//	GET    /api/categories                    list memory categories
//	POST   /api/categories                    create memory category
//	GET    /api/conversations                 list conversations
//	GET    /api/conversations/{id}/messages   conversation history
//	GET    /api/stats                         per-type memory counts
//	GET    /health                            liveness probe
//	GET    /ready                             readiness probe (DB ping)
//
// Everything under /api requires a bearer JWT; health probes do not.
//
// File structure:
//   - server.go: server setup and lifecycle
//   - middleware.go: recovery, logging, CORS, rate limit, auth
//   - response.go: JSON response helpers
//   - chat.go, memory.go, profile.go, conversation.go, stats.go, health.go:
//     handlers
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/time/rate"

	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/log"
)

const (
	// DefaultAddr is the default address for the HTTP server.
	DefaultAddr = "127.0.0.1:8787"

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout bounds request header reads (Slowloris protection).
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading the entire request.
	ReadTimeout = 30 * time.Second

	// WriteTimeout is the maximum duration for writing the response.
	// Chat turns wait on two upstream services, so this is generous.
	WriteTimeout = 2 * time.Minute

	// IdleTimeout is the keep-alive idle limit.
	IdleTimeout = 2 * time.Minute

	// DefaultRateLimit is the sustained request rate allowed per client.
	DefaultRateLimit = rate.Limit(50)

	// DefaultRateBurst is each client's burst allowance on top of
	// DefaultRateLimit.
	DefaultRateBurst = 100
)

// ServerConfig wires the server's collaborators.
type ServerConfig struct {
	Logger   log.Logger
	Verifier *auth.Verifier
	Pool     *pgxpool.Pool // readiness checks

	Chat          ChatService
	Memories      MemoryStore
	Profiles      ProfileStore
	Conversations ConversationStore

	// RateBurst overrides DefaultRateBurst when positive.
	RateBurst int

	// TrustProxy enables X-Real-IP / X-Forwarded-For as the client
	// identity for rate limiting. Only safe behind a reverse proxy.
	TrustProxy bool
}

// Server is the engram HTTP server.
type Server struct {
	mux        *http.ServeMux
	logger     log.Logger
	auth       *authMiddleware
	limiter    *rateLimiter
	trustProxy bool
}

// NewServer creates an HTTP server with all routes registered.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if cfg.Verifier == nil {
		return nil, fmt.Errorf("verifier is required")
	}
	if cfg.Chat == nil || cfg.Memories == nil || cfg.Profiles == nil || cfg.Conversations == nil {
		return nil, fmt.Errorf("all services are required")
	}

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = DefaultRateBurst
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:        mux,
		logger:     cfg.Logger,
		auth:       &authMiddleware{verifier: cfg.Verifier, logger: cfg.Logger},
		limiter:    newRateLimiter(DefaultRateLimit, burst),
		trustProxy: cfg.TrustProxy,
	}

	NewHealthHandler(cfg.Pool, cfg.Logger).RegisterRoutes(mux)
	NewChatHandler(cfg.Chat, cfg.Logger).RegisterRoutes(mux)
	NewMemoryHandler(cfg.Memories, cfg.Logger).RegisterRoutes(mux)
	NewProfileHandler(cfg.Profiles, cfg.Logger).RegisterRoutes(mux)
	NewConversationHandler(cfg.Conversations, cfg.Logger).RegisterRoutes(mux)
	NewStatsHandler(cfg.Memories, cfg.Conversations, cfg.Logger).RegisterRoutes(mux)

	return s, nil
}

// Handler returns the HTTP handler with middleware applied.
// Order: recovery → logging → CORS → rate limit → auth → routes.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		s.recoveryMiddleware,
		s.loggingMiddleware,
		corsMiddleware,
		s.rateLimitMiddleware,
		s.auth.wrap,
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutting down server: %w", err)
		}
		<-errCh
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}

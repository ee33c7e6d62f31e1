package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/engramhq/engram/api"
	"github.com/engramhq/engram/db"
	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/brain"
	"github.com/engramhq/engram/internal/config"
	"github.com/engramhq/engram/internal/conversation"
	"github.com/engramhq/engram/internal/embed"
	"github.com/engramhq/engram/internal/llm"
	"github.com/engramhq/engram/internal/log"
	"github.com/engramhq/engram/internal/memory"
	"github.com/engramhq/engram/internal/profile"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the engram HTTP API server: memory CRUD, profile and
conversation endpoints, and the retrieval-grounded chat endpoint.
Applies pending database migrations before listening.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

// parseRateBurst reads ENGRAM_RATE_BURST from the environment.
// Returns 0 (use default) if unset or invalid.
func parseRateBurst() int {
	v := os.Getenv("ENGRAM_RATE_BURST")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// parseLogLevel maps the configured level name to a slog level.
func parseLogLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// runServe wires the full service and blocks until SIGINT/SIGTERM.
func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	logger := log.New(log.Config{Level: parseLogLevel(cfg.LogLevel), JSON: cfg.LogJSON})
	slog.SetDefault(logger)
	logger.Info("starting engram", "version", Version)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresURL())
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}

	embedder, err := embed.NewClient(cfg.EmbeddingEndpoint, cfg.EmbeddingToken, logger)
	if err != nil {
		return fmt.Errorf("creating embedding client: %w", err)
	}
	completer, err := llm.NewClient(cfg.CompletionAPIKey, cfg.CompletionModel, cfg.Temperature, logger)
	if err != nil {
		return fmt.Errorf("creating completion client: %w", err)
	}

	memories, err := memory.NewStore(pool, embedder, logger)
	if err != nil {
		return fmt.Errorf("creating memory store: %w", err)
	}
	profiles, err := profile.NewStore(pool, logger)
	if err != nil {
		return fmt.Errorf("creating profile store: %w", err)
	}
	conversations, err := conversation.NewStore(pool, logger)
	if err != nil {
		return fmt.Errorf("creating conversation store: %w", err)
	}

	chatBrain, err := brain.New(profiles, memories, conversations, embedder, completer,
		brain.Config{MatchThreshold: cfg.MatchThreshold, MatchCount: cfg.MatchCount}, logger)
	if err != nil {
		return fmt.Errorf("creating chat pipeline: %w", err)
	}

	verifier, err := auth.NewVerifier([]byte(cfg.JWTSecret))
	if err != nil {
		return fmt.Errorf("creating token verifier: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		Logger:        logger,
		Verifier:      verifier,
		Pool:          pool,
		Chat:          chatBrain,
		Memories:      memories,
		Profiles:      profiles,
		Conversations: conversations,
		RateBurst:     parseRateBurst(),
		TrustProxy:    cfg.TrustProxy,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	return server.Run(ctx, cfg.ServerAddr)
}

// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (runtime override, ENGRAM_ prefix)
//  2. Config file (~/.engram/config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Storage: PostgreSQL connection (see storage.go)
//   - Embedding: the external embedding function endpoint
//   - Completion: OpenAI-compatible chat completion API
//   - Retrieval: similarity threshold and result cap for memory search
//   - Auth: JWT secret for bearer token verification
//
// Security: sensitive values (passwords, API keys, secrets) are never logged.
// Validation lives in validation.go; missing required values are a fatal
// startup error.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates the completion API key is missing.
	ErrMissingAPIKey = errors.New("missing completion API key")

	// ErrMissingJWTSecret indicates the JWT secret is not set.
	ErrMissingJWTSecret = errors.New("missing JWT secret")

	// ErrInvalidJWTSecret indicates the JWT secret is too short.
	ErrInvalidJWTSecret = errors.New("invalid JWT secret")

	// ErrMissingEmbeddingEndpoint indicates the embedding endpoint is not set.
	ErrMissingEmbeddingEndpoint = errors.New("missing embedding endpoint")

	// ErrInvalidEmbeddingEndpoint indicates the embedding endpoint URL is malformed.
	ErrInvalidEmbeddingEndpoint = errors.New("invalid embedding endpoint")

	// ErrInvalidModelName indicates the completion model name is invalid.
	ErrInvalidModelName = errors.New("invalid model name")

	// ErrInvalidTemperature indicates the temperature value is out of range.
	ErrInvalidTemperature = errors.New("invalid temperature")

	// ErrInvalidMatchThreshold indicates the similarity threshold is out of range.
	ErrInvalidMatchThreshold = errors.New("invalid match threshold")

	// ErrInvalidMatchCount indicates the retrieval result cap is out of range.
	ErrInvalidMatchCount = errors.New("invalid match count")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultCompletionModel is the fixed chat completion model.
	DefaultCompletionModel = "gpt-3.5-turbo"

	// DefaultTemperature is the completion sampling temperature.
	DefaultTemperature float32 = 0.7

	// DefaultMatchThreshold is the minimum cosine similarity for a memory
	// to be considered relevant context.
	DefaultMatchThreshold float32 = 0.7

	// DefaultMatchCount caps the number of memories retrieved per chat turn.
	DefaultMatchCount = 5

	// MinJWTSecretLength is the minimum accepted JWT secret length in bytes.
	MinJWTSecretLength = 32
)

// Config stores application configuration.
// Sensitive fields (PostgresPassword, CompletionAPIKey, EmbeddingToken,
// JWTSecret) must never be logged.
type Config struct {
	// HTTP server
	ServerAddr string `mapstructure:"server_addr"`

	// TrustProxy enables X-Real-IP / X-Forwarded-For for client
	// identification. Only safe behind a reverse proxy that sets them.
	TrustProxy bool `mapstructure:"trust_proxy"`

	// PostgreSQL connection (see storage.go for DSN/URL builders)
	PostgresHost     string `mapstructure:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password"`
	PostgresDBName   string `mapstructure:"postgres_dbname"`
	PostgresSSLMode  string `mapstructure:"postgres_sslmode"`

	// Embedding function (external collaborator)
	EmbeddingEndpoint string `mapstructure:"embedding_endpoint"`
	EmbeddingToken    string `mapstructure:"embedding_token"`

	// Chat completion service
	CompletionAPIKey string  `mapstructure:"completion_api_key"`
	CompletionModel  string  `mapstructure:"completion_model"`
	Temperature      float32 `mapstructure:"temperature"`

	// Memory retrieval policy
	MatchThreshold float32 `mapstructure:"match_threshold"`
	MatchCount     int     `mapstructure:"match_count"`

	// Bearer token verification
	JWTSecret string `mapstructure:"jwt_secret"`

	// Logging
	LogLevel string `mapstructure:"log_level"`
	LogJSON  bool   `mapstructure:"log_json"`
}

// Load reads configuration from file, environment, and defaults.
// A missing config file is not an error; defaults and environment apply.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("ENGRAM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVariables(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if dir, err := configDir(); err == nil {
		v.AddConfigPath(dir)
	}
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("no config file found, using defaults and environment")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	// DATABASE_URL, when present, overrides individual postgres_* settings.
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		if err := cfg.applyDatabaseURL(raw); err != nil {
			return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
		}
	}

	return &cfg, nil
}

// bindEnvVariables binds the secret and endpoint keys explicitly. Viper's
// AutomaticEnv only resolves environment variables for keys it already
// knows about (defaults or config file); these keys deliberately have no
// defaults, so without an explicit bind their ENGRAM_* variables would be
// silently ignored.
func bindEnvVariables(v *viper.Viper) {
	// Hardcoded key names cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("postgres_password", "ENGRAM_POSTGRES_PASSWORD")
	mustBind("embedding_endpoint", "ENGRAM_EMBEDDING_ENDPOINT")
	mustBind("embedding_token", "ENGRAM_EMBEDDING_TOKEN")
	mustBind("completion_api_key", "ENGRAM_COMPLETION_API_KEY")
	mustBind("jwt_secret", "ENGRAM_JWT_SECRET")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server_addr", "127.0.0.1:8787")
	v.SetDefault("trust_proxy", false)

	v.SetDefault("postgres_host", "localhost")
	v.SetDefault("postgres_port", 5432)
	v.SetDefault("postgres_user", "engram")
	v.SetDefault("postgres_dbname", "engram")
	v.SetDefault("postgres_sslmode", "prefer")

	v.SetDefault("completion_model", DefaultCompletionModel)
	v.SetDefault("temperature", DefaultTemperature)

	v.SetDefault("match_threshold", DefaultMatchThreshold)
	v.SetDefault("match_count", DefaultMatchCount)

	v.SetDefault("log_level", "info")
	v.SetDefault("log_json", false)
}

// configDir returns the engram configuration directory (~/.engram).
func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".engram"), nil
}

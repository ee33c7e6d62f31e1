package config

import (
	"fmt"
	"net/url"
	"strings"
)

// validSSLModes are the sslmode values accepted by libpq/pgx.
var validSSLModes = map[string]struct{}{
	"disable":     {},
	"allow":       {},
	"prefer":      {},
	"require":     {},
	"verify-ca":   {},
	"verify-full": {},
}

// Validate checks every setting the server needs at startup.
// Missing required secrets and malformed values are fatal configuration
// errors; the caller should refuse to start.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	if err := c.ValidateStorage(); err != nil {
		return err
	}

	if c.EmbeddingEndpoint == "" {
		return ErrMissingEmbeddingEndpoint
	}
	if u, err := url.Parse(c.EmbeddingEndpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q", ErrInvalidEmbeddingEndpoint, c.EmbeddingEndpoint)
	}

	if c.CompletionAPIKey == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.CompletionModel) == "" {
		return fmt.Errorf("%w: empty", ErrInvalidModelName)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: %.2f (must be 0-2)", ErrInvalidTemperature, c.Temperature)
	}

	if c.MatchThreshold < 0 || c.MatchThreshold > 1 {
		return fmt.Errorf("%w: %.2f (must be 0-1)", ErrInvalidMatchThreshold, c.MatchThreshold)
	}
	if c.MatchCount < 1 || c.MatchCount > 100 {
		return fmt.Errorf("%w: %d (must be 1-100)", ErrInvalidMatchCount, c.MatchCount)
	}

	if c.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	if len(c.JWTSecret) < MinJWTSecretLength {
		return fmt.Errorf("%w: need at least %d bytes", ErrInvalidJWTSecret, MinJWTSecretLength)
	}

	return nil
}

// ValidateStorage checks only the PostgreSQL settings. The migrate command
// uses this; it needs the database but none of the service credentials.
func (c *Config) ValidateStorage() error {
	if c == nil {
		return ErrConfigNil
	}

	if strings.TrimSpace(c.PostgresHost) == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if strings.TrimSpace(c.PostgresDBName) == "" {
		return fmt.Errorf("%w: empty database name", ErrInvalidPostgresDBName)
	}
	if _, ok := validSSLModes[c.PostgresSSLMode]; !ok {
		return fmt.Errorf("%w: %q", ErrInvalidPostgresSSLMode, c.PostgresSSLMode)
	}
	return nil
}

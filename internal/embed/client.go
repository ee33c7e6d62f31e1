// Package embed calls the external embedding function that converts text
// into its vector representation.
//
// Embedding generation itself is owned by that function; this package only
// speaks its HTTP contract: POST {"text": ...} -> {"embedding": [...]}.
package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/engramhq/engram/internal/auth"
)

// Embedder converts text into a vector embedding.
// Consumers depend on this interface so tests can substitute a fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DefaultTimeout bounds a single embedding call.
const DefaultTimeout = 30 * time.Second

// Client is an HTTP client for the embedding function.
//
// The request is bearer-authenticated: when the context carries the caller's
// token (auth.WithIdentity), that credential is forwarded; otherwise the
// configured service token is used.
type Client struct {
	endpoint     string
	serviceToken string
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewClient creates an embedding client for the given endpoint.
func NewClient(endpoint, serviceToken string, logger *slog.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		endpoint:     endpoint,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
		logger:       logger,
	}, nil
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed requests a vector embedding for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.bearerFor(ctx))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling embedding function: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		// Body is drained for the diagnostic only; clients get a wrapped error.
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		c.logger.Error("embedding function returned error",
			"status", resp.StatusCode, "body", string(msg))
		return nil, fmt.Errorf("embedding function returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(parsed.Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return parsed.Embedding, nil
}

// bearerFor picks the credential for an outbound call: the caller's token
// when present, the service token otherwise.
func (c *Client) bearerFor(ctx context.Context) string {
	if token, ok := auth.Token(ctx); ok && token != "" {
		return token
	}
	return c.serviceToken
}

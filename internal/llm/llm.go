// Package llm wraps the chat completion service.
package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// Completer produces an assistant reply from a system prompt and the user's
// message. Consumers depend on this interface so tests can substitute a fake.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Client calls an OpenAI-compatible chat completion API with a fixed model
// and temperature.
type Client struct {
	api         openai.Client
	model       string
	temperature float64
	logger      *slog.Logger
}

// NewClient creates a completion client.
func NewClient(apiKey, model string, temperature float32, logger *slog.Logger) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if model == "" {
		return nil, fmt.Errorf("model is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:         openai.NewClient(option.WithAPIKey(apiKey)),
		model:       model,
		temperature: float64(temperature),
		logger:      logger,
	}, nil
}

// Complete sends a two-turn system+user exchange and returns the assistant
// text. No retries: upstream failure is the caller's to handle.
func (c *Client) Complete(ctx context.Context, systemPrompt, userMessage string) (string, error) {
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userMessage),
		},
		Temperature: openai.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	c.logger.Debug("completion finished",
		"model", c.model,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens)

	return resp.Choices[0].Message.Content, nil
}

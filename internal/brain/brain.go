// Package brain orchestrates retrieval-augmented chat: embed the user's
// message, retrieve the most similar memories, ground a completion on them,
// and persist the exchange.
package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/engramhq/engram/internal/conversation"
	"github.com/engramhq/engram/internal/memory"
	"github.com/engramhq/engram/internal/profile"
)

var (
	// ErrEmptyMessage indicates a blank or whitespace-only message.
	ErrEmptyMessage = errors.New("message is required")

	// ErrConversationNotFound indicates the supplied conversation id does
	// not exist or belongs to another user.
	ErrConversationNotFound = errors.New("conversation not found")
)

// ProfileStore supplies the caller's personalization settings.
type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*profile.Profile, error)
}

// MemorySearcher performs tenant-scoped similarity search.
type MemorySearcher interface {
	SearchSimilar(ctx context.Context, userID uuid.UUID, queryVec []float32, threshold float32, limit int) ([]memory.Match, error)
}

// ConversationStore persists conversations and chat turns.
type ConversationStore interface {
	Get(ctx context.Context, userID, id uuid.UUID) (*conversation.Conversation, error)
	Create(ctx context.Context, userID uuid.UUID, title string) (*conversation.Conversation, error)
	AddTurn(ctx context.Context, conversationID uuid.UUID, userContent, assistantContent string, contextMemories []uuid.UUID) error
}

// Embedder converts text into a vector embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer produces the assistant reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userMessage string) (string, error)
}

// Config holds the retrieval policy.
type Config struct {
	// MatchThreshold is the minimum cosine similarity for a memory to be
	// used as context.
	MatchThreshold float32

	// MatchCount caps how many memories ground one reply.
	MatchCount int
}

// Brain is the chat pipeline. All collaborators are interfaces so tests can
// run the whole flow in memory.
type Brain struct {
	profiles      ProfileStore
	searcher      MemorySearcher
	conversations ConversationStore
	embedder      Embedder
	completer     Completer
	cfg           Config
	logger        *slog.Logger
}

// New creates a Brain.
func New(profiles ProfileStore, searcher MemorySearcher, conversations ConversationStore,
	embedder Embedder, completer Completer, cfg Config, logger *slog.Logger) (*Brain, error) {
	if profiles == nil || searcher == nil || conversations == nil || embedder == nil || completer == nil {
		return nil, fmt.Errorf("all collaborators are required")
	}
	if cfg.MatchThreshold < 0 || cfg.MatchThreshold > 1 {
		return nil, fmt.Errorf("match threshold must be 0-1, got %.2f", cfg.MatchThreshold)
	}
	if cfg.MatchCount < 1 {
		return nil, fmt.Errorf("match count must be positive, got %d", cfg.MatchCount)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Brain{
		profiles:      profiles,
		searcher:      searcher,
		conversations: conversations,
		embedder:      embedder,
		completer:     completer,
		cfg:           cfg,
		logger:        logger,
	}, nil
}

// Request is one chat turn from the caller.
type Request struct {
	Message        string
	ConversationID *uuid.UUID
}

// Response is the pipeline's result: the assistant reply, the conversation
// it was recorded in (created when the request named none), and the memory
// records used as grounding context.
type Response struct {
	Reply            string
	ConversationID   uuid.UUID
	RelevantMemories []memory.Match
}

// Respond runs one chat turn. The chain is strictly sequential with no
// retries: any upstream failure aborts the request. Nothing is persisted
// before the completion succeeds; after that point a conversation created in
// this request outlives a message-insert failure (accepted non-atomicity).
func (b *Brain) Respond(ctx context.Context, userID uuid.UUID, req Request) (*Response, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, ErrEmptyMessage
	}

	// Profile absence (or a read error) degrades to defaults rather than
	// failing the turn.
	prof, err := b.profiles.Get(ctx, userID)
	if err != nil {
		b.logger.Warn("profile lookup failed, using defaults", "user_id", userID, "error", err)
		prof = profile.Default(userID)
	}

	queryVec, err := b.embedder.Embed(ctx, req.Message)
	if err != nil {
		return nil, fmt.Errorf("generating query embedding: %w", err)
	}

	matches, err := b.searcher.SearchSimilar(ctx, userID, queryVec, b.cfg.MatchThreshold, b.cfg.MatchCount)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}

	systemPrompt := buildSystemPrompt(prof, matches)

	reply, err := b.completer.Complete(ctx, systemPrompt, message)
	if err != nil {
		return nil, fmt.Errorf("generating response: %w", err)
	}

	conversationID, err := b.resolveConversation(ctx, userID, req.ConversationID, message)
	if err != nil {
		return nil, err
	}

	memoryIDs := make([]uuid.UUID, 0, len(matches))
	for _, m := range matches {
		memoryIDs = append(memoryIDs, m.MemoryID)
	}

	if err := b.conversations.AddTurn(ctx, conversationID, message, reply, memoryIDs); err != nil {
		return nil, fmt.Errorf("persisting turn: %w", err)
	}

	b.logger.Debug("chat turn completed",
		"user_id", userID,
		"conversation_id", conversationID,
		"context_memories", len(memoryIDs))

	return &Response{
		Reply:            reply,
		ConversationID:   conversationID,
		RelevantMemories: matches,
	}, nil
}

// resolveConversation returns the existing conversation (verifying
// ownership) or lazily creates one titled with the message's first
// characters.
func (b *Brain) resolveConversation(ctx context.Context, userID uuid.UUID, id *uuid.UUID, message string) (uuid.UUID, error) {
	if id != nil {
		if _, err := b.conversations.Get(ctx, userID, *id); err != nil {
			if errors.Is(err, conversation.ErrNotFound) {
				return uuid.Nil, ErrConversationNotFound
			}
			return uuid.Nil, fmt.Errorf("loading conversation: %w", err)
		}
		return *id, nil
	}

	conv, err := b.conversations.Create(ctx, userID, conversation.TitleFromMessage(message))
	if err != nil {
		return uuid.Nil, fmt.Errorf("creating conversation: %w", err)
	}
	return conv.ID, nil
}

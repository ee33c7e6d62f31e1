package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates the conversation does not exist or belongs to
// another user.
var ErrNotFound = errors.New("conversation not found")

const conversationCols = `id, user_id, title, created_at, updated_at`

// Store manages conversation persistence.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a conversation Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Create starts a new conversation for userID.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, title string) (*Conversation, error) {
	rows, err := s.pool.Query(ctx, `INSERT INTO conversations (user_id, title)
		VALUES ($1, $2) RETURNING `+conversationCols, userID, title)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}
	conv, err := pgx.CollectOneRow(rows, scanConversation)
	if err != nil {
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	s.logger.Debug("created conversation", "id", conv.ID)
	return conv, nil
}

// Get retrieves a conversation owned by userID.
func (s *Store) Get(ctx context.Context, userID, id uuid.UUID) (*Conversation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+conversationCols+` FROM conversations
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	conv, err := pgx.CollectOneRow(rows, scanConversation)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting conversation: %w", err)
	}
	return conv, nil
}

// ListByOwner returns userID's conversations, most recently updated first.
func (s *Store) ListByOwner(ctx context.Context, userID uuid.UUID) ([]*Conversation, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+conversationCols+` FROM conversations
		WHERE user_id = $1 ORDER BY updated_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	convs, err := pgx.CollectRows(rows, scanConversation)
	if err != nil {
		return nil, fmt.Errorf("listing conversations: %w", err)
	}
	return convs, nil
}

// CountByOwner returns the number of conversations userID has.
func (s *Store) CountByOwner(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, userID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting conversations: %w", err)
	}
	return count, nil
}

// AddTurn persists one chat turn: the user message followed by the
// assistant message, both tagged with the memories used as context.
// A single multi-row INSERT keeps the user-then-assistant order; the
// conversation's updated_at is bumped alongside.
func (s *Store) AddTurn(ctx context.Context, conversationID uuid.UUID, userContent, assistantContent string, contextMemories []uuid.UUID) error {
	if contextMemories == nil {
		contextMemories = []uuid.UUID{}
	}

	_, err := s.pool.Exec(ctx, `INSERT INTO conversation_messages (conversation_id, role, content, context_memories)
		VALUES ($1, 'user', $2, $4), ($1, 'assistant', $3, $4)`,
		conversationID, userContent, assistantContent, contextMemories)
	if err != nil {
		return fmt.Errorf("adding messages: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `UPDATE conversations SET updated_at = now() WHERE id = $1`,
		conversationID); err != nil {
		return fmt.Errorf("touching conversation: %w", err)
	}

	s.logger.Debug("added turn", "conversation_id", conversationID, "context_memories", len(contextMemories))
	return nil
}

// Messages returns a conversation's messages oldest first, after verifying
// the conversation belongs to userID.
func (s *Store) Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]*Message, error) {
	if _, err := s.Get(ctx, userID, conversationID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `SELECT id, conversation_id, role, content, context_memories, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at, CASE role WHEN 'user' THEN 0 ELSE 1 END`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, scanMessage)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	return msgs, nil
}

func scanConversation(row pgx.CollectableRow) (*Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func scanMessage(row pgx.CollectableRow) (*Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content,
		&m.ContextMemories, &m.CreatedAt); err != nil {
		return nil, err
	}
	if m.ContextMemories == nil {
		m.ContextMemories = []uuid.UUID{}
	}
	return &m, nil
}

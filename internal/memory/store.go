// Package memory manages user memories and their vector embeddings, backed
// by PostgreSQL + pgvector.
package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/engramhq/engram/internal/embed"
)

// ErrNotFound indicates the memory does not exist or belongs to another user.
var ErrNotFound = errors.New("memory not found")

// ErrInvalidInput indicates the caller supplied an unusable memory payload.
var ErrInvalidInput = errors.New("invalid memory input")

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// memoryCols is the standard SELECT column list for scanMemories.
const memoryCols = `id, user_id, category_id, title, content, memory_type,
	metadata, created_at, updated_at`

// Store manages memories and their embeddings.
//
// Writes are intentionally sequential and non-transactional: the memory row
// is committed before its embedding row, so a memory without an embedding is
// a reachable state when the second statement fails. Edits replace the
// embedding wholesale (delete then insert), never update in place.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool     *pgxpool.Pool
	embedder embed.Embedder
	logger   *slog.Logger
}

// NewStore creates a memory Store.
func NewStore(pool *pgxpool.Pool, embedder embed.Embedder, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, embedder: embedder, logger: logger}, nil
}

// CreateInput holds the fields for a new memory.
type CreateInput struct {
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Type       Type           `json:"memory_type"`
	CategoryID *uuid.UUID     `json:"category_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// validate checks the input the way the save path always has: blank title or
// content is a client error, unknown types fall back to note.
func (in *CreateInput) validate() error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if strings.TrimSpace(in.Content) == "" {
		return fmt.Errorf("%w: content is required", ErrInvalidInput)
	}
	if in.Type == "" {
		in.Type = TypeNote
	}
	if !in.Type.Valid() {
		return fmt.Errorf("%w: unknown memory type %q", ErrInvalidInput, in.Type)
	}
	return nil
}

// Create embeds the memory text, inserts the memory row, then inserts its
// single chunk-0 embedding row. The two inserts are separate statements;
// an embedding-side failure leaves the already-committed memory in place.
func (s *Store) Create(ctx context.Context, userID uuid.UUID, in CreateInput) (*Memory, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	vec, err := s.embedText(ctx, EmbeddingInput(in.Title, in.Content))
	if err != nil {
		return nil, err
	}

	metadataJSON, err := marshalMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `INSERT INTO memories (user_id, category_id, title, content, memory_type, metadata)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING `+memoryCols,
		userID, in.CategoryID, in.Title, in.Content, in.Type, metadataJSON)
	if err != nil {
		return nil, fmt.Errorf("inserting memory: %w", err)
	}
	mem, err := pgx.CollectOneRow(rows, scanMemory)
	if err != nil {
		return nil, fmt.Errorf("inserting memory: %w", err)
	}

	if err := s.insertEmbedding(ctx, s.pool, mem.ID, vec); err != nil {
		// The memory row stays: compensation is an open design question and
		// the current behavior is to surface the error as a save failure.
		s.logger.Error("memory saved without embedding", "id", mem.ID, "error", err)
		return nil, err
	}

	s.logger.Debug("created memory", "id", mem.ID, "type", mem.Type)
	return mem, nil
}

// Update re-embeds the new text, updates the memory row, then replaces its
// embeddings: prior rows are deleted before the new chunk-0 row is inserted.
// The memory id never changes across edits.
func (s *Store) Update(ctx context.Context, userID, id uuid.UUID, in CreateInput) (*Memory, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	vec, err := s.embedText(ctx, EmbeddingInput(in.Title, in.Content))
	if err != nil {
		return nil, err
	}

	metadataJSON, err := marshalMetadata(in.Metadata)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `UPDATE memories
		SET category_id = $1, title = $2, content = $3, memory_type = $4, metadata = $5, updated_at = now()
		WHERE id = $6 AND user_id = $7
		RETURNING `+memoryCols,
		in.CategoryID, in.Title, in.Content, in.Type, metadataJSON, id, userID)
	if err != nil {
		return nil, fmt.Errorf("updating memory: %w", err)
	}
	mem, err := pgx.CollectOneRow(rows, scanMemory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("updating memory: %w", err)
	}

	if _, err := s.pool.Exec(ctx, `DELETE FROM memory_embeddings WHERE memory_id = $1`, id); err != nil {
		return nil, fmt.Errorf("deleting stale embeddings: %w", err)
	}
	if err := s.insertEmbedding(ctx, s.pool, id, vec); err != nil {
		return nil, err
	}

	s.logger.Debug("updated memory", "id", id)
	return mem, nil
}

// Delete removes a memory owned by userID. Embedding rows go away via the
// schema's ON DELETE CASCADE.
func (s *Store) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM memories WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("deleting memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted memory", "id", id)
	return nil
}

// Get retrieves a single memory owned by userID.
func (s *Store) Get(ctx context.Context, userID, id uuid.UUID) (*Memory, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+memoryCols+` FROM memories
		WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("getting memory: %w", err)
	}
	mem, err := pgx.CollectOneRow(rows, scanMemory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting memory: %w", err)
	}
	return mem, nil
}

// ListByOwner returns all memories of userID, newest first.
func (s *Store) ListByOwner(ctx context.Context, userID uuid.UUID) ([]*Memory, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+memoryCols+` FROM memories
		WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	memories, err := pgx.CollectRows(rows, scanMemory)
	if err != nil {
		return nil, fmt.Errorf("listing memories: %w", err)
	}
	return memories, nil
}

// CountByType returns the number of memories per type for userID.
func (s *Store) CountByType(ctx context.Context, userID uuid.UUID) (map[Type]int, error) {
	rows, err := s.pool.Query(ctx, `SELECT memory_type, COUNT(*) FROM memories
		WHERE user_id = $1 GROUP BY memory_type`, userID)
	if err != nil {
		return nil, fmt.Errorf("counting memories: %w", err)
	}
	defer rows.Close()

	counts := make(map[Type]int)
	for rows.Next() {
		var t Type
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("counting memories: %w", err)
		}
		counts[t] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting memories: %w", err)
	}
	return counts, nil
}

// SearchSimilar finds the memories of userID most similar to the query
// embedding. Only matches above threshold are returned, capped at limit,
// ranked by descending cosine similarity. Tenant isolation is enforced in
// the query itself.
func (s *Store) SearchSimilar(ctx context.Context, userID uuid.UUID, queryVec []float32, threshold float32, limit int) ([]Match, error) {
	if len(queryVec) == 0 {
		return nil, fmt.Errorf("query embedding is empty")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	vec := pgvector.NewVector(queryVec)
	rows, err := s.pool.Query(ctx, `SELECT m.id, m.title, m.content,
			1 - (e.embedding <=> $1) AS similarity
		FROM memory_embeddings e
		JOIN memories m ON m.id = e.memory_id
		WHERE m.user_id = $2 AND 1 - (e.embedding <=> $1) > $3
		ORDER BY similarity DESC
		LIMIT $4`,
		vec, userID, threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var m Match
		if err := rows.Scan(&m.MemoryID, &m.Title, &m.Content, &m.Similarity); err != nil {
			return nil, fmt.Errorf("similarity search: %w", err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("similarity search: %w", err)
	}
	return matches, nil
}

// embedText generates the vector for text via the embedding function.
func (s *Store) embedText(ctx context.Context, text string) (pgvector.Vector, error) {
	raw, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, fmt.Errorf("embedding text: %w", err)
	}
	return pgvector.NewVector(raw), nil
}

// insertEmbedding writes the single chunk-0 embedding row for a memory.
// chunk_index is latent multi-chunk support; the save path always writes
// exactly one chunk.
func (s *Store) insertEmbedding(ctx context.Context, q querier, memoryID uuid.UUID, vec pgvector.Vector) error {
	_, err := q.Exec(ctx, `INSERT INTO memory_embeddings (memory_id, embedding, chunk_index)
		VALUES ($1, $2, 0)`, memoryID, vec)
	if err != nil {
		return fmt.Errorf("inserting embedding: %w", err)
	}
	return nil
}

func marshalMetadata(metadata map[string]any) ([]byte, error) {
	if metadata == nil {
		metadata = map[string]any{}
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("marshaling metadata: %w", err)
	}
	return b, nil
}

// scanMemory maps a row in memoryCols order onto a Memory.
func scanMemory(row pgx.CollectableRow) (*Memory, error) {
	var m Memory
	var metadataJSON []byte
	if err := row.Scan(&m.ID, &m.UserID, &m.CategoryID, &m.Title, &m.Content,
		&m.Type, &metadataJSON, &m.CreatedAt, &m.UpdatedAt); err != nil {
		return nil, err
	}
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &m.Metadata); err != nil {
			return nil, fmt.Errorf("parsing metadata: %w", err)
		}
	}
	if m.Metadata == nil {
		m.Metadata = map[string]any{}
	}
	return &m, nil
}

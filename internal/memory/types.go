package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// VectorDimension is the embedding dimension stored in memory_embeddings.
// Must match the vector(N) column in the schema and the embedding function's
// output.
const VectorDimension = 1536

// Type classifies a memory.
type Type string

// Memory types.
const (
	TypeNote         Type = "note"
	TypeConversation Type = "conversation"
	TypeDocument     Type = "document"
	TypeGoal         Type = "goal"
	TypeReminder     Type = "reminder"
)

// Valid reports whether t is a known memory type.
func (t Type) Valid() bool {
	switch t {
	case TypeNote, TypeConversation, TypeDocument, TypeGoal, TypeReminder:
		return true
	}
	return false
}

// Memory is a user-authored note, document, goal, or reminder stored for
// later semantic retrieval. Owned by exactly one user.
type Memory struct {
	ID         uuid.UUID      `json:"id"`
	UserID     uuid.UUID      `json:"user_id"`
	CategoryID *uuid.UUID     `json:"category_id,omitempty"`
	Title      string         `json:"title"`
	Content    string         `json:"content"`
	Type       Type           `json:"memory_type"`
	Metadata   map[string]any `json:"metadata"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Match is a similarity-search hit: a memory plus its cosine similarity to
// the query embedding.
type Match struct {
	MemoryID   uuid.UUID `json:"memory_id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	Similarity float32   `json:"similarity"`
}

// EmbeddingInput is the text that gets embedded for a memory: the title and
// content joined by a single space.
func EmbeddingInput(title, content string) string {
	return title + " " + content
}

// Filter returns the memories whose title or content contains the query,
// case-insensitively. An empty query returns the input unchanged. This is a
// plain substring match over the loaded list, not a semantic search.
func Filter(memories []*Memory, query string) []*Memory {
	if strings.TrimSpace(query) == "" {
		return memories
	}
	q := strings.ToLower(query)

	filtered := make([]*Memory, 0, len(memories))
	for _, m := range memories {
		if strings.Contains(strings.ToLower(m.Title), q) ||
			strings.Contains(strings.ToLower(m.Content), q) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

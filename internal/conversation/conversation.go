// Package conversation persists chat conversations and their messages.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// TitleLength is how many characters of the first message become the title
// of a lazily created conversation.
const TitleLength = 50

// Role identifies the author of a message.
type Role string

// Message roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Conversation groups an ordered exchange of messages for one user.
// Created lazily on the first chat turn when the client supplies no id.
type Conversation struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a conversation. Immutable once written, ordered by
// creation time. ContextMemories records which memories grounded the turn.
type Message struct {
	ID              uuid.UUID   `json:"id"`
	ConversationID  uuid.UUID   `json:"conversation_id"`
	Role            Role        `json:"role"`
	Content         string      `json:"content"`
	ContextMemories []uuid.UUID `json:"context_memories"`
	CreatedAt       time.Time   `json:"created_at"`
}

// TitleFromMessage derives a conversation title from the first message:
// its first TitleLength characters.
func TitleFromMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= TitleLength {
		return message
	}
	return string(runes[:TitleLength])
}

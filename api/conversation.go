package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/conversation"
	"github.com/engramhq/engram/internal/log"
)

// ConversationStore is the subset of the conversation store the API uses.
type ConversationStore interface {
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]*conversation.Conversation, error)
	Messages(ctx context.Context, userID, conversationID uuid.UUID) ([]*conversation.Message, error)
	CountByOwner(ctx context.Context, userID uuid.UUID) (int, error)
}

// ConversationHandler handles conversation history requests.
type ConversationHandler struct {
	conversations ConversationStore
	logger        log.Logger
}

// NewConversationHandler creates a conversation handler.
func NewConversationHandler(conversations ConversationStore, logger log.Logger) *ConversationHandler {
	return &ConversationHandler{conversations: conversations, logger: logger}
}

// RegisterRoutes registers conversation routes on the mux.
func (h *ConversationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/conversations", h.handleList)
	mux.HandleFunc("GET /api/conversations/{id}/messages", h.handleMessages)
}

func (h *ConversationHandler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	conversations, err := h.conversations.ListByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list conversations")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, conversations)
}

func (h *ConversationHandler) handleMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	conversationID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid conversation id")
		return
	}

	messages, err := h.conversations.Messages(r.Context(), userID, conversationID)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to load messages", "error", err, "conversation_id", conversationID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load messages")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, messages)
}

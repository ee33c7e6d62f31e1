package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/brain"
	"github.com/engramhq/engram/internal/log"
	"github.com/engramhq/engram/internal/memory"
)

// ChatService generates a retrieval-grounded reply and persists the turn.
type ChatService interface {
	Respond(ctx context.Context, userID uuid.UUID, req brain.Request) (*brain.Response, error)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Message        string     `json:"message"`
	ConversationID *uuid.UUID `json:"conversationId,omitempty"`
}

// ChatResponse is the response body for POST /api/chat.
type ChatResponse struct {
	Response         string         `json:"response"`
	ConversationID   uuid.UUID      `json:"conversationId"`
	RelevantMemories []memory.Match `json:"relevantMemories"`
}

// ChatHandler handles chat requests.
type ChatHandler struct {
	chat   ChatService
	logger log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(chat ChatService, logger log.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// RegisterRoutes registers chat routes on the mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
}

func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.chat.Respond(r.Context(), userID, brain.Request{
		Message:        req.Message,
		ConversationID: req.ConversationID,
	})
	if err != nil {
		switch {
		case errors.Is(err, brain.ErrEmptyMessage):
			writeError(w, h.logger, http.StatusBadRequest, "message is required")
		case errors.Is(err, brain.ErrConversationNotFound):
			writeError(w, h.logger, http.StatusNotFound, "conversation not found")
		default:
			h.logger.Error("chat turn failed", "error", err, "user_id", userID)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to generate response")
		}
		return
	}

	writeJSON(w, h.logger, http.StatusOK, ChatResponse{
		Response:         resp.Reply,
		ConversationID:   resp.ConversationID,
		RelevantMemories: resp.RelevantMemories,
	})
}

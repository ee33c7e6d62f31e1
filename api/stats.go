package api

import (
	"net/http"

	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/log"
	"github.com/engramhq/engram/internal/memory"
)

// StatsResponse summarizes a user's stored data.
type StatsResponse struct {
	MemoryCounts  map[memory.Type]int `json:"memory_counts"`
	TotalMemories int                 `json:"total_memories"`
	Conversations int                 `json:"conversations"`
}

// StatsHandler serves aggregate counts for the dashboard.
type StatsHandler struct {
	memories      MemoryStore
	conversations ConversationStore
	logger        log.Logger
}

// NewStatsHandler creates a stats handler.
func NewStatsHandler(memories MemoryStore, conversations ConversationStore, logger log.Logger) *StatsHandler {
	return &StatsHandler{memories: memories, conversations: conversations, logger: logger}
}

// RegisterRoutes registers stats routes on the mux.
func (h *StatsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/stats", h.handleStats)
}

func (h *StatsHandler) handleStats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	counts, err := h.memories.CountByType(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to count memories", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load stats")
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}

	convCount, err := h.conversations.CountByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to count conversations", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load stats")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, StatsResponse{
		MemoryCounts:  counts,
		TotalMemories: total,
		Conversations: convCount,
	})
}

package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/log"
	"github.com/engramhq/engram/internal/memory"
)

// MemoryStore is the subset of the memory store the API uses.
type MemoryStore interface {
	Create(ctx context.Context, userID uuid.UUID, input memory.CreateInput) (*memory.Memory, error)
	Update(ctx context.Context, userID, memoryID uuid.UUID, input memory.CreateInput) (*memory.Memory, error)
	Delete(ctx context.Context, userID, memoryID uuid.UUID) error
	ListByOwner(ctx context.Context, userID uuid.UUID) ([]*memory.Memory, error)
	CountByType(ctx context.Context, userID uuid.UUID) (map[memory.Type]int, error)
	CreateCategory(ctx context.Context, userID uuid.UUID, input memory.CategoryInput) (*memory.Category, error)
	ListCategories(ctx context.Context, userID uuid.UUID) ([]*memory.Category, error)
}

// MemoryHandler handles memory CRUD requests.
type MemoryHandler struct {
	memories MemoryStore
	logger   log.Logger
}

// NewMemoryHandler creates a memory handler.
func NewMemoryHandler(memories MemoryStore, logger log.Logger) *MemoryHandler {
	return &MemoryHandler{memories: memories, logger: logger}
}

// RegisterRoutes registers memory routes on the mux.
func (h *MemoryHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/memories", h.handleList)
	mux.HandleFunc("POST /api/memories", h.handleCreate)
	mux.HandleFunc("PUT /api/memories/{id}", h.handleUpdate)
	mux.HandleFunc("DELETE /api/memories/{id}", h.handleDelete)
	mux.HandleFunc("GET /api/categories", h.handleListCategories)
	mux.HandleFunc("POST /api/categories", h.handleCreateCategory)
}

func (h *MemoryHandler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	memories, err := h.memories.ListByOwner(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list memories", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list memories")
		return
	}

	if q := r.URL.Query().Get("q"); q != "" {
		memories = memory.Filter(memories, q)
	}
	writeJSON(w, h.logger, http.StatusOK, memories)
}

func (h *MemoryHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	var input memory.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	created, err := h.memories.Create(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, memory.ErrInvalidInput) {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to create memory", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create memory")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

func (h *MemoryHandler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	memoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid memory id")
		return
	}

	var input memory.CreateInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.memories.Update(r.Context(), userID, memoryID, input)
	if err != nil {
		switch {
		case errors.Is(err, memory.ErrInvalidInput):
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
		case errors.Is(err, memory.ErrNotFound):
			writeError(w, h.logger, http.StatusNotFound, "memory not found")
		default:
			h.logger.Error("failed to update memory", "error", err, "memory_id", memoryID)
			writeError(w, h.logger, http.StatusInternalServerError, "failed to update memory")
		}
		return
	}
	writeJSON(w, h.logger, http.StatusOK, updated)
}

func (h *MemoryHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	memoryID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid memory id")
		return
	}

	if err := h.memories.Delete(r.Context(), userID, memoryID); err != nil {
		if errors.Is(err, memory.ErrNotFound) {
			writeError(w, h.logger, http.StatusNotFound, "memory not found")
			return
		}
		h.logger.Error("failed to delete memory", "error", err, "memory_id", memoryID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to delete memory")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *MemoryHandler) handleListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	categories, err := h.memories.ListCategories(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list categories", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to list categories")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, categories)
}

func (h *MemoryHandler) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	var input memory.CategoryInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}
	if input.Name == "" {
		writeError(w, h.logger, http.StatusBadRequest, "name is required")
		return
	}

	created, err := h.memories.CreateCategory(r.Context(), userID, input)
	if err != nil {
		h.logger.Error("failed to create category", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to create category")
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, created)
}

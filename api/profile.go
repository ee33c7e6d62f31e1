package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/engramhq/engram/internal/auth"
	"github.com/engramhq/engram/internal/log"
	"github.com/engramhq/engram/internal/profile"
)

// ProfileStore is the subset of the profile store the API uses.
type ProfileStore interface {
	Get(ctx context.Context, userID uuid.UUID) (*profile.Profile, error)
	Upsert(ctx context.Context, userID uuid.UUID, input profile.UpdateInput) (*profile.Profile, error)
}

// ProfileHandler handles profile requests.
type ProfileHandler struct {
	profiles ProfileStore
	logger   log.Logger
}

// NewProfileHandler creates a profile handler.
func NewProfileHandler(profiles ProfileStore, logger log.Logger) *ProfileHandler {
	return &ProfileHandler{profiles: profiles, logger: logger}
}

// RegisterRoutes registers profile routes on the mux.
func (h *ProfileHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/profile", h.handleGet)
	mux.HandleFunc("PUT /api/profile", h.handleUpsert)
}

func (h *ProfileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load profile", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to load profile")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, p)
}

func (h *ProfileHandler) handleUpsert(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		writeError(w, h.logger, http.StatusUnauthorized, "missing identity")
		return
	}

	var input profile.UpdateInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid request body")
		return
	}

	p, err := h.profiles.Upsert(r.Context(), userID, input)
	if err != nil {
		if errors.Is(err, profile.ErrInvalidInput) {
			writeError(w, h.logger, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("failed to save profile", "error", err, "user_id", userID)
		writeError(w, h.logger, http.StatusInternalServerError, "failed to save profile")
		return
	}
	writeJSON(w, h.logger, http.StatusOK, p)
}

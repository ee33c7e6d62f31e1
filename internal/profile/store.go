package profile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrInvalidInput indicates an unusable profile payload.
var ErrInvalidInput = errors.New("invalid profile input")

const profileCols = `id, display_name, communication_tone, learning_pace,
	user_type, preferences, created_at, updated_at`

// Store manages profile persistence.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a profile Store.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Get retrieves the profile for userID. A missing profile is not an error:
// the defaults are returned instead.
func (s *Store) Get(ctx context.Context, userID uuid.UUID) (*Profile, error) {
	rows, err := s.pool.Query(ctx, `SELECT `+profileCols+` FROM user_profiles WHERE id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	p, err := pgx.CollectOneRow(rows, scanProfile)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Default(userID), nil
		}
		return nil, fmt.Errorf("getting profile: %w", err)
	}
	return p, nil
}

// UpdateInput holds the mutable profile fields.
type UpdateInput struct {
	DisplayName string         `json:"display_name"`
	Tone        Tone           `json:"communication_tone"`
	Pace        Pace           `json:"learning_pace"`
	UserType    UserType       `json:"user_type"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// validate checks the closed enums. Tone in particular is interpolated into
// the chat system prompt, so unknown values are rejected here rather than
// passed through.
func (in *UpdateInput) validate() error {
	if strings.TrimSpace(in.DisplayName) == "" {
		return fmt.Errorf("%w: display name is required", ErrInvalidInput)
	}
	if !in.Tone.Valid() {
		return fmt.Errorf("%w: unknown communication tone %q", ErrInvalidInput, in.Tone)
	}
	if !in.Pace.Valid() {
		return fmt.Errorf("%w: unknown learning pace %q", ErrInvalidInput, in.Pace)
	}
	if !in.UserType.Valid() {
		return fmt.Errorf("%w: unknown user type %q", ErrInvalidInput, in.UserType)
	}
	return nil
}

// Upsert creates or updates the profile for userID.
func (s *Store) Upsert(ctx context.Context, userID uuid.UUID, in UpdateInput) (*Profile, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	if in.Preferences == nil {
		in.Preferences = map[string]any{}
	}
	prefsJSON, err := json.Marshal(in.Preferences)
	if err != nil {
		return nil, fmt.Errorf("marshaling preferences: %w", err)
	}

	rows, err := s.pool.Query(ctx, `INSERT INTO user_profiles (id, display_name, communication_tone, learning_pace, user_type, preferences)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			communication_tone = EXCLUDED.communication_tone,
			learning_pace = EXCLUDED.learning_pace,
			user_type = EXCLUDED.user_type,
			preferences = EXCLUDED.preferences,
			updated_at = now()
		RETURNING `+profileCols,
		userID, in.DisplayName, in.Tone, in.Pace, in.UserType, prefsJSON)
	if err != nil {
		return nil, fmt.Errorf("upserting profile: %w", err)
	}
	p, err := pgx.CollectOneRow(rows, scanProfile)
	if err != nil {
		return nil, fmt.Errorf("upserting profile: %w", err)
	}

	s.logger.Debug("upserted profile", "id", userID)
	return p, nil
}

func scanProfile(row pgx.CollectableRow) (*Profile, error) {
	var p Profile
	var prefsJSON []byte
	if err := row.Scan(&p.ID, &p.DisplayName, &p.Tone, &p.Pace, &p.UserType,
		&prefsJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if len(prefsJSON) > 0 {
		if err := json.Unmarshal(prefsJSON, &p.Preferences); err != nil {
			return nil, fmt.Errorf("parsing preferences: %w", err)
		}
	}
	if p.Preferences == nil {
		p.Preferences = map[string]any{}
	}
	return &p, nil
}

package memory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Category is a user-defined grouping for memories.
type Category struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryInput holds the fields for a new category.
type CategoryInput struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Icon  string `json:"icon,omitempty"`
}

// CreateCategory adds a category for userID. Color and icon fall back to
// the schema defaults when blank.
func (s *Store) CreateCategory(ctx context.Context, userID uuid.UUID, in CategoryInput) (*Category, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("name is required")
	}
	if in.Color == "" {
		in.Color = "#6366f1"
	}
	if in.Icon == "" {
		in.Icon = "folder"
	}

	rows, err := s.pool.Query(ctx, `INSERT INTO memory_categories (user_id, name, color, icon)
		VALUES ($1, $2, $3, $4)
		RETURNING id, user_id, name, color, icon, created_at`,
		userID, in.Name, in.Color, in.Icon)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}
	cat, err := pgx.CollectOneRow(rows, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	s.logger.Debug("created category", "id", cat.ID, "name", cat.Name)
	return cat, nil
}

// ListCategories returns userID's categories, alphabetically.
func (s *Store) ListCategories(ctx context.Context, userID uuid.UUID) ([]*Category, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, user_id, name, color, icon, created_at
		FROM memory_categories WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	cats, err := pgx.CollectRows(rows, scanCategory)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	return cats, nil
}

func scanCategory(row pgx.CollectableRow) (*Category, error) {
	var c Category
	if err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Color, &c.Icon, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

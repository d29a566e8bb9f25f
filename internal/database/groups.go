package database

import (
	"context"
	"fmt"

	"github.com/ajuia-m/hw05-final/internal/models"
)

// CreateGroup используется административной командой `yatube group create`.
func (s *Store) CreateGroup(ctx context.Context, g *models.Group) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO post_groups (title, slug, description) VALUES (?, ?, ?)",
		g.Title, g.Slug, g.Description)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("database: insert group: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("database: group id: %w", err)
	}
	g.ID = id
	return nil
}

func (s *Store) Groups(ctx context.Context) ([]models.Group, error) {
	var groups []models.Group
	if err := s.db.SelectContext(ctx, &groups, "SELECT id, title, slug, description FROM post_groups ORDER BY title"); err != nil {
		return nil, fmt.Errorf("database: list groups: %w", err)
	}
	return groups, nil
}

func (s *Store) GroupBySlug(ctx context.Context, slug string) (models.Group, error) {
	var g models.Group
	err := s.db.GetContext(ctx, &g, "SELECT id, title, slug, description FROM post_groups WHERE slug = ?", slug)
	return g, notFound(err)
}

func (s *Store) GroupExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM post_groups WHERE id = ?)", id); err != nil {
		return false, fmt.Errorf("database: check group: %w", err)
	}
	return exists, nil
}

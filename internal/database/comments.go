package database

import (
	"context"
	"fmt"

	"github.com/ajuia-m/hw05-final/internal/models"
)

func (s *Store) CommentsForPost(ctx context.Context, postID int64) ([]models.Comment, error) {
	var comments []models.Comment
	err := s.db.SelectContext(ctx, &comments, `
		SELECT c.id, c.post_id, c.author_id, c.text, c.created, u.username AS author_username
		FROM comments c JOIN users u ON u.id = c.author_id
		WHERE c.post_id = ? ORDER BY c.created ASC, c.id ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("database: list comments: %w", err)
	}
	return comments, nil
}

func (s *Store) CreateComment(ctx context.Context, c *models.Comment) error {
	c.Created = s.now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO comments (post_id, author_id, text, created) VALUES (?, ?, ?, ?)",
		c.PostID, c.AuthorID, c.Text, c.Created)
	if err != nil {
		return fmt.Errorf("database: insert comment: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("database: comment id: %w", err)
	}
	c.ID = id
	return nil
}

func (s *Store) CountComments(ctx context.Context, postID int64) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM comments WHERE post_id = ?", postID); err != nil {
		return 0, fmt.Errorf("database: count comments: %w", err)
	}
	return n, nil
}

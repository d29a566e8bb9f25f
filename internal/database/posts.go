package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/ajuia-m/hw05-final/internal/models"
)

// PostFilter выбирает подмножество постов. Нулевые поля не участвуют в отборе.
type PostFilter struct {
	GroupID    int64
	AuthorID   int64
	FollowerID int64 // посты авторов, на которых подписан этот пользователь
}

const postSelect = `
	SELECT p.id, p.text, p.pub_date, p.author_id, p.group_id, p.image,
	       u.username AS author_username,
	       g.slug AS group_slug, g.title AS group_title
	FROM posts p
	JOIN users u ON u.id = p.author_id
	LEFT JOIN post_groups g ON g.id = p.group_id`

func (f PostFilter) where() (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.GroupID > 0 {
		clauses = append(clauses, "p.group_id = ?")
		args = append(args, f.GroupID)
	}
	if f.AuthorID > 0 {
		clauses = append(clauses, "p.author_id = ?")
		args = append(args, f.AuthorID)
	}
	if f.FollowerID > 0 {
		clauses = append(clauses, "p.author_id IN (SELECT author_id FROM follows WHERE user_id = ?)")
		args = append(args, f.FollowerID)
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func (s *Store) CountPosts(ctx context.Context, f PostFilter) (int, error) {
	where, args := f.where()
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM posts p"+where, args...); err != nil {
		return 0, fmt.Errorf("database: count posts: %w", err)
	}
	return n, nil
}

// ListPosts возвращает окно постов, новые первыми.
func (s *Store) ListPosts(ctx context.Context, f PostFilter, limit, offset int) ([]models.Post, error) {
	where, args := f.where()
	query := postSelect + where + " ORDER BY p.pub_date DESC, p.id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var posts []models.Post
	if err := s.db.SelectContext(ctx, &posts, query, args...); err != nil {
		return nil, fmt.Errorf("database: list posts: %w", err)
	}
	return posts, nil
}

func (s *Store) PostByID(ctx context.Context, id int64) (models.Post, error) {
	var p models.Post
	err := s.db.GetContext(ctx, &p, postSelect+" WHERE p.id = ?", id)
	return p, notFound(err)
}

// CreatePost сохраняет пост и проставляет ID и PubDate.
func (s *Store) CreatePost(ctx context.Context, p *models.Post) error {
	p.PubDate = s.now()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO posts (text, pub_date, author_id, group_id, image) VALUES (?, ?, ?, ?, ?)",
		p.Text, p.PubDate, p.AuthorID, p.GroupID, p.Image)
	if err != nil {
		return fmt.Errorf("database: insert post: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("database: post id: %w", err)
	}
	p.ID = id
	return nil
}

// UpdatePost меняет редактируемые поля; автор и дата публикации не меняются.
func (s *Store) UpdatePost(ctx context.Context, p *models.Post) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE posts SET text = ?, group_id = ?, image = ? WHERE id = ?",
		p.Text, p.GroupID, p.Image, p.ID)
	if err != nil {
		return fmt.Errorf("database: update post: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("database: update post: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

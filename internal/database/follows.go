package database

import (
	"context"
	"errors"
	"fmt"
)

var ErrSelfFollow = errors.New("user cannot follow themself")

// Follow создаёт подписку userID → authorID. Повторная подписка ничего не меняет;
// created сообщает, была ли добавлена новая запись.
func (s *Store) Follow(ctx context.Context, userID, authorID int64) (created bool, err error) {
	if userID == authorID {
		return false, ErrSelfFollow
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO follows (user_id, author_id) VALUES (?, ?)", userID, authorID)
	if err != nil {
		return false, fmt.Errorf("database: insert follow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("database: insert follow: %w", err)
	}
	return n > 0, nil
}

// Unfollow удаляет подписку, если она есть.
func (s *Store) Unfollow(ctx context.Context, userID, authorID int64) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM follows WHERE user_id = ? AND author_id = ?", userID, authorID); err != nil {
		return fmt.Errorf("database: delete follow: %w", err)
	}
	return nil
}

func (s *Store) IsFollowing(ctx context.Context, userID, authorID int64) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM follows WHERE user_id = ? AND author_id = ?)", userID, authorID)
	if err != nil {
		return false, fmt.Errorf("database: check follow: %w", err)
	}
	return exists, nil
}

func (s *Store) CountFollows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM follows"); err != nil {
		return 0, fmt.Errorf("database: count follows: %w", err)
	}
	return n, nil
}

package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/ajuia-m/hw05-final/internal/models"
)

// CreateSession заменяет все прежние сессии пользователя новой.
func (s *Store) CreateSession(ctx context.Context, sess *models.Session) error {
	if err := s.DeleteUserSessions(ctx, sess.UserID); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, uuid, expires) VALUES (?, ?, ?)",
		sess.UserID, sess.UUID, sess.Expires.UTC())
	if err != nil {
		return fmt.Errorf("database: insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("database: session id: %w", err)
	}
	sess.ID = id
	return nil
}

func (s *Store) SessionByUUID(ctx context.Context, uuid string) (models.Session, error) {
	var sess models.Session
	err := s.db.GetContext(ctx, &sess, "SELECT id, user_id, uuid, expires FROM sessions WHERE uuid = ?", uuid)
	return sess, notFound(err)
}

// SessionUser возвращает владельца действующей сессии. Просроченная сессия
// удаляется, и результат тот же, что для отсутствующей: ErrNotFound.
func (s *Store) SessionUser(ctx context.Context, uuid string) (models.User, error) {
	sess, err := s.SessionByUUID(ctx, uuid)
	if err != nil {
		return models.User{}, err
	}
	if s.now().After(sess.Expires) {
		if err := s.DeleteSession(ctx, uuid); err != nil && !errors.Is(err, ErrNotFound) {
			return models.User{}, err
		}
		return models.User{}, ErrNotFound
	}
	return s.UserByID(ctx, sess.UserID)
}

// DeleteSession возвращает ErrNotFound, если сессии не было.
func (s *Store) DeleteSession(ctx context.Context, uuid string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE uuid = ?", uuid)
	if err != nil {
		return fmt.Errorf("database: delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("database: delete session: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) DeleteUserSessions(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("database: delete old sessions: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpiredSessions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires < ?", s.now())
	if err != nil {
		return 0, fmt.Errorf("database: delete expired sessions: %w", err)
	}
	return res.RowsAffected()
}

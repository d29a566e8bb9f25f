package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/ajuia-m/hw05-final/internal/models"
)

const userColumns = `id, email, username, password`

// CreateUser сохраняет пользователя; password должен быть уже захеширован.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, username, password) VALUES (?, ?, ?)",
		u.Email, u.Username, u.Password)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("database: insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("database: user id: %w", err)
	}
	u.ID = id
	return nil
}

func (s *Store) UserByID(ctx context.Context, id int64) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return u, notFound(err)
}

// UserByUsername ищет пользователя без учёта регистра.
func (s *Store) UserByUsername(ctx context.Context, username string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u, "SELECT "+userColumns+" FROM users WHERE username = ? COLLATE NOCASE", username)
	return u, notFound(err)
}

// UserByLogin accepts either an email or a username.
func (s *Store) UserByLogin(ctx context.Context, login string) (models.User, error) {
	var u models.User
	err := s.db.GetContext(ctx, &u,
		"SELECT "+userColumns+" FROM users WHERE email = ? OR username = ? COLLATE NOCASE LIMIT 1", login, login)
	return u, notFound(err)
}

// EmailTaken сообщает, занят ли email.
func (s *Store) EmailTaken(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := s.db.GetContext(ctx, &exists, "SELECT EXISTS(SELECT 1 FROM users WHERE email = ?)", email)
	if err != nil {
		return false, fmt.Errorf("database: check email: %w", err)
	}
	return exists, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

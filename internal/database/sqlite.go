package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // SQLite driver
	log "github.com/sirupsen/logrus"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

// Store — хранилище сущностей приложения поверх SQLite.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

// Open открывает базу по DSN и проверяет соединение. Схему создаёт Migrate.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("database: error opening database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database: error connecting to database: %w", err)
	}
	// SQLite допускает одного писателя; пул из одного соединения избавляет от SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	log.Infof("Successfully connected to SQLite database using DSN: %s", dsn)
	return NewStore(db), nil
}

// NewStore оборачивает уже открытое соединение.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Migrate применяет все миграции из migrations/.
func (s *Store) Migrate() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("database: migrations source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.db.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("database: migrations driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite3", driver)
	if err != nil {
		return fmt.Errorf("database: migrate: %w", err)
	}

	if version, dirty, err := m.Version(); err == nil && dirty {
		log.Warnf("Database is dirty at version %d, forcing", version)
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("database: force version %d: %w", version, err)
		}
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("database: migrate up: %w", err)
	}
	// m.Close() закрыл бы и s.db, поэтому закрываем только источник.
	if err := src.Close(); err != nil {
		log.Warnf("database: closing migrations source: %v", err)
	}

	log.Info("Database migrations applied.")
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// CleanupExpiredSessions удаляет просроченные сессии, пока ctx не отменён.
func (s *Store) CleanupExpiredSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.DeleteExpiredSessions(ctx)
			if err != nil {
				log.Errorf("Error cleaning up expired sessions: %v", err)
				continue
			}
			if n > 0 {
				log.Infof("Cleaned up %d expired sessions.", n)
			}
		}
	}
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

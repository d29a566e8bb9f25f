// Package cache хранит отрендеренные страницы с ограниченным временем жизни.
package cache

import (
	"context"
	"time"
)

// Entry — сохранённый ответ.
type Entry struct {
	ContentType string
	Body        []byte
}

// Cache — хранилище страниц в одном пространстве имён.
// Clear удаляет все записи этого пространства сразу.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, bool, error)
	Set(ctx context.Context, key string, e Entry, ttl time.Duration) error
	Clear(ctx context.Context) error
}

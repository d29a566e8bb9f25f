// Package events публикует доменные события блога во внешнюю шину.
package events

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ajuia-m/hw05-final/internal/metrics"
)

const (
	PostCreated    = "post.created"
	CommentAdded   = "comment.added"
	AuthorFollowed = "author.followed"
)

type Event struct {
	Type     string    `json:"type"`
	UserID   int64     `json:"user_id"`
	PostID   int64     `json:"post_id,omitempty"`
	AuthorID int64     `json:"author_id,omitempty"`
	At       time.Time `json:"at"`
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Noop используется, когда брокеры не настроены.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// Emit публикует событие и только логирует сбой: запрос пользователя от шины не зависит.
func Emit(ctx context.Context, p Publisher, e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	err := p.Publish(ctx, e)
	metrics.EventPublished(e.Type, err == nil)
	if err != nil {
		log.WithFields(log.Fields{"event": e.Type, "user_id": e.UserID}).Warnf("Failed to publish event: %v", err)
	}
}

package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	kgo "github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kgo.Message) error
	Close() error
}

// Kafka пишет события в один топик в формате JSON.
type Kafka struct {
	w messageWriter
}

// NewKafka принимает список брокеров через запятую.
func NewKafka(brokers, topic string) *Kafka {
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	w := &kgo.Writer{
		Addr:         kgo.TCP(addrs...),
		Topic:        topic,
		Balancer:     &kgo.Hash{},
		RequiredAcks: kgo.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}
	return &Kafka{w: w}
}

func (k *Kafka) Publish(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("events: encode %s: %w", e.Type, err)
	}
	// Ключ по пользователю сохраняет порядок его событий в одной партиции.
	msg := kgo.Message{Key: []byte(strconv.FormatInt(e.UserID, 10)), Value: b, Time: e.At}
	if err := k.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("events: write %s: %w", e.Type, err)
	}
	return nil
}

func (k *Kafka) Close() error { return k.w.Close() }

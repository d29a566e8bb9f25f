package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	kgo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kgo.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kgo.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaPublishEncodesEvent(t *testing.T) {
	fw := &fakeWriter{}
	k := &Kafka{w: fw}
	at := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)

	require.NoError(t, k.Publish(context.Background(), Event{Type: PostCreated, UserID: 7, PostID: 42, At: at}))
	require.Len(t, fw.msgs, 1)
	assert.Equal(t, "7", string(fw.msgs[0].Key))

	var got Event
	require.NoError(t, json.Unmarshal(fw.msgs[0].Value, &got))
	assert.Equal(t, PostCreated, got.Type)
	assert.Equal(t, int64(42), got.PostID)
	assert.True(t, got.At.Equal(at))
}

func TestEmitSwallowsErrors(t *testing.T) {
	fw := &fakeWriter{err: errors.New("broker down")}
	Emit(context.Background(), &Kafka{w: fw}, Event{Type: CommentAdded, UserID: 1, PostID: 2})
	assert.Empty(t, fw.msgs)
}

func TestEmitFillsTimestamp(t *testing.T) {
	fw := &fakeWriter{}
	Emit(context.Background(), &Kafka{w: fw}, Event{Type: AuthorFollowed, UserID: 1, AuthorID: 2})
	require.Len(t, fw.msgs, 1)
	assert.False(t, fw.msgs[0].Time.IsZero())
}

func TestNewKafkaSplitsBrokers(t *testing.T) {
	k := NewKafka("a:9092, b:9092,", "yatube.events")
	w := k.w.(*kgo.Writer)
	assert.Equal(t, "yatube.events", w.Topic)
	assert.NotNil(t, w.Addr)
}

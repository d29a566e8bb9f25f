package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	fieldContentType = "ct"
	fieldBody        = "body"
)

// Redis хранит записи в хешах с ключами namespace + key.
type Redis struct {
	client    *redis.Client
	namespace string
}

func NewRedis(client *redis.Client, namespace string) *Redis {
	return &Redis{client: client, namespace: namespace}
}

// Dial подключается к Redis и проверяет соединение.
func Dial(ctx context.Context, addr string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("cache: connect to redis %s: %w", addr, err)
	}
	return rdb, nil
}

func (r *Redis) key(k string) string { return r.namespace + k }

func (r *Redis) Get(ctx context.Context, key string) (Entry, bool, error) {
	vals, err := r.client.HGetAll(ctx, r.key(key)).Result()
	if err != nil {
		return Entry{}, false, fmt.Errorf("cache: get %s: %w", key, err)
	}
	body, ok := vals[fieldBody]
	if !ok {
		return Entry{}, false, nil
	}
	return Entry{ContentType: vals[fieldContentType], Body: []byte(body)}, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, e Entry, ttl time.Duration) error {
	k := r.key(key)
	_, err := r.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k, fieldContentType, e.ContentType, fieldBody, e.Body)
		p.Expire(ctx, k, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// Clear удаляет все ключи пространства имён.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.namespace+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("cache: scan: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: clear: %w", err)
	}
	return nil
}

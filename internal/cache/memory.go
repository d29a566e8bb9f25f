package cache

import (
	"context"
	"sync"
	"time"
)

type memoryItem struct {
	entry   Entry
	expires time.Time
}

// Memory — кэш в памяти процесса.
type Memory struct {
	mu    sync.Mutex
	items map[string]memoryItem
	now   func() time.Time
}

func NewMemory() *Memory {
	return &Memory{items: make(map[string]memoryItem), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, ok := m.items[key]
	if !ok {
		return Entry{}, false, nil
	}
	if !m.now().Before(item.expires) {
		delete(m.items, key)
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

func (m *Memory) Set(_ context.Context, key string, e Entry, ttl time.Duration) error {
	body := make([]byte, len(e.Body))
	copy(body, e.Body)

	m.mu.Lock()
	m.items[key] = memoryItem{
		entry:   Entry{ContentType: e.ContentType, Body: body},
		expires: m.now().Add(ttl),
	}
	m.mu.Unlock()
	return nil
}

func (m *Memory) Clear(context.Context) error {
	m.mu.Lock()
	m.items = make(map[string]memoryItem)
	m.mu.Unlock()
	return nil
}

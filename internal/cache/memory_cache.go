package cache

import (
	"context"
	"sync"
	"time"
)

// MemoryCache — in-process реализация BakeCache.
// TTL поддерживается лениво: просроченная запись удаляется при чтении.
type MemoryCache struct {
	mu      sync.RWMutex
	items   map[string]memoryItem
	metrics Metrics
}

type memoryItem struct {
	value   []byte
	expires time.Time // нулевое время — без истечения
}

// NewMemoryCache создаёт пустой in-process кеш
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]memoryItem)}
}

// Get возвращает значение по ключу или ErrCacheMiss
func (mc *MemoryCache) Get(ctx context.Context, key string) ([]byte, error) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	item, ok := mc.items[key]
	if ok && !item.expires.IsZero() && time.Now().After(item.expires) {
		delete(mc.items, key)
		ok = false
	}
	if !ok {
		mc.metrics.Misses++
		return nil, ErrCacheMiss
	}
	mc.metrics.Hits++
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, nil
}

// Set сохраняет значение с указанным TTL
func (mc *MemoryCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	item := memoryItem{value: make([]byte, len(value))}
	copy(item.value, value)
	if ttl > 0 {
		item.expires = time.Now().Add(ttl)
	}

	mc.mu.Lock()
	mc.items[key] = item
	mc.metrics.Sets++
	mc.mu.Unlock()
	return nil
}

// Delete удаляет ключ
func (mc *MemoryCache) Delete(ctx context.Context, key string) error {
	mc.mu.Lock()
	delete(mc.items, key)
	mc.mu.Unlock()
	return nil
}

// Metrics возвращает счётчики попаданий
func (mc *MemoryCache) Metrics() Metrics {
	mc.mu.RLock()
	defer mc.mu.RUnlock()
	return mc.metrics
}

// Close очищает кеш
func (mc *MemoryCache) Close() error {
	mc.mu.Lock()
	mc.items = make(map[string]memoryItem)
	mc.mu.Unlock()
	return nil
}

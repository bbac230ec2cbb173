package cache

import (
	"context"
	"errors"
	"time"
)

// ErrCacheMiss возвращается, когда ключ отсутствует в кеше
var ErrCacheMiss = errors.New("ключ не найден в кеше")

// Metrics — счётчики попаданий кеша
type Metrics struct {
	Hits   uint64
	Misses uint64
	Sets   uint64
}

// BakeCache определяет интерфейс кеша запечённых артефактов: буферов
// треугольников и pick-данных, построенных из мешей. Ключом служит
// отпечаток (mesh key + конфигурация эффектов), поэтому запись никогда
// не устаревает содержательно — только вытесняется.
//
// Реализации: in-process (по умолчанию) и Redis — общий кеш между
// несколькими процессами редактора.
type BakeCache interface {
	// Get возвращает значение по ключу или ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set сохраняет значение с указанным TTL. TTL = 0 — без истечения.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete удаляет ключ.
	Delete(ctx context.Context, key string) error

	// Metrics возвращает счётчики попаданий.
	Metrics() Metrics

	// Close закрывает кеш.
	Close() error
}

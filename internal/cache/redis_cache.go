package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache реализует BakeCache поверх Redis. Используется, когда
// запечённые буферы выгодно разделять между несколькими процессами
// редактора (headless-экспортёр, превью-сервис).
type RedisCache struct {
	client *redis.Client
	prefix string

	mu      sync.Mutex
	metrics Metrics
}

// RedisConfig — настройки подключения к Redis
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// NewRedisCache подключается к Redis и проверяет соединение
func NewRedisCache(cfg RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("не удалось подключиться к Redis %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "voxedit:bake:"
	}
	return &RedisCache{client: client, prefix: prefix}, nil
}

// Get возвращает значение по ключу или ErrCacheMiss
func (rc *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := rc.client.Get(ctx, rc.prefix+key).Bytes()
	if err == redis.Nil {
		rc.count(func(m *Metrics) { m.Misses++ })
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения из Redis: %w", err)
	}
	rc.count(func(m *Metrics) { m.Hits++ })
	return val, nil
}

// Set сохраняет значение с указанным TTL
func (rc *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := rc.client.Set(ctx, rc.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("ошибка записи в Redis: %w", err)
	}
	rc.count(func(m *Metrics) { m.Sets++ })
	return nil
}

// Delete удаляет ключ
func (rc *RedisCache) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, rc.prefix+key).Err(); err != nil {
		return fmt.Errorf("ошибка удаления из Redis: %w", err)
	}
	return nil
}

// Metrics возвращает счётчики попаданий
func (rc *RedisCache) Metrics() Metrics {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.metrics
}

// Close закрывает соединение с Redis
func (rc *RedisCache) Close() error {
	return rc.client.Close()
}

func (rc *RedisCache) count(fn func(*Metrics)) {
	rc.mu.Lock()
	fn(&rc.metrics)
	rc.mu.Unlock()
}

package config

import (
	"io/ioutil"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/annel0/voxedit/internal/cache"
)

// Config корневая структура конфигурации редактора.
// Все секции опциональны; отсутствующие значения заменяются дефолтами.

type Config struct {
	EventBus  EventBusConfig    `yaml:"eventbus"`
	Storage   StorageConfig     `yaml:"storage"`
	Redis     cache.RedisConfig `yaml:"redis"`
	Server    ServerConfig      `yaml:"server"`
	History   HistoryConfig     `yaml:"history"`
	Telemetry TelemetryConfig   `yaml:"telemetry"`
}

type EventBusConfig struct {
	URL       string `yaml:"url"`
	Stream    string `yaml:"stream"`
	Retention int    `yaml:"retention_hours"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type ServerConfig struct {
	RESTPort    int `yaml:"rest_port"`
	MetricsPort int `yaml:"metrics_port"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// GetRESTPort возвращает REST API порт с поддержкой fallback значений
func (s *ServerConfig) GetRESTPort() int {
	return getPortWithEnvFallback(s.RESTPort, "VOXEDIT_REST_PORT", 8080)
}

// GetMetricsPort возвращает Prometheus метрики порт с поддержкой fallback значений
func (s *ServerConfig) GetMetricsPort() int {
	return getPortWithEnvFallback(s.MetricsPort, "VOXEDIT_METRICS_PORT", 2112)
}

// GetPath возвращает каталог хранилища документов с приоритетом config -> env -> default.
func (s *StorageConfig) GetPath() string {
	if s.Path != "" {
		return s.Path
	}
	if env := os.Getenv("VOXEDIT_DATA_DIR"); env != "" {
		return env
	}
	return "data/documents"
}

// GetLimit возвращает глубину истории отмен.
func (h *HistoryConfig) GetLimit() int {
	if h.Limit > 0 {
		return h.Limit
	}
	if env := os.Getenv("VOXEDIT_HISTORY_LIMIT"); env != "" {
		if n, err := strconv.Atoi(env); err == nil && n > 0 {
			return n
		}
	}
	return 256
}

// getPortWithEnvFallback возвращает порт с приоритетом: config -> env -> default
func getPortWithEnvFallback(configPort int, envVar string, defaultPort int) int {
	// Если порт задан в конфиге и больше 0, используем его
	if configPort > 0 {
		return configPort
	}

	// Пробуем прочитать из environment variable
	if envVal := os.Getenv(envVar); envVal != "" {
		if port, err := strconv.Atoi(envVal); err == nil && port > 0 {
			return port
		}
	}

	// Используем дефолтное значение
	return defaultPort
}

// Load читает YAML файл конфигурации.
// Если path == "", пытается прочитать из ENV VOXEDIT_CONFIG или возвращает nil, nil.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("VOXEDIT_CONFIG")
		if path == "" {
			return nil, nil // конфиг не задан — использовать дефолты
		}
	}

	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

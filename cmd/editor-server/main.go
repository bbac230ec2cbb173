package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/voxedit/internal/api"
	"github.com/annel0/voxedit/internal/cache"
	"github.com/annel0/voxedit/internal/config"
	"github.com/annel0/voxedit/internal/editor"
	"github.com/annel0/voxedit/internal/eventbus"
	"github.com/annel0/voxedit/internal/logging"
	"github.com/annel0/voxedit/internal/observability"
	"github.com/annel0/voxedit/internal/render"
	"github.com/annel0/voxedit/internal/storage"
)

func main() {
	cfgPath := flag.String("config", "", "путь к YAML конфигурации")
	flag.Parse()

	// Инициализируем систему логирования
	if err := logging.InitDefaultLogger("editor-server"); err != nil {
		log.Fatalf("❌ Ошибка инициализации логирования: %v", err)
	}
	defer logging.CloseDefaultLogger()

	logging.Info("🧊 Запуск VoxEdit сервера документов...")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logging.Error("❌ Ошибка чтения конфигурации: %v", err)
		log.Fatalf("❌ Ошибка чтения конфигурации: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{} // дефолты
	}

	ctx := context.Background()

	// === Телеметрия ===
	if cfg.Telemetry.Enabled {
		shutdown, err := observability.InitTelemetry(ctx, "voxedit", cfg.Telemetry.Endpoint)
		if err != nil {
			logging.Warn("Телеметрия недоступна: %v", err)
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logging.Warn("Ошибка остановки телеметрии: %v", err)
				}
			}()
		}
	}

	// === Хранилище документов ===
	dataPath := cfg.Storage.GetPath()
	logging.Debug("Открытие хранилища документов в %s...", dataPath)
	store, err := storage.NewDocumentStorage(dataPath)
	if err != nil {
		logging.Error("❌ Ошибка открытия хранилища: %v", err)
		log.Fatalf("❌ Ошибка открытия хранилища: %v", err)
	}
	defer store.Close()

	// === Шина событий ===
	var bus eventbus.EventBus
	if cfg.EventBus.URL != "" {
		retention := time.Duration(cfg.EventBus.Retention) * time.Hour
		if retention <= 0 {
			retention = 24 * time.Hour
		}
		js, err := eventbus.NewJetStreamBus(cfg.EventBus.URL, cfg.EventBus.Stream, retention)
		if err != nil {
			logging.Warn("NATS недоступен (%v), используется in-memory шина", err)
		} else {
			bus = js
			defer js.Close()
		}
	}
	if bus == nil {
		bus = eventbus.NewMemoryBus(1024)
	}

	exporter := eventbus.NewMetricsExporter(bus)
	exporter.Start(15 * time.Second)
	defer exporter.Stop()

	// === Кэш запечённой геометрии ===
	var bake cache.BakeCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			logging.Warn("Redis недоступен (%v), используется in-memory кэш", err)
		} else {
			bake = rc
		}
	}
	if bake == nil {
		bake = cache.NewMemoryCache()
	}
	defer bake.Close()

	// === Менеджер документов и REST API ===
	mgr := editor.NewManager(store, bus, cfg.History.GetLimit())
	defer mgr.Shutdown()

	restPort := fmt.Sprintf(":%d", cfg.Server.GetRESTPort())
	server := api.NewRestServer(api.Config{
		Port:        restPort,
		Manager:     mgr,
		RenderCache: render.NewMeshCache(bake),
	})

	go func() {
		if err := server.Start(); err != nil {
			logging.Error("❌ Ошибка REST сервера: %v", err)
			os.Exit(1)
		}
	}()

	logging.Info("✅ Сервер документов запущен")
	logging.Info("   🌐 REST API: http://localhost%s", restPort)
	logging.Info("   ❤️  Health check: http://localhost%s/health", restPort)
	logging.Info("   📊 Метрики: http://localhost%s/metrics", restPort)

	// Ждем сигнала для завершения
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logging.Info("📡 Получен сигнал %v, завершение работы...", sig)
}

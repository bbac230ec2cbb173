package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/voxedit/internal/eventbus"
)

const timeFormat = "15:04:05.000"

// event-cli подключается к шине событий редактора и печатает события
// документов в реальном времени (аналог tail -f).
func main() {
	var (
		natsURL    = flag.String("nats", "nats://localhost:4222", "адрес NATS сервера")
		stream     = flag.String("stream", "VOXEDIT", "имя JetStream стрима")
		eventTypes = flag.String("types", "", "фильтр типов событий (через запятую)")
		sources    = flag.String("sources", "", "фильтр источников (через запятую)")
		stats      = flag.Bool("stats", false, "печатать метрики шины раз в 5 секунд")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*natsURL, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Не удалось подключиться к NATS: %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	filter := eventbus.Filter{
		Types:   parseStringList(*eventTypes),
		Sources: parseStringList(*sources),
	}

	sub, err := bus.Subscribe(ctx, filter, func(ctx context.Context, ev *eventbus.Envelope) {
		fmt.Printf("%s  %-14s doc=%s key=%016x source=%s\n",
			ev.Timestamp.Local().Format(timeFormat),
			ev.EventType, ev.DocID, ev.Key, ev.Source)
	})
	if err != nil {
		log.Fatalf("❌ Не удалось подписаться: %v", err)
	}
	defer sub.Unsubscribe()

	if *stats {
		go func() {
			ticker := time.NewTicker(5 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					m := bus.Metrics()
					fmt.Printf("-- шина: published=%d consumed=%d dropped=%d\n",
						m.Published, m.Consumed, m.Dropped)
				}
			}
		}()
	}

	fmt.Printf("📡 Слушаем события (%s, стрим %s), Ctrl+C для выхода\n", *natsURL, *stream)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
}

func parseStringList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package editor

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// editorMetrics — метрики редактирования. Регистрируются один раз на
// процесс и разделяются всеми документами.
type editorMetrics struct {
	edits     *prometheus.CounterVec
	commits   prometheus.Counter
	undoRedo  *prometheus.CounterVec
	refused   prometheus.Counter
	mergeDur  prometheus.Histogram
	snapshots prometheus.Gauge
}

var (
	metricsOnce sync.Once
	metrics     *editorMetrics
)

// getMetrics возвращает общий набор метрик, регистрируя его при первом
// обращении.
func getMetrics() *editorMetrics {
	metricsOnce.Do(func() {
		metrics = &editorMetrics{
			edits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "voxedit",
				Name:      "edits_total",
				Help:      "Количество применённых правок по типу операции.",
			}, []string{"op"}),
			commits: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "voxedit",
				Name:      "commits_total",
				Help:      "Количество зафиксированных жестов редактирования.",
			}),
			undoRedo: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "voxedit",
				Name:      "undo_redo_total",
				Help:      "Количество операций undo/redo с результатом.",
			}, []string{"op", "result"}),
			refused: prometheus.NewCounter(prometheus.CounterOpts{
				Namespace: "voxedit",
				Name:      "edits_refused_total",
				Help:      "Правок, отклонённых политикой редактируемости слоя.",
			}),
			mergeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
				Namespace: "voxedit",
				Name:      "merge_duration_seconds",
				Help:      "Длительность операций слияния мешей.",
				Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
			}),
			snapshots: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "voxedit",
				Name:      "history_snapshots",
				Help:      "Текущее количество снапшотов в истории.",
			}),
		}
		prometheus.MustRegister(
			metrics.edits, metrics.commits, metrics.undoRedo,
			metrics.refused, metrics.mergeDur, metrics.snapshots,
		)
	})
	return metrics
}

package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMiddleware регистрирует HTTP-метрики API редактора в Gin.
// Маршрут /metrics добавляется отдельно через RegisterMetricsEndpoint.
// Использование:
//   mw := middleware.NewPrometheusMiddleware("rest_api")
//   r.Use(mw.Handler())
//   mw.RegisterMetricsEndpoint(r)
//
// Метрики (под общим пространством voxedit_<subsystem>):
// * http_request_duration_seconds{method,path,status} — histogram
// * http_requests_inflight — gauge
// * http_request_errors_total{method,path,status} — counter (4xx/5xx)
// * http_response_bytes_total{path} — counter (вес ответов, заметен на /faces)

type PrometheusMiddleware struct {
	reqDuration *prometheus.HistogramVec
	reqInflight prometheus.Gauge
	reqErrors   *prometheus.CounterVec
	respBytes   *prometheus.CounterVec
}

// NewPrometheusMiddleware создаёт middleware и регистрирует метрики в
// дефолтном регистре. subsystem различает поверхности одного процесса.
func NewPrometheusMiddleware(subsystem string) *PrometheusMiddleware {
	// Корзины подобраны под интерактивные правки: батч вокселей и
	// извлечение граней укладываются в десятки миллисекунд, хвост
	// дают процедурные программы и загрузка документов.
	buckets := []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1, 2.5}

	pm := &PrometheusMiddleware{
		reqDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "voxedit",
			Subsystem: subsystem,
			Name:      "http_request_duration_seconds",
			Help:      "Длительность HTTP-запросов редактора.",
			Buckets:   buckets,
		}, []string{"method", "path", "status"}),
		reqInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "voxedit",
			Subsystem: subsystem,
			Name:      "http_requests_inflight",
			Help:      "Текущее количество обрабатываемых HTTP-запросов.",
		}),
		reqErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxedit",
			Subsystem: subsystem,
			Name:      "http_request_errors_total",
			Help:      "Число запросов, завершившихся ошибкой (4xx/5xx).",
		}, []string{"method", "path", "status"}),
		respBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "voxedit",
			Subsystem: subsystem,
			Name:      "http_response_bytes_total",
			Help:      "Суммарный размер тел ответов по маршрутам.",
		}, []string{"path"}),
	}

	prometheus.MustRegister(pm.reqDuration, pm.reqInflight, pm.reqErrors, pm.respBytes)
	return pm
}

// Handler возвращает gin.HandlerFunc для router.Use().
func (pm *PrometheusMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		pm.reqInflight.Inc()
		c.Next()
		pm.reqInflight.Dec()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path // не-матченные маршруты
		}
		status := strconv.Itoa(c.Writer.Status())

		pm.reqDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
		if size := c.Writer.Size(); size > 0 {
			pm.respBytes.WithLabelValues(path).Add(float64(size))
		}
		if c.Writer.Status() >= 400 {
			pm.reqErrors.WithLabelValues(c.Request.Method, path, status).Inc()
		}
	}
}

// RegisterMetricsEndpoint добавляет GET /metrics в указанный router.
func (pm *PrometheusMiddleware) RegisterMetricsEndpoint(r *gin.Engine) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// metrics — Prometheus-метрики сервиса.
// Регистрируются в реестре через RegisterMetrics при старте.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Результаты операций аутентификации.
const (
	ResultSuccess     = "success"
	ResultRejected    = "rejected"
	ResultRateLimited = "rate_limited"
	ResultError       = "error"
)

// AuthEvents считает операции аутентификации по типу и результату.
var AuthEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lostfound_auth_events_total",
		Help: "Total number of authentication operations",
	},
	[]string{"event", "result"},
)

// HTTPRequests считает обработанные HTTP-запросы.
var HTTPRequests = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "lostfound_http_requests_total",
		Help: "Total number of HTTP requests",
	},
	[]string{"method", "route", "status"},
)

// HTTPDuration — длительность обработки HTTP-запросов.
var HTTPDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "lostfound_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// RegisterMetrics регистрирует метрики пакета. Паникует при повторной регистрации.
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthEvents)
	reg.MustRegister(HTTPRequests)
	reg.MustRegister(HTTPDuration)
}

// RecordAuthEvent увеличивает счётчик операции event с результатом result (Result*).
func RecordAuthEvent(event, result string) {
	AuthEvents.WithLabelValues(event, result).Inc()
}

// RecordHTTPRequest учитывает один HTTP-запрос.
func RecordHTTPRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

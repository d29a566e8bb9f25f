// Package metrics содержит коллекторы Prometheus приложения.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application collectors.
	Registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yatube",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yatube",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yatube",
			Subsystem: "page_cache",
			Name:      "lookups_total",
			Help:      "Page cache lookups by result.",
		},
		[]string{"prefix", "result"},
	)

	events = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yatube",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Domain events handed to the publisher.",
		},
		[]string{"type", "success"},
	)
)

func init() {
	Registry.MustRegister(
		httpRequests,
		httpDuration,
		cacheLookups,
		events,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler отдаёт метрики в формате Prometheus.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// ObserveRequest учитывает обработанный запрос. route — шаблон маршрута, а не путь.
func ObserveRequest(method, route string, status int, d time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func CacheHit(prefix string)  { cacheLookups.WithLabelValues(prefix, "hit").Inc() }
func CacheMiss(prefix string) { cacheLookups.WithLabelValues(prefix, "miss").Inc() }

func EventPublished(eventType string, ok bool) {
	events.WithLabelValues(eventType, strconv.FormatBool(ok)).Inc()
}

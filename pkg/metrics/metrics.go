package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Restock outcomes recorded per cart line.
const (
	RestockApplied = "applied"
	RestockSkipped = "skipped"
	RestockFailed  = "failed"
)

// Metrics holds the HTTP and inventory collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	requests     *prometheus.CounterVec
	latency      *prometheus.HistogramVec
	restockItems *prometheus.CounterVec
}

func New(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &Metrics{
		requests: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "Total number of HTTP requests by route and status code",
		}, []string{"method", "route", "status"})),
		latency: register(registerer, prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"})),
		restockItems: register(registerer, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_restock_items_total",
			Help: "Cart lines processed by the restocker by reason and result",
		}, []string{"reason", "result"})),
	}
}

// register returns the already registered collector when c was registered
// before, so New can be called more than once against one registry.
func register[C prometheus.Collector](registerer prometheus.Registerer, c C) C {
	if err := registerer.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic(err)
	}
	return c
}

func (m *Metrics) ObserveRequest(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.latency.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) RestockItem(reason, result string) {
	if m == nil {
		return
	}
	m.restockItems.WithLabelValues(reason, result).Inc()
}

package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "car_rental"

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		},
		[]string{"route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	checkouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkouts_total",
			Help:      "Checkouts by resulting booking status.",
		},
		[]string{"status"},
	)

	reconciliations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Reconciliation polls by gateway and outcome.",
		},
		[]string{"gateway", "outcome"},
	)

	swept = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ttl_swept_total",
			Help:      "Records removed by the TTL sweep.",
		},
		[]string{"kind"},
	)

	pushQueue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "push_queue_events_total",
			Help:      "Push queue events: enqueued, delivered, dropped, failed.",
		},
		[]string{"event"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, httpDuration, checkouts, reconciliations, swept, pushQueue)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func ObserveHTTP(route, code string, seconds float64) {
	httpRequests.WithLabelValues(route, code).Inc()
	httpDuration.WithLabelValues(route).Observe(seconds)
}

func IncCheckout(status string) {
	checkouts.WithLabelValues(status).Inc()
}

func IncReconciliation(gateway, outcome string) {
	reconciliations.WithLabelValues(gateway, outcome).Inc()
}

func AddSwept(kind string, n int64) {
	if n > 0 {
		swept.WithLabelValues(kind).Add(float64(n))
	}
}

func IncPushQueue(event string) {
	pushQueue.WithLabelValues(event).Inc()
}

func AddPushQueue(event string, n int) {
	pushQueue.WithLabelValues(event).Add(float64(n))
}

package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	httpInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "sigme",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigme",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "sigme",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	placements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigme",
			Subsystem: "matrix",
			Name:      "placements_total",
			Help:      "Total number of matrix placements.",
		},
		[]string{"outcome"},
	)

	cyclesCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "sigme",
			Subsystem: "matrix",
			Name:      "cycles_completed_total",
			Help:      "Total number of sealed matrix cycles.",
		},
	)

	settlements = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigme",
			Subsystem: "settlement",
			Name:      "events_total",
			Help:      "Total number of settlement event outcomes.",
		},
		[]string{"outcome"},
	)

	settlementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "sigme",
			Subsystem: "settlement",
			Name:      "event_duration_seconds",
			Help:      "Duration of settling a single event.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
	)

	bonusAmounts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "sigme",
			Subsystem: "bonus",
			Name:      "paid_total",
			Help:      "Monetary total paid per pool.",
		},
		[]string{"pool"},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		placements,
		cyclesCompleted,
		settlements,
		settlementDuration,
		bonusAmounts,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// InstrumentHandler wraps the provided handler with HTTP metrics collection.
func InstrumentHandler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		httpInFlight.Inc()
		defer httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		duration := time.Since(start)
		path := canonicalPath(r.URL.Path)
		method := strings.ToUpper(r.Method)

		httpRequests.WithLabelValues(method, path, strconv.Itoa(rec.status)).Inc()
		httpDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	})
}

// RecordPlacement counts a placement attempt by outcome.
func RecordPlacement(outcome string) {
	placements.WithLabelValues(outcome).Inc()
}

// RecordCycleCompleted counts a sealed cycle.
func RecordCycleCompleted() {
	cyclesCompleted.Inc()
}

// RecordSettlement records a settled or failed event with its duration.
func RecordSettlement(outcome string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Millisecond
	}
	settlements.WithLabelValues(outcome).Inc()
	settlementDuration.Observe(duration.Seconds())
}

// RecordBonus accumulates the monetary total paid out per pool.
func RecordBonus(pool string, amount float64) {
	if amount <= 0 {
		return
	}
	bonusAmounts.WithLabelValues(pool).Add(amount)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

func canonicalPath(raw string) string {
	if raw == "" || raw == "/" {
		return "/"
	}
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) == 0 {
		return "/"
	}
	if parts[0] != "participants" {
		return "/" + parts[0]
	}
	if len(parts) == 1 {
		return "/participants"
	}
	if len(parts) == 2 {
		return "/participants/:id"
	}
	return "/participants/:id/" + parts[2]
}

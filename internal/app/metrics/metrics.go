// Package metrics exposes Prometheus collectors for the HTTP surface and the
// ledger's economic activity.
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
			Namespace: "classbank",
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "classbank",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "path", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "classbank",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		},
		[]string{"method", "path"},
	)

	ledgerOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "classbank",
			Subsystem: "ledger",
			Name:      "operations_total",
			Help:      "Total number of ledger operations by outcome.",
		},
		[]string{"operation", "outcome"},
	)

	tokensCredited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "classbank",
			Subsystem: "ledger",
			Name:      "tokens_credited_total",
			Help:      "Tokens credited to student balances, by bucket.",
		},
		[]string{"bucket"},
	)

	tokensDebited = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "classbank",
			Subsystem: "ledger",
			Name:      "tokens_debited_total",
			Help:      "Tokens debited from student balances, by bucket.",
		},
		[]string{"bucket"},
	)

	missionsCompleted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "classbank",
			Subsystem: "ledger",
			Name:      "missions_completed_total",
			Help:      "Total number of missions completed.",
		},
	)

	pendingRewards = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "classbank",
			Subsystem: "ledger",
			Name:      "pending_rewards",
			Help:      "Claimable rewards currently outstanding.",
		},
	)
)

func init() {
	Registry.MustRegister(
		httpInFlight,
		httpRequests,
		httpDuration,
		ledgerOps,
		tokensCredited,
		tokensDebited,
		missionsCompleted,
		pendingRewards,
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

// RecordLedgerOp counts one ledger operation outcome.
func RecordLedgerOp(operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "rejected"
	}
	ledgerOps.WithLabelValues(operation, outcome).Inc()
}

// RecordCredit counts tokens credited to a bucket.
func RecordCredit(bucket string, amount int) {
	if amount > 0 {
		tokensCredited.WithLabelValues(bucket).Add(float64(amount))
	}
}

// RecordDebit counts tokens debited from a bucket.
func RecordDebit(bucket string, amount int) {
	if amount > 0 {
		tokensDebited.WithLabelValues(bucket).Add(float64(amount))
	}
}

// RecordMissionCompleted counts one mission completion.
func RecordMissionCompleted() {
	missionsCompleted.Inc()
}

// SetPendingRewards records the number of outstanding claimable rewards.
func SetPendingRewards(count int) {
	pendingRewards.Set(float64(count))
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

// canonicalPath collapses entity ids so the label set stays bounded.
func canonicalPath(raw string) string {
	trimmed := strings.Trim(raw, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	switch parts[0] {
	case "students", "missions", "rewards":
		if len(parts) == 1 {
			return "/" + parts[0]
		}
		if len(parts) == 2 {
			return "/" + parts[0] + "/:id"
		}
		return "/" + parts[0] + "/:id/" + parts[2]
	}
	return "/" + parts[0]
}

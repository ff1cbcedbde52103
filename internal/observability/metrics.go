package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	httpDurationHistogram *prometheus.HistogramVec
	paymentCounter        *prometheus.CounterVec
	forwardHistogram      *prometheus.HistogramVec
	idempotencyCounter    *prometheus.CounterVec
	directorySizeGauge    prometheus.Gauge
	sweeperRunCounter     *prometheus.CounterVec
)

// Init registers all Prometheus collectors.
func Init() {
	registerOnce.Do(func() {
		httpDurationHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"})

		paymentCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_results_total",
			Help: "Terminal payment results by status and taxonomy code",
		}, []string{"status", "code", "route"})

		forwardHistogram = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "remote_forward_duration_seconds",
			Help:    "Partner forwarding latency",
			Buckets: prometheus.DefBuckets,
		}, []string{"bank_code", "outcome"})

		idempotencyCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "idempotency_events_total",
			Help: "Settlement idempotency outcomes",
		}, []string{"outcome"})

		directorySizeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "directory_active_nodes",
			Help: "Number of ACTIVE nodes in the bank directory",
		})

		sweeperRunCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "worker_runs_total",
			Help: "Background worker run outcomes",
		}, []string{"worker", "result"})

		prometheus.MustRegister(
			httpDurationHistogram,
			paymentCounter,
			forwardHistogram,
			idempotencyCounter,
			directorySizeGauge,
			sweeperRunCounter,
		)
	})
}

func ObserveHTTP(method, path string, status int, duration time.Duration) {
	if httpDurationHistogram == nil {
		return
	}
	httpDurationHistogram.WithLabelValues(method, path, strconv.Itoa(status)).Observe(duration.Seconds())
}

func IncrementPaymentResult(status, code, route string) {
	if paymentCounter == nil {
		return
	}
	if code == "" {
		code = "none"
	}
	paymentCounter.WithLabelValues(status, code, route).Inc()
}

func ObserveForward(bankCode, outcome string, duration time.Duration) {
	if forwardHistogram == nil {
		return
	}
	forwardHistogram.WithLabelValues(bankCode, outcome).Observe(duration.Seconds())
}

func IncrementIdempotencyEvent(outcome string) {
	if idempotencyCounter == nil {
		return
	}
	idempotencyCounter.WithLabelValues(outcome).Inc()
}

func SetDirectorySize(active int) {
	if directorySizeGauge == nil {
		return
	}
	directorySizeGauge.Set(float64(active))
}

func IncrementWorkerRun(worker, result string) {
	if sweeperRunCounter == nil {
		return
	}
	sweeperRunCounter.WithLabelValues(worker, result).Inc()
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "school_of_music"

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: namespace, Name: "http_request_duration_seconds", Help: "HTTP request duration", Buckets: prometheus.DefBuckets},
		[]string{"method", "route"},
	)
	settlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "settlements_total", Help: "Settlements by outcome"},
		[]string{"outcome"},
	)
	settlementDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Namespace: namespace, Name: "settlement_duration_seconds", Help: "Settlement duration", Buckets: prometheus.DefBuckets},
	)
	seatsEnrolledTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: namespace, Name: "seats_enrolled_total", Help: "Seats moved from available to enrolled"},
	)
	compensationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: namespace, Name: "settlement_compensations_total", Help: "Compensation steps run after a failed settlement"},
		[]string{"step", "result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		settlementsTotal,
		settlementDuration,
		seatsEnrolledTotal,
		compensationsTotal,
	)
}

// ObserveHTTP records one served request. route is the gin route template, not the raw path.
func ObserveHTTP(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveSettlement records a settlement outcome ("success", "conflict", "store_failure", ...).
func ObserveSettlement(outcome string, d time.Duration, seats int) {
	settlementsTotal.WithLabelValues(outcome).Inc()
	settlementDuration.Observe(d.Seconds())
	if seats > 0 {
		seatsEnrolledTotal.Add(float64(seats))
	}
}

func ObserveCompensation(step string, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	compensationsTotal.WithLabelValues(step, result).Inc()
}

func Handler() http.Handler {
	return promhttp.Handler()
}

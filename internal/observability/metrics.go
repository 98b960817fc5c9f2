package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LikesTotal counts successful like and unlike toggles.
	LikesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teenybox_likes_total",
		Help: "Total number of like toggles by content kind and action",
	}, []string{"kind", "action"})

	// CascadeTotal counts comment cleanup dispatches by outcome.
	CascadeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teenybox_cascade_total",
		Help: "Total number of comment cleanup cascades by kind, mode and result",
	}, []string{"kind", "mode", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "teenybox_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teenybox_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// RateLimitRejections counts requests refused by the rate limiter.
	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "teenybox_rate_limit_rejections_total",
		Help: "Total number of rate limited requests by resource",
	}, []string{"resource"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
	}
}

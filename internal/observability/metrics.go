package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sre_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	HoldsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sre_holds_created_total",
			Help: "Total holds created",
		},
	)

	SeatConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sre_seat_conflicts_total",
			Help: "Total seat conflicts by operation",
		},
		[]string{"op"},
	)

	OrdersConfirmed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sre_orders_confirmed_total",
			Help: "Total orders confirmed",
		},
	)

	OrdersFailed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sre_orders_failed_total",
			Help: "Total orders failed at confirmation",
		},
	)

	DBTxDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sre_ledger_tx_seconds",
			Help:    "Duration of ledger transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sre_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RabbitPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sre_rabbit_publish_retries_total",
			Help: "Total rabbit publish retries",
		},
	)

	RateLimitExceeded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sre_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

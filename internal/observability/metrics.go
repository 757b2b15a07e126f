package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"service", "method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)

	MessagesSubmittedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "messages_submitted_total",
			Help: "Submissions by outcome (sent, pending, invalid, failed)",
		},
		[]string{"outcome"},
	)

	MessageDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "message_decisions_total",
			Help: "Reviewer decisions by action and outcome",
		},
		[]string{"action", "outcome"},
	)

	EmailDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "email_deliveries_total",
			Help: "Email delivery attempts by kind (message, reviewer) and result",
		},
		[]string{"kind", "result"},
	)

	EmailDeliveryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "email_delivery_duration_seconds",
			Help:    "Latency of email delivery API calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"kind"},
	)

	OutboxEventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "outbox_events_published_total",
			Help: "Outbox events handed to Kafka by result",
		},
		[]string{"result"},
	)
)

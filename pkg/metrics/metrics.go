package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MQConsumeLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mq_consume_latency_ms",
			Help:    "MQ message consumption latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(10, 2, 10), // 10ms to ~10s
		},
		[]string{"routing_key", "queue"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	SentEmailLoggedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sent_email_logged_count",
			Help: "Total number of sent email snapshots written",
		},
		[]string{"status"}, // status: normal, failed
	)

	RetentionRunCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_run_count",
			Help: "Total number of retention prune passes executed",
		},
	)

	RetentionDeletedCount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "retention_deleted_count",
			Help: "Total number of sent email rows deleted by retention",
		},
	)

	ResendRecipientCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "resend_recipient_count",
			Help: "Total number of resend attempts per recipient outcome",
		},
		[]string{"result"}, // result: sent, failed
	)

	MailSendSuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_send_success_total",
			Help: "Total number of successful SMTP deliveries",
		},
		[]string{"host"},
	)

	MailSendFailure = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mail_send_failure_total",
			Help: "Total number of failed SMTP deliveries",
		},
		[]string{"host"},
	)
)

func RecordMQConsumeLatency(routingKey, queue string, duration time.Duration) {
	MQConsumeLatency.WithLabelValues(routingKey, queue).Observe(float64(duration.Milliseconds()))
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementSentEmailLogged(status string) {
	SentEmailLoggedCount.WithLabelValues(status).Inc()
}

func RecordRetentionRun(deleted int64) {
	RetentionRunCount.Inc()
	RetentionDeletedCount.Add(float64(deleted))
}

func IncrementResendRecipient(result string) {
	ResendRecipientCount.WithLabelValues(result).Inc()
}

// Package metrics provides Prometheus metrics instrumentation.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration tracks HTTP request duration.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadbot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path", "status"},
	)

	// RequestsTotal tracks total HTTP requests.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadbot_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// MentionsTotal tracks handled mention events by outcome.
	MentionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadbot_mentions_total",
			Help: "Mention events handled, by outcome",
		},
		[]string{"source", "status"},
	)

	// RedeliveriesSkipped tracks redelivered events dropped before processing.
	RedeliveriesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadbot_redeliveries_skipped_total",
			Help: "Redelivered events acknowledged without reprocessing",
		},
		[]string{"source"},
	)

	// ReplyFlushes tracks interim placeholder updates issued while streaming.
	ReplyFlushes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadbot_reply_flushes_total",
			Help: "Interim chat.update calls issued while streaming",
		},
	)

	// ReplyFinalized tracks final placeholder updates.
	ReplyFinalized = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "threadbot_reply_finalized_total",
			Help: "Final chat.update calls issued at completion",
		},
	)

	// LLMStreamDuration tracks LLM streaming response duration.
	LLMStreamDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "threadbot_llm_stream_duration_seconds",
			Help:    "LLM streaming response duration",
			Buckets: []float64{1, 2, 5, 10, 20, 30, 45, 60, 90, 120},
		},
		[]string{"provider", "status"},
	)

	// LLMTokensTotal tracks total LLM tokens processed.
	LLMTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadbot_llm_tokens_total",
			Help: "Total LLM tokens processed",
		},
		[]string{"provider", "direction"},
	)

	// HistoryOps tracks history store operations.
	HistoryOps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "threadbot_history_operations_total",
			Help: "History store operations, by backend and result",
		},
		[]string{"backend", "op", "status"},
	)

	// SocketConnected reports whether the socket-mode connection is up.
	SocketConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "threadbot_socket_connected",
			Help: "1 while the socket-mode websocket is connected",
		},
	)
)

// RecordRequest records metrics for an HTTP request.
func RecordRequest(method, path, status string, duration float64) {
	RequestDuration.WithLabelValues(method, path, status).Observe(duration)
	RequestsTotal.WithLabelValues(method, path, status).Inc()
}

// RecordLLMStream records metrics for an LLM streaming response.
func RecordLLMStream(provider, status string, duration float64, tokensIn, tokensOut int) {
	LLMStreamDuration.WithLabelValues(provider, status).Observe(duration)
	LLMTokensTotal.WithLabelValues(provider, "in").Add(float64(tokensIn))
	LLMTokensTotal.WithLabelValues(provider, "out").Add(float64(tokensOut))
}

// RecordHistoryOp records one history store call.
func RecordHistoryOp(backend, op string, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	HistoryOps.WithLabelValues(backend, op, status).Inc()
}

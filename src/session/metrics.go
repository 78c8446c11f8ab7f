package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "voicetrader",
			Subsystem: "gateway",
			Name:      "requests_total",
			Help:      "Correlated gateway requests by outcome",
		},
		[]string{"outcome"},
	)

	requestDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "voicetrader",
			Subsystem: "gateway",
			Name:      "request_duration_seconds",
			Help:      "Round-trip time from write to correlated reply",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	pendingRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "voicetrader",
			Subsystem: "gateway",
			Name:      "pending_requests",
			Help:      "Requests awaiting a reply",
		},
	)

	reconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "voicetrader",
			Subsystem: "gateway",
			Name:      "reconnects_scheduled_total",
			Help:      "Automatic reconnection attempts scheduled after an unexpected close",
		},
	)

	connectionState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "voicetrader",
			Subsystem: "gateway",
			Name:      "connection_state",
			Help:      "Current session state (0 disconnected, 1 connecting, 2 open, 3 closed, 4 errored)",
		},
	)
)

const (
	outcomeOK       = "ok"
	outcomeAPIError = "api_error"
	outcomeTimeout  = "timeout"
	outcomeCanceled = "canceled"
	outcomeClosed   = "closed"
	outcomeWriteErr = "write_error"
)

// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Stream metrics
	NotificationsReceived prometheus.Counter
	EventsMatched         prometheus.Counter
	Reconnects            prometheus.Counter

	// Pipeline metrics
	PipelineRunsTotal *prometheus.CounterVec
	StageOutcomes     *prometheus.CounterVec
	StageDuration     *prometheus.HistogramVec
	RetryAttempts     *prometheus.CounterVec

	// Trade metrics
	BuysConfirmed  prometheus.Counter
	SellsConfirmed prometheus.Counter
	RiskRejections *prometheus.CounterVec

	// Latency metrics
	RPCCallLatency *prometheus.HistogramVec

	// Health metrics
	OpenPositions prometheus.Gauge
	LastEventSeen prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "pool_sniper"
	}

	return &Metrics{
		// Stream metrics
		NotificationsReceived: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "notifications_received_total",
			Help:      "Total number of log notifications received over the subscription",
		}),
		EventsMatched: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_matched_total",
			Help:      "Total number of notifications that matched the pool initialization marker",
		}),
		Reconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "reconnects_total",
			Help:      "Total number of WebSocket reconnects",
		}),

		// Pipeline metrics
		PipelineRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of event pipeline runs by final outcome",
		}, []string{"outcome"}),
		StageOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_outcomes_total",
			Help:      "Total number of stage completions by stage and status",
		}, []string{"stage", "status"}),
		StageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Stage execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30, 60},
		}, []string{"stage"}),
		RetryAttempts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts by operation",
		}, []string{"operation"}),

		// Trade metrics
		BuysConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "buys_confirmed_total",
			Help:      "Total number of confirmed buy swaps",
		}),
		SellsConfirmed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "sells_confirmed_total",
			Help:      "Total number of confirmed sell swaps",
		}),
		RiskRejections: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "trade",
			Name:      "risk_rejections_total",
			Help:      "Total number of tokens rejected by the risk gate by reason",
		}, []string{"reason"}),

		// Latency metrics
		RPCCallLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "solana",
			Name:      "rpc_call_latency_seconds",
			Help:      "Solana RPC call latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),

		// Health metrics
		OpenPositions: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "open_positions",
			Help:      "Current number of open positions",
		}),
		LastEventSeen: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_event_seen_timestamp",
			Help:      "Unix timestamp of the last matched pool event",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordNotification increments the notifications received counter.
func RecordNotification() {
	DefaultMetrics.NotificationsReceived.Inc()
}

// RecordEventMatched increments the matched events counter and updates
// the last event timestamp.
func RecordEventMatched(unixTime int64) {
	DefaultMetrics.EventsMatched.Inc()
	DefaultMetrics.LastEventSeen.Set(float64(unixTime))
}

// RecordReconnect increments the reconnect counter.
func RecordReconnect() {
	DefaultMetrics.Reconnects.Inc()
}

// RecordStage records a stage completion.
func RecordStage(stage, status string, durationSeconds float64) {
	DefaultMetrics.StageOutcomes.WithLabelValues(stage, status).Inc()
	DefaultMetrics.StageDuration.WithLabelValues(stage).Observe(durationSeconds)
}

// RecordPipelineRun records a full pipeline run outcome.
func RecordPipelineRun(outcome string) {
	DefaultMetrics.PipelineRunsTotal.WithLabelValues(outcome).Inc()
}

// RecordRetry records a retry attempt for an operation.
func RecordRetry(operation string) {
	DefaultMetrics.RetryAttempts.WithLabelValues(operation).Inc()
}

// RecordRiskRejection records a risk gate rejection.
func RecordRiskRejection(reason string) {
	DefaultMetrics.RiskRejections.WithLabelValues(reason).Inc()
}

// RecordBuyConfirmed increments the confirmed buys counter.
func RecordBuyConfirmed() {
	DefaultMetrics.BuysConfirmed.Inc()
}

// RecordSellConfirmed increments the confirmed sells counter.
func RecordSellConfirmed() {
	DefaultMetrics.SellsConfirmed.Inc()
}

// RecordRPCLatency records RPC call latency.
func RecordRPCLatency(method string, seconds float64) {
	DefaultMetrics.RPCCallLatency.WithLabelValues(method).Observe(seconds)
}

// SetOpenPositions updates the open positions gauge.
func SetOpenPositions(n int) {
	DefaultMetrics.OpenPositions.Set(float64(n))
}

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
	// Market data metrics
	EventsProcessed  *prometheus.CounterVec
	EventsStored     *prometheus.CounterVec
	FeedReconnects   prometheus.Counter
	FeedErrors       *prometheus.CounterVec
	LastEventSeconds prometheus.Gauge

	// Strategy metrics
	OrdersSubmitted *prometheus.CounterVec
	OrdersRejected  prometheus.Counter
	FillsProcessed  prometheus.Counter
	TradesClosed    *prometheus.CounterVec
	RealizedPnL     prometheus.Gauge
	Position        *prometheus.GaugeVec
	StopLossPrice   *prometheus.GaugeVec
	BreakevenStage  *prometheus.GaugeVec
	SnapshotsSaved  prometheus.Counter

	// Backtest metrics
	BacktestRunsTotal *prometheus.CounterVec
	BacktestDuration  prometheus.Histogram

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "holo_reversal"
	}

	return &Metrics{
		// Market data metrics
		EventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_processed_total",
			Help:      "Total number of market events processed by type",
		}, []string{"event_type"}),
		EventsStored: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "events_stored_total",
			Help:      "Total number of market events stored by type",
		}, []string{"event_type"}),
		FeedReconnects: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "reconnects_total",
			Help:      "Total number of market data reconnects",
		}),
		FeedErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "errors_total",
			Help:      "Total number of market data errors by type",
		}, []string{"error_type"}),
		LastEventSeconds: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "feed",
			Name:      "last_event_timestamp_seconds",
			Help:      "Exchange timestamp of the last processed event",
		}),

		// Strategy metrics
		OrdersSubmitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "orders_submitted_total",
			Help:      "Total number of orders submitted by reason",
		}, []string{"reason"}),
		OrdersRejected: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "orders_rejected_total",
			Help:      "Total number of rejected order requests",
		}),
		FillsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "fills_processed_total",
			Help:      "Total number of fills delivered to the strategy",
		}),
		TradesClosed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "trades_closed_total",
			Help:      "Total number of round trips closed by exit reason and outcome",
		}, []string{"exit_reason", "outcome"}),
		RealizedPnL: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "realized_pnl",
			Help:      "Cumulative net realized pnl",
		}),
		Position: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "position",
			Help:      "Current net position",
		}, []string{"symbol"}),
		StopLossPrice: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "stop_loss_price",
			Help:      "Current protective stop, 0 when unset",
		}, []string{"symbol"}),
		BreakevenStage: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "breakeven_stage",
			Help:      "Current breakeven stage of the open position",
		}, []string{"symbol"}),
		SnapshotsSaved: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "strategy",
			Name:      "snapshots_saved_total",
			Help:      "Total number of strategy state snapshots saved",
		}),

		// Backtest metrics
		BacktestRunsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "runs_total",
			Help:      "Total number of backtest runs by status",
		}, []string{"scenario", "status"}),
		BacktestDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "backtest",
			Name:      "duration_seconds",
			Help:      "Backtest execution duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		}),

		// Database metrics
		DBQueryDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordEvent increments the processed events counter and the last event gauge.
func RecordEvent(eventType string, timestampMs int64) {
	DefaultMetrics.EventsProcessed.WithLabelValues(eventType).Inc()
	DefaultMetrics.LastEventSeconds.Set(float64(timestampMs) / 1000)
}

// RecordEventsStored increments the stored events counter.
func RecordEventsStored(eventType string, n int) {
	DefaultMetrics.EventsStored.WithLabelValues(eventType).Add(float64(n))
}

// RecordFeedReconnect increments the reconnect counter.
func RecordFeedReconnect() {
	DefaultMetrics.FeedReconnects.Inc()
}

// RecordFeedError records a market data error.
func RecordFeedError(errorType string) {
	DefaultMetrics.FeedErrors.WithLabelValues(errorType).Inc()
}

// RecordOrder records a submitted order, or a rejection when accepted is false.
func RecordOrder(reason string, accepted bool) {
	if !accepted {
		DefaultMetrics.OrdersRejected.Inc()
		return
	}
	DefaultMetrics.OrdersSubmitted.WithLabelValues(reason).Inc()
}

// RecordFill increments the fills counter.
func RecordFill() {
	DefaultMetrics.FillsProcessed.Inc()
}

// RecordTrade records a closed round trip and adds its net pnl.
func RecordTrade(exitReason, outcome string, netPnL float64) {
	DefaultMetrics.TradesClosed.WithLabelValues(exitReason, outcome).Inc()
	DefaultMetrics.RealizedPnL.Add(netPnL)
}

// UpdatePosition updates the position gauges for a symbol.
func UpdatePosition(symbol string, pos float64, stop *float64, stage int) {
	DefaultMetrics.Position.WithLabelValues(symbol).Set(pos)
	if stop != nil {
		DefaultMetrics.StopLossPrice.WithLabelValues(symbol).Set(*stop)
	} else {
		DefaultMetrics.StopLossPrice.WithLabelValues(symbol).Set(0)
	}
	DefaultMetrics.BreakevenStage.WithLabelValues(symbol).Set(float64(stage))
}

// RecordSnapshotSaved increments the snapshots counter.
func RecordSnapshotSaved() {
	DefaultMetrics.SnapshotsSaved.Inc()
}

// RecordBacktestRun records a backtest run.
func RecordBacktestRun(scenario, status string, durationSeconds float64) {
	DefaultMetrics.BacktestRunsTotal.WithLabelValues(scenario, status).Inc()
	DefaultMetrics.BacktestDuration.Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		DefaultMetrics.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// internal/utils/metrics/collector.go
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pumpfleet"

// Collector holds every metric of the process. All methods are safe on a nil
// receiver so components can run without metrics.
type Collector struct {
	registry *prometheus.Registry

	tradesTotal          *prometheus.CounterVec
	tradeDuration        *prometheus.HistogramVec
	confirmationsTotal   *prometheus.CounterVec
	confirmationAttempts prometheus.Histogram
	ledgerWrites         *prometheus.CounterVec
	deltaAnomalies       prometheus.Counter
	accountClosures      *prometheus.CounterVec
	feedState            *prometheus.GaugeVec
	feedReconnects       prometheus.Counter
	feedMessages         *prometheus.CounterVec
	tradeAPIRequests     *prometheus.CounterVec
}

// NewCollector registers the metrics on reg. A nil reg gets a fresh registry.
func NewCollector(reg *prometheus.Registry) *Collector {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)

	return &Collector{
		registry: reg,
		tradesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_total",
			Help:      "Trades executed per action and outcome",
		}, []string{"action", "status"}),
		tradeDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "trade_duration_seconds",
			Help:      "Time from trade request to confirmation outcome",
			Buckets:   prometheus.ExponentialBuckets(0.25, 2, 8),
		}, []string{"action"}),
		confirmationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "confirmations_total",
			Help:      "Confirmation polls by outcome",
		}, []string{"outcome"}),
		confirmationAttempts: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "confirmation_attempts",
			Help:      "Status polls spent per confirmation",
			Buckets:   prometheus.LinearBuckets(1, 1, 10),
		}),
		ledgerWrites: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_writes_total",
			Help:      "Ledger appends by outcome",
		}, []string{"status"}),
		deltaAnomalies: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "token_delta_anomalies_total",
			Help:      "Confirmed buys that produced no positive token delta",
		}),
		accountClosures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "account_closures_total",
			Help:      "Token account closures after full sells",
		}, []string{"status"}),
		feedState: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price_feed_state",
			Help:      "1 for the current state of the price feed session",
		}, []string{"state"}),
		feedReconnects: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_feed_reconnects_total",
			Help:      "Price feed reconnect attempts",
		}),
		feedMessages: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "price_feed_messages_total",
			Help:      "Price feed messages by kind",
		}, []string{"kind"}),
		tradeAPIRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trade_api_requests_total",
			Help:      "Trade API requests by outcome",
		}, []string{"status"}),
	}
}

func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// Handler serves the registry in the Prometheus text format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) RecordTrade(action, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.tradesTotal.WithLabelValues(action, status).Inc()
	c.tradeDuration.WithLabelValues(action).Observe(duration.Seconds())
}

func (c *Collector) RecordConfirmation(confirmed bool, attempts int) {
	if c == nil {
		return
	}
	outcome := "confirmed"
	if !confirmed {
		outcome = "exhausted"
	}
	c.confirmationsTotal.WithLabelValues(outcome).Inc()
	c.confirmationAttempts.Observe(float64(attempts))
}

func (c *Collector) RecordLedgerWrite(err error) {
	if c == nil {
		return
	}
	c.ledgerWrites.WithLabelValues(statusLabel(err)).Inc()
}

func (c *Collector) RecordDeltaAnomaly() {
	if c == nil {
		return
	}
	c.deltaAnomalies.Inc()
}

func (c *Collector) RecordAccountClosure(err error) {
	if c == nil {
		return
	}
	c.accountClosures.WithLabelValues(statusLabel(err)).Inc()
}

// SetFeedState marks state as the only active feed state.
func (c *Collector) SetFeedState(state string, all []string) {
	if c == nil {
		return
	}
	for _, s := range all {
		v := 0.0
		if s == state {
			v = 1
		}
		c.feedState.WithLabelValues(s).Set(v)
	}
}

func (c *Collector) RecordFeedReconnect() {
	if c == nil {
		return
	}
	c.feedReconnects.Inc()
}

// RecordFeedMessage counts decoded ("update") and ignored ("ignored") messages.
func (c *Collector) RecordFeedMessage(kind string) {
	if c == nil {
		return
	}
	c.feedMessages.WithLabelValues(kind).Inc()
}

func (c *Collector) RecordTradeAPIRequest(err error) {
	if c == nil {
		return
	}
	c.tradeAPIRequests.WithLabelValues(statusLabel(err)).Inc()
}

func statusLabel(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

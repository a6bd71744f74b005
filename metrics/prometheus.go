package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DUSD Engine Metrics Collector
// Provides metrics for monitoring the synthetic-dollar engine

var (
	// Singleton collector
	collector     *Collector
	collectorOnce sync.Once
)

// Collector holds all engine metrics
type Collector struct {
	// Position operation metrics
	DepositsTotal    *prometheus.CounterVec
	RedemptionsTotal *prometheus.CounterVec
	MintsTotal       prometheus.Counter
	BurnsTotal       prometheus.Counter
	OperationErrors  *prometheus.CounterVec

	// Solvency metrics
	HealthFactor       *prometheus.GaugeVec
	CollateralValueUsd *prometheus.GaugeVec
	DebtOutstanding    *prometheus.GaugeVec
	DusdSupply         prometheus.Gauge
	ProtocolBackingPct prometheus.Gauge

	// Liquidation metrics
	LiquidationsTotal     *prometheus.CounterVec
	LiquidationDebtValue  *prometheus.CounterVec
	LiquidationBonusValue *prometheus.CounterVec

	// Oracle metrics
	OraclePrice *prometheus.GaugeVec

	// API metrics
	APIRequestsTotal  *prometheus.CounterVec
	APIRequestLatency *prometheus.HistogramVec

	// WebSocket metrics
	WSConnectionsActive prometheus.Gauge
	WSMessagesTotal     *prometheus.CounterVec
}

// GetCollector returns the singleton metrics collector
func GetCollector() *Collector {
	collectorOnce.Do(func() {
		collector = newCollector()
	})
	return collector
}

// newCollector creates a new metrics collector
func newCollector() *Collector {
	c := &Collector{}

	c.DepositsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "positions",
			Name:      "deposits_total",
			Help:      "Total number of collateral deposits",
		},
		[]string{"denom"},
	)

	c.RedemptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "positions",
			Name:      "redemptions_total",
			Help:      "Total number of collateral redemptions",
		},
		[]string{"denom"},
	)

	c.MintsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "positions",
			Name:      "mints_total",
			Help:      "Total number of dusd mints",
		},
	)

	c.BurnsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "positions",
			Name:      "burns_total",
			Help:      "Total number of dusd burns",
		},
	)

	c.OperationErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "positions",
			Name:      "operation_errors_total",
			Help:      "Rejected operations by kind",
		},
		[]string{"operation"},
	)

	c.HealthFactor = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dusd",
			Subsystem: "solvency",
			Name:      "health_factor",
			Help:      "Account health factor (1.0 = liquidation threshold)",
		},
		[]string{"account"},
	)

	c.CollateralValueUsd = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dusd",
			Subsystem: "solvency",
			Name:      "collateral_value_usd",
			Help:      "Account collateral value in USD",
		},
		[]string{"account"},
	)

	c.DebtOutstanding = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dusd",
			Subsystem: "solvency",
			Name:      "debt_outstanding",
			Help:      "Account outstanding dusd debt",
		},
		[]string{"account"},
	)

	c.DusdSupply = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dusd",
			Subsystem: "solvency",
			Name:      "supply",
			Help:      "Total dusd supply",
		},
	)

	c.ProtocolBackingPct = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dusd",
			Subsystem: "solvency",
			Name:      "backing_pct",
			Help:      "Total collateral USD value over total supply, percent",
		},
	)

	c.LiquidationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "liquidations",
			Name:      "total",
			Help:      "Total number of liquidations executed",
		},
		[]string{"denom"},
	)

	c.LiquidationDebtValue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "liquidations",
			Name:      "debt_covered",
			Help:      "Total dusd debt covered by liquidations",
		},
		[]string{"denom"},
	)

	c.LiquidationBonusValue = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "liquidations",
			Name:      "bonus_collateral",
			Help:      "Total bonus collateral paid to liquidators",
		},
		[]string{"denom"},
	)

	c.OraclePrice = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "dusd",
			Subsystem: "oracle",
			Name:      "price",
			Help:      "Latest oracle price per feed",
		},
		[]string{"feed"},
	)

	c.APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total API requests",
		},
		[]string{"method", "path", "status"},
	)

	c.APIRequestLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dusd",
			Subsystem: "api",
			Name:      "request_latency_ms",
			Help:      "API request latency in milliseconds",
			Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
		[]string{"method", "path"},
	)

	c.WSConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "dusd",
			Subsystem: "ws",
			Name:      "connections_active",
			Help:      "Active websocket connections",
		},
	)

	c.WSMessagesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dusd",
			Subsystem: "ws",
			Name:      "messages_total",
			Help:      "Websocket messages sent per channel",
		},
		[]string{"channel"},
	)

	// Register all metrics
	c.registerAll()

	return c
}

// registerAll registers all metrics with Prometheus
func (c *Collector) registerAll() {
	prometheus.MustRegister(c.DepositsTotal)
	prometheus.MustRegister(c.RedemptionsTotal)
	prometheus.MustRegister(c.MintsTotal)
	prometheus.MustRegister(c.BurnsTotal)
	prometheus.MustRegister(c.OperationErrors)

	prometheus.MustRegister(c.HealthFactor)
	prometheus.MustRegister(c.CollateralValueUsd)
	prometheus.MustRegister(c.DebtOutstanding)
	prometheus.MustRegister(c.DusdSupply)
	prometheus.MustRegister(c.ProtocolBackingPct)

	prometheus.MustRegister(c.LiquidationsTotal)
	prometheus.MustRegister(c.LiquidationDebtValue)
	prometheus.MustRegister(c.LiquidationBonusValue)

	prometheus.MustRegister(c.OraclePrice)

	prometheus.MustRegister(c.APIRequestsTotal)
	prometheus.MustRegister(c.APIRequestLatency)

	prometheus.MustRegister(c.WSConnectionsActive)
	prometheus.MustRegister(c.WSMessagesTotal)
}

// ============ Recording Helpers ============

// RecordDeposit records a successful collateral deposit
func (c *Collector) RecordDeposit(denom string) {
	c.DepositsTotal.WithLabelValues(denom).Inc()
}

// RecordRedemption records a successful collateral redemption
func (c *Collector) RecordRedemption(denom string) {
	c.RedemptionsTotal.WithLabelValues(denom).Inc()
}

// RecordMint records a successful dusd mint
func (c *Collector) RecordMint() {
	c.MintsTotal.Inc()
}

// RecordBurn records a successful dusd burn
func (c *Collector) RecordBurn() {
	c.BurnsTotal.Inc()
}

// RecordOperationError records a rejected operation
func (c *Collector) RecordOperationError(operation string) {
	c.OperationErrors.WithLabelValues(operation).Inc()
}

// RecordLiquidation records a liquidation event
func (c *Collector) RecordLiquidation(denom string, debtCovered, bonus float64) {
	c.LiquidationsTotal.WithLabelValues(denom).Inc()
	c.LiquidationDebtValue.WithLabelValues(denom).Add(debtCovered)
	c.LiquidationBonusValue.WithLabelValues(denom).Add(bonus)
}

// UpdateAccountSolvency updates the per-account solvency gauges
func (c *Collector) UpdateAccountSolvency(account string, healthFactor, collateralValue, debt float64) {
	c.HealthFactor.WithLabelValues(account).Set(healthFactor)
	c.CollateralValueUsd.WithLabelValues(account).Set(collateralValue)
	c.DebtOutstanding.WithLabelValues(account).Set(debt)
}

// UpdateProtocolSolvency updates the system-wide backing gauges
func (c *Collector) UpdateProtocolSolvency(supply, collateralValue float64) {
	c.DusdSupply.Set(supply)
	if supply > 0 {
		c.ProtocolBackingPct.Set(collateralValue / supply * 100)
	}
}

// UpdateOraclePrice updates the per-feed price gauge
func (c *Collector) UpdateOraclePrice(feed string, price float64) {
	c.OraclePrice.WithLabelValues(feed).Set(price)
}

// RecordAPIRequest records an API request
func (c *Collector) RecordAPIRequest(method, path, status string, latencyMs float64) {
	c.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	c.APIRequestLatency.WithLabelValues(method, path).Observe(latencyMs)
}

// RecordWSConnection records websocket connection changes
func (c *Collector) RecordWSConnection(delta int) {
	c.WSConnectionsActive.Add(float64(delta))
}

// RecordWSMessage records a websocket message
func (c *Collector) RecordWSMessage(channel string) {
	c.WSMessagesTotal.WithLabelValues(channel).Inc()
}

// ============ HTTP Handler ============

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for measuring latency
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// ElapsedMs returns the elapsed time in milliseconds
func (t *Timer) ElapsedMs() float64 {
	return float64(time.Since(t.start).Microseconds()) / 1000.0
}

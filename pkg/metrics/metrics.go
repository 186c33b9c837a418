package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Business metrics
	ClicksRecorded     *prometheus.CounterVec
	WebhookDeliveries  *prometheus.CounterVec
	CommissionAccrued  *prometheus.CounterVec
	LedgerRepairs      prometheus.Counter
	WebhookDedupErrors prometheus.Counter

	// Database metrics
	DBConnections prometheus.Gauge
}

// New creates a new Metrics instance registered on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_response_size_bytes",
				Help:    "HTTP response size in bytes",
				Buckets: []float64{100, 1000, 5000, 10000, 50000, 100000, 500000, 1000000},
			},
			[]string{"method", "path"},
		),

		ClicksRecorded: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capty_clicks_recorded_total",
				Help: "Referral clicks seen by the redirect endpoint",
			},
			[]string{"outcome"}, // recorded, duplicate, skipped, error
		),
		WebhookDeliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capty_webhook_deliveries_total",
				Help: "Webhook deliveries by topic and outcome",
			},
			[]string{"topic", "outcome"},
		),
		CommissionAccrued: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "capty_commission_accrued_total",
				Help: "Commission booked from attributed orders, in the order currency",
			},
			[]string{"currency"},
		),
		LedgerRepairs: factory.NewCounter(prometheus.CounterOpts{
			Name: "capty_ledger_repairs_total",
			Help: "Monthly ledger rows rewritten by reconciliation",
		}),
		WebhookDedupErrors: factory.NewCounter(prometheus.CounterOpts{
			Name: "capty_webhook_dedup_errors_total",
			Help: "Redis failures while claiming a webhook id",
		}),

		DBConnections: factory.NewGauge(prometheus.GaugeOpts{
			Name: "db_connections_active",
			Help: "Number of active database connections",
		}),
	}
}

// Middleware creates an Echo middleware for Prometheus metrics
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()
			path := c.Path() // route pattern, keeps label cardinality bounded

			err := next(c)

			status := strconv.Itoa(c.Response().Status)
			m.HTTPRequestsTotal.WithLabelValues(req.Method, path, status).Inc()
			m.HTTPRequestDuration.WithLabelValues(req.Method, path, status).Observe(time.Since(start).Seconds())
			m.HTTPResponseSize.WithLabelValues(req.Method, path).Observe(float64(c.Response().Size))

			return err
		}
	}
}

// RecordClick counts a redirect by what happened to its click
func (m *Metrics) RecordClick(outcome string) {
	m.ClicksRecorded.WithLabelValues(outcome).Inc()
}

// RecordWebhook counts a webhook delivery
func (m *Metrics) RecordWebhook(topic, outcome string) {
	m.WebhookDeliveries.WithLabelValues(topic, outcome).Inc()
}

// RecordCommission adds booked commission
func (m *Metrics) RecordCommission(currency string, amount float64) {
	m.CommissionAccrued.WithLabelValues(currency).Add(amount)
}

// RecordLedgerRepair increments the ledger repairs counter
func (m *Metrics) RecordLedgerRepair() {
	m.LedgerRepairs.Inc()
}

// RecordDedupError increments the webhook dedup error counter
func (m *Metrics) RecordDedupError() {
	m.WebhookDedupErrors.Inc()
}

// UpdateDBConnections updates active database connections gauge
func (m *Metrics) UpdateDBConnections(count float64) {
	m.DBConnections.Set(count)
}

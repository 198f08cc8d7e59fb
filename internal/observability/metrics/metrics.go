package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/fx"
)

// Metrics holds the prometheus instruments for the sale engine and the HTTP
// surface. Registered on the default registry and scraped via /metrics.
type Metrics struct {
	HTTPRequests    *prometheus.CounterVec
	HTTPDuration    *prometheus.HistogramVec
	SalesCommitted  *prometheus.CounterVec
	SalesVoided     *prometheus.CounterVec
	SaleAmountCents *prometheus.HistogramVec
}

func New() *Metrics {
	return &Metrics{
		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tillway",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method, and status.",
		}, []string{"route", "method", "status"}),
		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tillway",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
		SalesCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tillway",
			Name:      "sales_committed_total",
			Help:      "Committed sales by branch and invoice type.",
		}, []string{"branch", "invoice_type"}),
		SalesVoided: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tillway",
			Name:      "sales_voided_total",
			Help:      "Voided sales by branch.",
		}, []string{"branch"}),
		SaleAmountCents: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "tillway",
			Name:      "sale_amount_cents",
			Help:      "Distribution of committed sale totals in cents.",
			Buckets:   prometheus.ExponentialBuckets(100, 4, 10),
		}, []string{"branch"}),
	}
}

func (m *Metrics) ObserveSaleCommitted(branch, invoiceType string, totalCents int64) {
	if m == nil {
		return
	}
	m.SalesCommitted.WithLabelValues(branch, invoiceType).Inc()
	m.SaleAmountCents.WithLabelValues(branch).Observe(float64(totalCents))
}

func (m *Metrics) ObserveSaleVoided(branch string) {
	if m == nil {
		return
	}
	m.SalesVoided.WithLabelValues(branch).Inc()
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPDuration.WithLabelValues(route, c.Request.Method).Observe(time.Since(start).Seconds())
	}
}

var Module = fx.Module("observability.metrics",
	fx.Provide(New),
)

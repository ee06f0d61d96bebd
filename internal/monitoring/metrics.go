package monitoring

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "haldor_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route", "method", "status_code"},
	)

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haldor_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "method", "status_code"},
	)
)

var (
	PaymentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haldor_payments_total",
			Help: "Payment attempts by outcome",
		},
		[]string{"status", "code"},
	)

	OrdersCreatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haldor_orders_created_total",
			Help: "Total number of paid orders recorded",
		},
	)

	OrdersDeduplicatedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haldor_orders_deduplicated_total",
			Help: "Order creations skipped because the transaction was already recorded",
		},
	)

	CartOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haldor_cart_operations_total",
			Help: "Cart mutations by operation",
		},
		[]string{"operation"},
	)

	EventsPublishedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "haldor_events_published_total",
			Help: "Domain events handed to the broker",
		},
		[]string{"routing_key", "result"},
	)

	CatalogLoadsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "haldor_catalog_loads_total",
			Help: "Catalog reads that reached the repository",
		},
	)
)

// RecordPayment counts one simulator outcome.
func RecordPayment(status, code string) {
	if code == "" {
		code = "none"
	}
	PaymentsTotal.WithLabelValues(status, code).Inc()
}

// Middleware records duration and count of every request, labelled by the
// matched route rather than the raw path.
func Middleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		route := c.Route().Path
		if route == "" {
			route = "unmatched"
		}
		code := strconv.Itoa(status)
		HTTPRequestDuration.WithLabelValues(route, c.Method(), code).Observe(time.Since(start).Seconds())
		HTTPRequestsTotal.WithLabelValues(route, c.Method(), code).Inc()
		return err
	}
}

// Package metrics exposes Prometheus collectors for the terminal.
package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshpos_scans_total",
			Help: "Scanned barcodes by outcome and barcode layout",
		},
		[]string{"outcome", "format"},
	)

	imageScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshpos_image_scans_total",
			Help: "Barcode images submitted for decoding",
		},
		[]string{"result"}, // decoded, no_barcode, bad_image
	)

	paymentsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "freshpos_payments_total",
			Help: "Confirmed payments",
		},
	)

	basketValue = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freshpos_basket_value",
			Help:    "Total of a confirmed payment in store currency",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	basketLines = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "freshpos_basket_lines",
			Help:    "Number of lines in a confirmed payment",
			Buckets: []float64{1, 2, 5, 10, 20, 50},
		},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "freshpos_active_sessions",
			Help: "Terminal sessions held in memory",
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "freshpos_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "freshpos_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

func RecordScan(outcome, format string) {
	if format == "" {
		format = "none"
	}
	scansTotal.WithLabelValues(outcome, format).Inc()
}

func RecordImageScan(result string) { imageScansTotal.WithLabelValues(result).Inc() }

func RecordPayment(lines int, total float64) {
	paymentsTotal.Inc()
	basketLines.Observe(float64(lines))
	basketValue.Observe(total)
}

func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }

// Middleware records request counts and latency labelled by the matched
// route pattern rather than the raw path.
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
		// labels are kept by the registry; fasthttp reuses request memory
		method := utils.CopyString(c.Method())
		route := c.Route().Path
		if route == "" || route == "/" && c.Path() != "/" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
		return err
	}
}

package observability

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics stores Prometheus collectors used by API and batch execution flows.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	imagesUploadedTotal  *prometheus.CounterVec
	imageOpsFailedTotal  *prometheus.CounterVec
	uploadDuration       *prometheus.HistogramVec
	batchesStartedTotal  prometheus.Counter
	batchesFinishedTotal *prometheus.CounterVec
	batchesInflight      prometheus.Gauge
}

func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "media_dispatch",
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests processed by method, path, and status.",
			},
			[]string{"method", "path", "status"},
		),
		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "media_dispatch",
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds by method and path.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		imagesUploadedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "media_dispatch",
				Name:      "images_uploaded_total",
				Help:      "Total number of product images uploaded successfully.",
			},
			[]string{"operation"},
		),
		imageOpsFailedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "media_dispatch",
				Name:      "image_ops_failed_total",
				Help:      "Total number of per-product image operations that ended in error.",
			},
			[]string{"operation", "reason"},
		),
		uploadDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "media_dispatch",
				Name:      "upload_duration_seconds",
				Help:      "End-to-end upload duration per product image grouped by operation.",
				Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
			},
			[]string{"operation"},
		),
		batchesStartedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "media_dispatch",
				Name:      "batches_started_total",
				Help:      "Total number of image batches accepted for processing.",
			},
		),
		batchesFinishedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "media_dispatch",
				Name:      "batches_finished_total",
				Help:      "Total number of image batches that reached a terminal status.",
			},
			[]string{"status"},
		),
		batchesInflight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "media_dispatch",
				Name:      "batches_inflight",
				Help:      "Current number of image batches being processed.",
			},
		),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpRequestDuration,
		m.imagesUploadedTotal,
		m.imageOpsFailedTotal,
		m.uploadDuration,
		m.batchesStartedTotal,
		m.batchesFinishedTotal,
		m.batchesInflight,
	)

	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil || m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) HTTPMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		path := routePath(c)
		// Avoid self-scrape noise for request counters.
		if path == "/metrics" {
			return err
		}

		m.recordHTTPRequest(c.Method(), path, statusFromResult(c, err), time.Since(start))
		return err
	}
}

func (m *Metrics) IncImageUploaded(operation string) {
	if m == nil {
		return
	}
	m.imagesUploadedTotal.WithLabelValues(normalizeLabel(operation)).Inc()
}

func (m *Metrics) IncImageOpFailed(operation string, reason string) {
	if m == nil {
		return
	}
	reasonLabel := strings.TrimSpace(strings.ToLower(reason))
	if reasonLabel == "" {
		reasonLabel = "unknown"
	}
	m.imageOpsFailedTotal.WithLabelValues(normalizeLabel(operation), reasonLabel).Inc()
}

func (m *Metrics) ObserveUploadDuration(operation string, duration time.Duration) {
	if m == nil {
		return
	}
	seconds := duration.Seconds()
	if seconds < 0 {
		seconds = 0
	}
	m.uploadDuration.WithLabelValues(normalizeLabel(operation)).Observe(seconds)
}

func (m *Metrics) IncBatchStarted() {
	if m == nil {
		return
	}
	m.batchesStartedTotal.Inc()
	m.batchesInflight.Inc()
}

func (m *Metrics) IncBatchFinished(status string) {
	if m == nil {
		return
	}
	m.batchesFinishedTotal.WithLabelValues(normalizeLabel(status)).Inc()
	m.batchesInflight.Dec()
}

func (m *Metrics) recordHTTPRequest(method string, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}

	methodLabel := strings.ToUpper(strings.TrimSpace(method))
	if methodLabel == "" {
		methodLabel = "UNKNOWN"
	}
	pathLabel := strings.TrimSpace(path)
	if pathLabel == "" {
		pathLabel = "unmatched"
	}

	m.httpRequestsTotal.WithLabelValues(methodLabel, pathLabel, strconv.Itoa(status)).Inc()
	m.httpRequestDuration.WithLabelValues(methodLabel, pathLabel).Observe(duration.Seconds())
}

func routePath(c *fiber.Ctx) string {
	if c == nil {
		return "unmatched"
	}

	if route := c.Route(); route != nil {
		if path := strings.TrimSpace(route.Path); path != "" {
			return path
		}
	}
	return "unmatched"
}

func statusFromResult(c *fiber.Ctx, err error) int {
	if err != nil {
		if fiberErr, ok := err.(*fiber.Error); ok {
			return fiberErr.Code
		}
		return fiber.StatusInternalServerError
	}

	if c == nil {
		return fiber.StatusOK
	}

	status := c.Response().StatusCode()
	if status == 0 {
		return fiber.StatusOK
	}
	return status
}

func normalizeLabel(value string) string {
	normalized := strings.ToLower(strings.TrimSpace(value))
	if normalized == "" {
		return "unknown"
	}
	return normalized
}

// Package metrics provides Prometheus metrics for the inventory console.
package metrics

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_inventory_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ocr_inventory_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Polling metrics
	pollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_inventory_polls_total",
			Help: "Total number of listing fetches by outcome",
		},
		[]string{"status"},
	)

	pollDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ocr_inventory_poll_duration_seconds",
			Help:    "Duration of listing fetches",
			Buckets: prometheus.DefBuckets,
		},
	)

	documentGroups = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocr_inventory_document_groups",
			Help: "Number of document groups currently displayed",
		},
	)

	remoteRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocr_inventory_remote_records",
			Help: "Number of files in the last successful listing",
		},
	)

	lastReconcile = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocr_inventory_last_reconcile_timestamp_seconds",
			Help: "Unix time of the last successful reconciliation",
		},
	)

	// Upload metrics
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_inventory_uploads_total",
			Help: "Total number of upload attempts by outcome",
		},
		[]string{"status"},
	)

	uploadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ocr_inventory_upload_duration_seconds",
			Help:    "Time from upload start to processing result",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	uploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ocr_inventory_upload_bytes_total",
			Help: "Total bytes streamed to the OCR service",
		},
	)

	// Deletion metrics
	deletesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_inventory_deletes_total",
			Help: "Total number of delete requests by outcome",
		},
		[]string{"status"},
	)

	// Websocket metrics
	wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ocr_inventory_ws_connections_active",
			Help: "Number of active websocket connections",
		},
	)

	eventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_inventory_events_total",
			Help: "Total events published to the view",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordPoll records one listing fetch.
func RecordPoll(duration time.Duration, success bool) {
	pollDuration.Observe(duration.Seconds())
	pollsTotal.WithLabelValues(outcome(success)).Inc()
}

// SetInventory records the size of the reconciled inventory.
func SetInventory(groups, records int, at time.Time) {
	documentGroups.Set(float64(groups))
	remoteRecords.Set(float64(records))
	lastReconcile.Set(float64(at.Unix()))
}

// RecordUpload records a finished upload. status is the final phase or
// "invalid" for files rejected before any network call.
func RecordUpload(status string, bytes int64, duration time.Duration) {
	uploadsTotal.WithLabelValues(status).Inc()
	uploadBytes.Add(float64(bytes))
	if duration > 0 {
		uploadDuration.Observe(duration.Seconds())
	}
}

// RecordDelete records a delete request. status is success, error or cancelled.
func RecordDelete(status string) {
	deletesTotal.WithLabelValues(status).Inc()
}

// SetWSConnectionsActive sets the number of connected websocket clients.
func SetWSConnectionsActive(count int) {
	wsConnectionsActive.Set(float64(count))
}

// RecordEvent records an event pushed to the view.
func RecordEvent(eventType string) {
	eventsTotal.WithLabelValues(eventType).Inc()
}

func outcome(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("hijack not supported")
	}
	return h.Hijack()
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware returns HTTP middleware that records request metrics labelled
// by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)
		RecordHTTPRequest(r.Method, routePattern(r), rw.statusCode, time.Since(start))
	})
}

func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

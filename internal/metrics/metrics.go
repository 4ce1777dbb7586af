// Package metrics provides Prometheus instrumentation for the synthetics engine.
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
	// IncreasePreviews counts increase previews by input mode and outcome
	// (ok, loading, no_route).
	IncreasePreviews = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_increase_previews_total",
		Help: "Increase order previews computed",
	}, []string{"mode", "outcome"})

	// IndexerQueries counts subgraph queries by entity and outcome.
	IndexerQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_indexer_queries_total",
		Help: "Queries issued to the stats subgraph",
	}, []string{"entity", "outcome"})

	IndexerQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synth_indexer_query_duration_seconds",
		Help:    "Subgraph query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"entity"})

	// PageCacheLookups counts history page cache lookups by backend and result.
	PageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_page_cache_lookups_total",
		Help: "History page cache lookups",
	}, []string{"backend", "result"})

	// SharedPageLoads counts page loads that joined an in-flight load for
	// the same key instead of querying the indexer.
	SharedPageLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_shared_page_loads_total",
		Help: "Page loads served by an in-flight request for the same key",
	}, []string{"scope"})

	// DroppedRecords counts history records left out because their
	// reference data could not be resolved.
	DroppedRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_history_dropped_records_total",
		Help: "History records dropped during aggregation",
	}, []string{"scope", "reason"})

	// PriceUpdates counts token price updates applied, by source.
	PriceUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_price_updates_total",
		Help: "Token price updates applied",
	}, []string{"source"})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "synth_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, route, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "synth_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and route.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "synth_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Label by route pattern so account addresses don't become labels.
		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Hijack lets WebSocket upgrades pass through the middleware.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("metrics: response writer does not support hijacking")
	}
	return h.Hijack()
}

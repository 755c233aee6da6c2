// Package telemetry records index, query and HTTP instruments through OpenTelemetry and
// exposes them on a Prometheus registry.
package telemetry

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	prometheusotel "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// Telemetry bundles every instrument. A disabled Telemetry turns every call into a no-op.
type Telemetry struct {
	enabled bool
	logger  *slog.Logger

	registry       *prometheus.Registry
	metricsHandler http.Handler
	provider       *sdkmetric.MeterProvider

	queries     atomic.Int64
	completions atomic.Int64

	httpRequests  metric.Int64Counter
	httpErrors    metric.Int64Counter
	httpLatency   metric.Float64Histogram
	indexDocs     metric.Int64Counter
	indexWords    metric.Int64Counter
	indexLatency  metric.Float64Histogram
	searchOps     metric.Int64Counter
	searchHits    metric.Int64Counter
	searchLatency metric.Float64Histogram
	completeOps   metric.Int64Counter

	documentGauge prometheus.Gauge
	nodeGauge     prometheus.Gauge
}

// New wires the instruments. When enabled is false the returned value records nothing.
func New(ctx context.Context, logger *slog.Logger, enabled bool) *Telemetry {
	t := &Telemetry{enabled: enabled, logger: logger}
	if !enabled {
		return t
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	exporter, err := prometheusotel.New(prometheusotel.WithRegisterer(registry))
	if err != nil {
		if logger != nil {
			logger.Error("failed to initialize prometheus exporter", "error", err)
		}
		t.enabled = false
		return t
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	meter := provider.Meter("triesearch")

	t.httpRequests, _ = meter.Int64Counter("http_requests_total", metric.WithDescription("Total HTTP requests"))
	t.httpErrors, _ = meter.Int64Counter("http_errors_total", metric.WithDescription("HTTP requests that returned an error status"))
	t.httpLatency, _ = meter.Float64Histogram("http_request_duration_ms", metric.WithDescription("Latency of HTTP requests in milliseconds"), metric.WithUnit("ms"))
	t.indexDocs, _ = meter.Int64Counter("index_documents_total", metric.WithDescription("Documents added to the index"))
	t.indexWords, _ = meter.Int64Counter("index_words_total", metric.WithDescription("Words inserted into document tries"))
	t.indexLatency, _ = meter.Float64Histogram("index_latency_ms", metric.WithDescription("Latency of index builds"), metric.WithUnit("ms"))
	t.searchOps, _ = meter.Int64Counter("search_requests_total", metric.WithDescription("Queries executed"))
	t.searchHits, _ = meter.Int64Counter("search_hits_total", metric.WithDescription("Hits produced by queries"))
	t.searchLatency, _ = meter.Float64Histogram("search_latency_ms", metric.WithDescription("Latency of queries"), metric.WithUnit("ms"))
	t.completeOps, _ = meter.Int64Counter("autocomplete_requests_total", metric.WithDescription("Autocomplete lookups"))

	t.documentGauge = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "triesearch", Name: "documents", Help: "Documents currently indexed"})
	t.nodeGauge = prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "triesearch", Name: "trie_nodes", Help: "Trie nodes currently allocated across all documents"})
	registry.MustRegister(t.documentGauge, t.nodeGauge)

	t.registry = registry
	t.metricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	t.provider = provider

	if logger != nil {
		logger.Info("telemetry initialized", "prometheus", true)
	}
	t.searchOps.Add(ctx, 0) // ensure metric is created eagerly
	return t
}

// Enabled reports whether instruments are live.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.enabled
}

// RecordRequest tracks one served HTTP request.
func (t *Telemetry) RecordRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	if !t.Enabled() {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)
	t.httpRequests.Add(ctx, 1, attrs)
	t.httpLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
	if status >= http.StatusBadRequest {
		t.httpErrors.Add(ctx, 1, attrs)
	}
}

// RecordIndexing tracks a completed index build.
func (t *Telemetry) RecordIndexing(ctx context.Context, documents, words int, duration time.Duration) {
	if !t.Enabled() {
		return
	}

	t.indexDocs.Add(ctx, int64(documents))
	t.indexWords.Add(ctx, int64(words))
	t.indexLatency.Record(ctx, float64(duration.Milliseconds()))
}

// ObserveIndex publishes the current index size.
func (t *Telemetry) ObserveIndex(documents, nodes int) {
	if !t.Enabled() {
		return
	}

	t.documentGauge.Set(float64(documents))
	t.nodeGauge.Set(float64(nodes))
}

// RecordSearch tracks one executed query.
func (t *Telemetry) RecordSearch(ctx context.Context, words, matchedDocs, hits int, duration time.Duration) {
	if !t.Enabled() {
		return
	}

	attrs := metric.WithAttributes(attribute.Int("query_words", words), attribute.Bool("matched", matchedDocs > 0))
	t.searchOps.Add(ctx, 1, attrs)
	t.searchHits.Add(ctx, int64(hits), attrs)
	t.searchLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	t.queries.Add(1)
}

// RecordAutocomplete tracks one autocomplete lookup.
func (t *Telemetry) RecordAutocomplete(ctx context.Context, found bool) {
	if !t.Enabled() {
		return
	}

	t.completeOps.Add(ctx, 1, metric.WithAttributes(attribute.String("found", strconv.FormatBool(found))))
	t.completions.Add(1)
}

// Counts returns how many queries and autocomplete lookups were recorded.
func (t *Telemetry) Counts() (queries, completions int64) {
	if t == nil {
		return 0, 0
	}
	return t.queries.Load(), t.completions.Load()
}

// Handler serves the Prometheus scrape output, or a small JSON body when disabled.
func (t *Telemetry) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Enabled() || t.registry == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"enabled":false}` + "\n"))
			return
		}
		t.metricsHandler.ServeHTTP(w, r)
	})
}

// Shutdown flushes and stops the meter provider.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if !t.Enabled() || t.provider == nil {
		return nil
	}
	return t.provider.Shutdown(ctx)
}

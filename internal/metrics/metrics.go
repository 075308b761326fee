// Package metrics exposes crawl counters to Prometheus.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/masahif/scopecrawl/internal/filter"
	"github.com/masahif/scopecrawl/internal/stats"
)

// PrometheusMetrics holds the crawl collectors on a private registry. It
// observes crawler events and counts checkpoint writes.
type PrometheusMetrics struct {
	// Crawler
	PagesFetched  *prometheus.CounterVec
	FetchDuration prometheus.Histogram
	FetchErrors   *prometheus.CounterVec
	QueueDepth    prometheus.Gauge
	VisitedURLs   prometheus.Gauge

	// Classifier
	URLsRejected  *prometheus.CounterVec
	LinksAccepted prometheus.Counter

	// Checkpoints
	CheckpointWrites   prometheus.Counter
	CheckpointFailures prometheus.Counter

	registry *prometheus.Registry
}

// NewMetrics registers the crawl metrics on a fresh registry
func NewMetrics() *PrometheusMetrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &PrometheusMetrics{
		PagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scopecrawl_pages_fetched_total",
				Help: "Total number of fetch attempts by status code",
			},
			[]string{"status_code"},
		),
		FetchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scopecrawl_fetch_duration_seconds",
				Help:    "Time taken to download a page",
				Buckets: prometheus.DefBuckets,
			},
		),
		FetchErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scopecrawl_fetch_errors_total",
				Help: "Fetches that produced no page, by reserved status code",
			},
			[]string{"status_code"},
		),
		QueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scopecrawl_queue_depth",
				Help: "URLs waiting in the frontier",
			},
		),
		VisitedURLs: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "scopecrawl_visited_urls",
				Help: "URLs in the visited set",
			},
		),

		URLsRejected: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scopecrawl_urls_rejected_total",
				Help: "Extracted URLs refused by the classifier",
			},
			[]string{"reason"},
		),
		LinksAccepted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scopecrawl_links_discovered_total",
				Help: "New URLs accepted into the frontier",
			},
		),

		CheckpointWrites: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scopecrawl_checkpoint_writes_total",
				Help: "Statistics checkpoints written",
			},
		),
		CheckpointFailures: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "scopecrawl_checkpoint_failures_total",
				Help: "Statistics checkpoints that failed to write",
			},
		),

		registry: reg,
	}
}

// Registry returns the registry the metrics are registered on
func (m *PrometheusMetrics) Registry() *prometheus.Registry { return m.registry }

// PageFetched counts one fetch attempt
func (m *PrometheusMetrics) PageFetched(status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.PagesFetched.WithLabelValues(code).Inc()
	m.FetchDuration.Observe(elapsed.Seconds())
	if status >= 600 && status < 700 {
		m.FetchErrors.WithLabelValues(code).Inc()
	}
}

// URLRejected counts one classifier rejection
func (m *PrometheusMetrics) URLRejected(reason filter.Reason) {
	m.URLsRejected.WithLabelValues(string(reason)).Inc()
}

// LinksDiscovered counts URLs newly accepted into the frontier
func (m *PrometheusMetrics) LinksDiscovered(n int) {
	m.LinksAccepted.Add(float64(n))
}

// FrontierSize records the frontier gauges
func (m *PrometheusMetrics) FrontierSize(queued, visited int) {
	m.QueueDepth.Set(float64(queued))
	m.VisitedURLs.Set(float64(visited))
}

// InstrumentStore counts checkpoint saves going through store
func (m *PrometheusMetrics) InstrumentStore(store stats.Store) stats.Store {
	return &instrumentedStore{Store: store, metrics: m}
}

type instrumentedStore struct {
	stats.Store
	metrics *PrometheusMetrics
}

func (s *instrumentedStore) Save(c stats.Checkpoint) error {
	if err := s.Store.Save(c); err != nil {
		s.metrics.CheckpointFailures.Inc()
		return err
	}
	s.metrics.CheckpointWrites.Inc()
	return nil
}

// Serve exposes /metrics on addr until ctx is done
func (m *PrometheusMetrics) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return m.serve(ctx, ln)
}

func (m *PrometheusMetrics) serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Metrics server starting", "addr", ln.Addr().String())
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

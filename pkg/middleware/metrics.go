package middleware

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/squid/pkg/artifact"
	"github.com/vango-dev/squid/pkg/routetree"
)

// MetricsConfig configures the Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "squid").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for request duration.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "squid",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors for the HTTP adapter and the
// build loop.
//
// Metrics collected:
//   - squid_requests_total: requests by route kind and status class
//   - squid_request_duration_seconds: request latency by route kind
//   - squid_module_errors_total: module load and contract failures by type
//   - squid_builds_total: builds by result
//   - squid_build_duration_seconds: build latency
//   - squid_routes: routes in the active tree
type Metrics struct {
	config MetricsConfig

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	moduleErrors    *prometheus.CounterVec
	buildsTotal     *prometheus.CounterVec
	buildDuration   prometheus.Histogram
	routes          prometheus.Gauge
}

// NewMetrics registers the collectors with the configured registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		config: config,

		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "requests_total",
			Help:        "Total number of HTTP requests by route kind and status class",
			ConstLabels: config.ConstLabels,
		}, []string{"kind", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "request_duration_seconds",
			Help:        "HTTP request duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"kind"}),

		moduleErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "module_errors_total",
			Help:        "Total number of route module failures by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),

		buildsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "builds_total",
			Help:        "Total number of builds by result",
			ConstLabels: config.ConstLabels,
		}, []string{"result"}),

		buildDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "build_duration_seconds",
			Help:        "Build duration in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		routes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "routes",
			Help:        "Number of routes in the active tree",
			ConstLabels: config.ConstLabels,
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if g, ok := m.config.Registry.(prometheus.Gatherer); ok {
		return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
	}
	return promhttp.Handler()
}

// Middleware counts and times every request. The route kind label is "none"
// unless the handler calls SetRouteKind.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		label := &routeLabel{kind: "none"}
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r.WithContext(context.WithValue(r.Context(), routeLabelKey{}, label)))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		kind := label.get()
		m.requestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		m.requestsTotal.WithLabelValues(kind, statusClass(status)).Inc()
	})
}

// RecordModuleError counts a failed module load or contract check.
func (m *Metrics) RecordModuleError(err error) {
	m.moduleErrors.WithLabelValues(categorizeError(err)).Inc()
}

// ObserveBuild records one build.
func (m *Metrics) ObserveBuild(d time.Duration, err error) {
	result := "success"
	if err != nil {
		result = "error"
	}
	m.buildsTotal.WithLabelValues(result).Inc()
	m.buildDuration.Observe(d.Seconds())
}

// SetRoutes records the route count of the active tree.
func (m *Metrics) SetRoutes(n int) {
	m.routes.Set(float64(n))
}

type routeLabelKey struct{}

type routeLabel struct {
	mu   sync.Mutex
	kind string
}

func (l *routeLabel) get() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.kind
}

// SetRouteKind labels the current request with the matched route kind:
// "page", "api", "static", "redirect" or "not_found".
func SetRouteKind(ctx context.Context, kind string) {
	if l, ok := ctx.Value(routeLabelKey{}).(*routeLabel); ok {
		l.mu.Lock()
		l.kind = kind
		l.mu.Unlock()
	}
}

func statusClass(code int) string {
	return strconv.Itoa(code/100) + "xx"
}

// categorizeError returns a low-cardinality label for a module error.
func categorizeError(err error) string {
	var (
		props  *routetree.MalformedPropsExportError
		module *routetree.MalformedModuleError
		load   *routetree.ModuleLoadError
	)
	switch {
	case stderrors.As(err, &props), stderrors.As(err, &module):
		return "malformed"
	case stderrors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case stderrors.Is(err, context.Canceled):
		return "canceled"
	case stderrors.Is(err, artifact.ErrNotFound):
		return "not_found"
	case stderrors.As(err, &load):
		return "load"
	default:
		return "internal"
	}
}

// Package metrics exposes negotiation and reload counters to Prometheus.
//
// Metrics collected (namespace "hxssr" by default):
//   - hxssr_responses_total: responses by negotiated mode
//   - hxssr_negotiate_duration_seconds: time to negotiate and render
//   - hxssr_reload_injections_total: responses that carried the reload trigger
//   - hxssr_errors_total: request errors by kind
//   - hxssr_handoffs_total: socket handoffs by result
//   - hxssr_handoff_duration_seconds: time from request to transfer
//   - hxssr_drain_timeouts_total: drains cut off by the grace period
//   - hxssr_generation: current reload generation (with TrackGeneration)
//
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the collectors.
type Config struct {
	Namespace   string
	Subsystem   string
	ConstLabels prometheus.Labels
	Buckets     []float64
	Registerer  prometheus.Registerer
	Gatherer    prometheus.Gatherer
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) Option {
	return func(c *Config) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the duration histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry registers into reg and serves from it.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registerer = reg
		c.Gatherer = reg
	}
}

func defaultConfig() Config {
	return Config{
		Namespace:  "hxssr",
		Buckets:    prometheus.DefBuckets,
		Registerer: prometheus.DefaultRegisterer,
		Gatherer:   prometheus.DefaultGatherer,
	}
}

// Metrics holds the collectors.
type Metrics struct {
	cfg Config

	responses        *prometheus.CounterVec
	negotiate        *prometheus.HistogramVec
	reloadInjections prometheus.Counter
	errors           *prometheus.CounterVec
	handoffs         *prometheus.CounterVec
	handoffDuration  prometheus.Histogram
	drainTimeouts    prometheus.Counter
}

// New creates and registers the collectors. Registering twice in the same
// registry panics, as with promauto.
func New(opts ...Option) *Metrics {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	factory := promauto.With(cfg.Registerer)

	return &Metrics{
		cfg: cfg,

		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "responses_total",
			Help:        "Responses written, by negotiated mode",
			ConstLabels: cfg.ConstLabels,
		}, []string{"mode"}),

		negotiate: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "negotiate_duration_seconds",
			Help:        "Time spent negotiating and rendering a response",
			ConstLabels: cfg.ConstLabels,
			Buckets:     cfg.Buckets,
		}, []string{"mode"}),

		reloadInjections: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "reload_injections_total",
			Help:        "Responses that carried the reload trigger",
			ConstLabels: cfg.ConstLabels,
		}),

		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "errors_total",
			Help:        "Request errors, by kind",
			ConstLabels: cfg.ConstLabels,
		}, []string{"kind"}),

		handoffs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "handoffs_total",
			Help:        "Socket handoffs, by result",
			ConstLabels: cfg.ConstLabels,
		}, []string{"result"}),

		handoffDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "handoff_duration_seconds",
			Help:        "Time from handoff request to socket transfer",
			ConstLabels: cfg.ConstLabels,
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}),

		drainTimeouts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   cfg.Namespace,
			Subsystem:   cfg.Subsystem,
			Name:        "drain_timeouts_total",
			Help:        "Drains that hit the grace period with connections still open",
			ConstLabels: cfg.ConstLabels,
		}),
	}
}

// Generationer reports the current reload generation.
type Generationer interface {
	Generation() uint64
}

// TrackGeneration exports src's generation as a gauge.
func (m *Metrics) TrackGeneration(src Generationer) {
	if m == nil {
		return
	}
	promauto.With(m.cfg.Registerer).NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   m.cfg.Namespace,
		Subsystem:   m.cfg.Subsystem,
		Name:        "generation",
		Help:        "Current reload generation",
		ConstLabels: m.cfg.ConstLabels,
	}, func() float64 {
		return float64(src.Generation())
	})
}

// ObserveResponse records one negotiated response.
func (m *Metrics) ObserveResponse(mode string, took time.Duration) {
	if m == nil {
		return
	}
	m.responses.WithLabelValues(mode).Inc()
	m.negotiate.WithLabelValues(mode).Observe(took.Seconds())
}

// ObserveReloadInjected records a response carrying the reload trigger.
func (m *Metrics) ObserveReloadInjected() {
	if m == nil {
		return
	}
	m.reloadInjections.Inc()
}

// ObserveError records a request error of the given kind.
func (m *Metrics) ObserveError(kind string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(kind).Inc()
}

// ObserveHandoff records a handoff outcome.
func (m *Metrics) ObserveHandoff(result string, took time.Duration) {
	if m == nil {
		return
	}
	m.handoffs.WithLabelValues(result).Inc()
	m.handoffDuration.Observe(took.Seconds())
}

// ObserveDrainTimeout records a drain cut off by the grace period.
func (m *Metrics) ObserveDrainTimeout() {
	if m == nil {
		return
	}
	m.drainTimeouts.Inc()
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.cfg.Gatherer, promhttp.HandlerOpts{})
}

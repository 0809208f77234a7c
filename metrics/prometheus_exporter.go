package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusExporter adapts a Registry into a prometheus.Collector so its
// counters, gauges, and histograms can be scraped alongside any other
// collector registered with the process's Prometheus registry.

// PrometheusConfig configures the Prometheus exporter.
type PrometheusConfig struct {
	// Namespace is an optional prefix prepended to all metric names
	// (e.g. "voteslistener" produces "voteslistener_listener_votes_received").
	Namespace string
	// EnableRuntime controls whether the standard Go runtime collectors
	// (goroutines, memory, GC) are registered alongside the registry metrics.
	EnableRuntime bool
	// Path is the HTTP path to serve metrics on (default "/metrics").
	Path string
}

// DefaultPrometheusConfig returns a config with sensible defaults.
func DefaultPrometheusConfig() PrometheusConfig {
	return PrometheusConfig{
		Namespace:     "voteslistener",
		EnableRuntime: true,
		Path:          "/metrics",
	}
}

// PrometheusExporter implements prometheus.Collector over a Registry and
// serves the process's metrics over HTTP in the standard exposition format.
type PrometheusExporter struct {
	config   PrometheusConfig
	registry *Registry
	promReg  *prometheus.Registry
}

// NewPrometheusExporter creates a new exporter that reads from the given
// Registry and registers itself (and, if enabled, the standard Go collectors)
// with a fresh prometheus.Registry.
func NewPrometheusExporter(registry *Registry, config PrometheusConfig) *PrometheusExporter {
	if config.Path == "" {
		config.Path = "/metrics"
	}

	pe := &PrometheusExporter{
		config:   config,
		registry: registry,
		promReg:  prometheus.NewRegistry(),
	}

	pe.promReg.MustRegister(pe)
	if config.EnableRuntime {
		pe.promReg.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
	}
	return pe
}

// Handler returns an http.Handler that serves the configured path using the
// standard promhttp handler.
func (pe *PrometheusExporter) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle(pe.config.Path, promhttp.HandlerFor(pe.promReg, promhttp.HandlerOpts{}))
	return mux
}

// Describe implements prometheus.Collector. The registry's metric set grows
// dynamically, so descriptors are unchecked rather than declared up front.
func (pe *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	// Intentionally empty: this collector is unchecked, see Collect.
}

// Collect implements prometheus.Collector, translating every metric
// currently registered in the Registry into a Prometheus sample.
func (pe *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	pe.registry.mu.RLock()
	defer pe.registry.mu.RUnlock()

	for name, c := range pe.registry.counters {
		desc := pe.desc(name, prometheus.CounterValue)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.CounterValue, float64(c.Value()))
	}
	for name, g := range pe.registry.gauges {
		desc := pe.desc(name, prometheus.GaugeValue)
		ch <- prometheus.MustNewConstMetric(desc, prometheus.GaugeValue, float64(g.Value()))
	}
	for name, h := range pe.registry.histograms {
		count := uint64(h.Count())
		// No bucket boundaries are tracked by Histogram, so this is exposed
		// as a summary with only the count and sum populated.
		desc := pe.desc(name, prometheus.GaugeValue)
		ch <- prometheus.MustNewConstSummary(desc, count, h.Sum(), nil)
	}
}

// desc builds a Prometheus descriptor for a dotted registry metric name.
func (pe *PrometheusExporter) desc(name string, valueType prometheus.ValueType) *prometheus.Desc {
	promName := pe.promName(name)
	help := name + " (" + valueTypeName(valueType) + ")"
	return prometheus.NewDesc(promName, help, nil, nil)
}

// promName converts a dot-separated metric name to Prometheus format: dots
// become underscores, and the namespace prefix is prepended.
func (pe *PrometheusExporter) promName(name string) string {
	sanitized := strings.ReplaceAll(name, ".", "_")
	sanitized = strings.ReplaceAll(sanitized, "-", "_")
	if pe.config.Namespace != "" {
		return pe.config.Namespace + "_" + sanitized
	}
	return sanitized
}

func valueTypeName(vt prometheus.ValueType) string {
	switch vt {
	case prometheus.CounterValue:
		return "counter"
	case prometheus.GaugeValue:
		return "gauge"
	default:
		return "untyped"
	}
}

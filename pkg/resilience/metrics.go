package resilience

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Counter wraps a prometheus CounterVec, exposing the unlabeled "value plus
// labeled map" shape spec §4.A describes.
type Counter struct {
	vec *prometheus.CounterVec
}

// Inc increments the counter with no labels.
func (c *Counter) Inc() { c.IncLabeled(nil) }

// IncLabeled increments the counter for the given label set. Unknown label
// names are ignored (zero value used) so callers never panic on a typo.
func (c *Counter) IncLabeled(labels map[string]string) {
	c.vec.With(normalizeLabels(c.vec, labels)).Inc()
}

// Value returns the total of every label combination observed so far.
func (c *Counter) Value() float64 {
	return sumCounterVec(c.vec)
}

// Histogram wraps a prometheus HistogramVec using spec §4.A's default
// bucket boundaries (seconds).
type Histogram struct {
	vec *prometheus.HistogramVec
}

// Observe records v (seconds) with no labels.
func (h *Histogram) Observe(v float64) { h.ObserveLabeled(nil, v) }

// ObserveLabeled records v (seconds) for the given label set.
func (h *Histogram) ObserveLabeled(labels map[string]string, v float64) {
	h.vec.With(normalizeLabelsHist(h.vec, labels)).Observe(v)
}

// Gauge wraps a prometheus GaugeVec.
type Gauge struct {
	vec *prometheus.GaugeVec
}

func (g *Gauge) Set(v float64) { g.vec.WithLabelValues().Set(v) }
func (g *Gauge) Inc()          { g.vec.WithLabelValues().Inc() }
func (g *Gauge) Dec()          { g.vec.WithLabelValues().Dec() }
func (g *Gauge) Get() float64  { return sumGaugeVec(g.vec) }

// DefaultHistogramBuckets matches spec §4.A's default bucket set, in seconds.
var DefaultHistogramBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60}

// Metrics is the process-wide registry of counters/histograms/gauges,
// backed by a private prometheus.Registry so tests stay hermetic.
type Metrics struct {
	reg *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*Counter
	histograms map[string]*Histogram
	gauges     map[string]*Gauge

	// RetryAttempts is the literal merlya_retry_attempts_total{function,attempt}
	// metric referenced by spec §4.A.
	RetryAttempts *Counter
}

// NewMetrics creates an empty registry and pre-registers RetryAttempts.
func NewMetrics() *Metrics {
	m := &Metrics{
		reg:        prometheus.NewRegistry(),
		counters:   make(map[string]*Counter),
		histograms: make(map[string]*Histogram),
		gauges:     make(map[string]*Gauge),
	}
	m.RetryAttempts = m.Counter("merlya_retry_attempts_total", "Real retry attempts (excludes first try).", "function", "attempt")
	return m
}

// Counter returns (creating if needed) a named counter with the given label
// names.
func (m *Metrics) Counter(name, help string, labelNames ...string) *Counter {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.counters[name]; ok {
		return c
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labelNames)
	m.reg.MustRegister(vec)
	c := &Counter{vec: vec}
	m.counters[name] = c
	return c
}

// Histogram returns (creating if needed) a named histogram using
// DefaultHistogramBuckets.
func (m *Metrics) Histogram(name, help string, labelNames ...string) *Histogram {
	m.mu.Lock()
	defer m.mu.Unlock()
	if h, ok := m.histograms[name]; ok {
		return h
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    name,
		Help:    help,
		Buckets: DefaultHistogramBuckets,
	}, labelNames)
	m.reg.MustRegister(vec)
	h := &Histogram{vec: vec}
	m.histograms[name] = h
	return h
}

// Gauge returns (creating if needed) a named, unlabeled gauge.
func (m *Metrics) Gauge(name, help string) *Gauge {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.gauges[name]; ok {
		return g
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, nil)
	m.reg.MustRegister(vec)
	g := &Gauge{vec: vec}
	m.gauges[name] = g
	return g
}

// Registry exposes the underlying prometheus.Registry, e.g. for
// promhttp.HandlerFor in pkg/api.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Dump renders a flat, deterministic summary for the `/metrics` command
// surface described in spec §6 — not the Prometheus exposition format
// (that's served over HTTP via Registry()), but a human-readable string.
func (m *Metrics) Dump() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	var names []string
	for n := range m.counters {
		names = append(names, "counter:"+n)
	}
	for n := range m.histograms {
		names = append(names, "histogram:"+n)
	}
	for n := range m.gauges {
		names = append(names, "gauge:"+n)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, n := range names {
		kind, name, _ := strings.Cut(n, ":")
		switch kind {
		case "counter":
			b.WriteString(name + " " + strconv.FormatFloat(m.counters[name].Value(), 'g', -1, 64) + "\n")
		case "gauge":
			b.WriteString(name + " " + strconv.FormatFloat(m.gauges[name].Get(), 'g', -1, 64) + "\n")
		case "histogram":
			b.WriteString(name + " (histogram)\n")
		}
	}
	return b.String()
}

func normalizeLabels(vec *prometheus.CounterVec, labels map[string]string) prometheus.Labels {
	return prometheus.Labels(labels)
}

func normalizeLabelsHist(vec *prometheus.HistogramVec, labels map[string]string) prometheus.Labels {
	return prometheus.Labels(labels)
}

func sumCounterVec(vec *prometheus.CounterVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()
	var total float64
	var pb dto.Metric
	for m := range ch {
		_ = m.Write(&pb)
		total += pb.GetCounter().GetValue()
	}
	return total
}

func sumGaugeVec(vec *prometheus.GaugeVec) float64 {
	ch := make(chan prometheus.Metric, 64)
	go func() {
		vec.Collect(ch)
		close(ch)
	}()
	var total float64
	var pb dto.Metric
	for m := range ch {
		_ = m.Write(&pb)
		total += pb.GetGauge().GetValue()
	}
	return total
}

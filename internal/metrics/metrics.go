package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

const namespace = "links_health"

// Metrics holds the monitor's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	passes            prometheus.Counter
	passesFailed      prometheus.Counter
	linksChecked      prometheus.Counter
	linksInaccessible prometheus.Counter
	backLinksMissing  prometheus.Counter
	passDuration      prometheus.Histogram
	lastPass          prometheus.Gauge
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_total",
			Help:      "Total number of link health passes.",
		}),
		passesFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "passes_failed_total",
			Help:      "Total number of link health passes that failed.",
		}),
		linksChecked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_checked_total",
			Help:      "Total number of friend links checked.",
		}),
		linksInaccessible: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_inaccessible_total",
			Help:      "Total number of checks where the friend site was not reachable.",
		}),
		backLinksMissing: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "back_links_missing_total",
			Help:      "Total number of checks where the friend page did not link back.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pass_duration_seconds",
			Help:      "Duration of link health passes.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		lastPass: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_pass_timestamp_seconds",
			Help:      "Unix time of the last finished pass.",
		}),
	}

	m.registry.MustRegister(
		m.passes,
		m.passesFailed,
		m.linksChecked,
		m.linksInaccessible,
		m.backLinksMissing,
		m.passDuration,
		m.lastPass,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObservePass records a finished pass
func (m *Metrics) ObservePass(d time.Duration, err error) {
	m.passes.Inc()
	if err != nil {
		m.passesFailed.Inc()
	}
	m.passDuration.Observe(d.Seconds())
	m.lastPass.SetToCurrentTime()
}

// ObserveLink records the outcome of one link check
func (m *Metrics) ObserveLink(accessible, containsOurLink bool) {
	m.linksChecked.Inc()
	if !accessible {
		m.linksInaccessible.Inc()
	}
	if !containsOurLink {
		m.backLinksMissing.Inc()
	}
}

// Handler serves the registry for Prometheus scrapes
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Families gathers the current metric families
func (m *Metrics) Families() ([]*dto.MetricFamily, error) {
	return m.registry.Gather()
}

// Snapshot renders the registry in the Prometheus text format
func (m *Metrics) Snapshot() (string, error) {
	families, err := m.Families()
	if err != nil {
		return "", fmt.Errorf("failed to gather metrics: %w", err)
	}

	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return buf.String(), nil
}

// Summary returns the monitor's own counters keyed by metric name
func (m *Metrics) Summary() (map[string]float64, error) {
	families, err := m.Families()
	if err != nil {
		return nil, fmt.Errorf("failed to gather metrics: %w", err)
	}

	out := make(map[string]float64)
	for _, mf := range families {
		if len(mf.GetMetric()) == 0 {
			continue
		}
		metric := mf.GetMetric()[0]
		switch mf.GetType() {
		case dto.MetricType_COUNTER:
			out[mf.GetName()] = metric.GetCounter().GetValue()
		case dto.MetricType_GAUGE:
			out[mf.GetName()] = metric.GetGauge().GetValue()
		case dto.MetricType_HISTOGRAM:
			out[mf.GetName()+"_count"] = float64(metric.GetHistogram().GetSampleCount())
			out[mf.GetName()+"_sum"] = metric.GetHistogram().GetSampleSum()
		}
	}
	return out, nil
}

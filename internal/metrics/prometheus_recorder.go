package metrics

import (
	"net/http"
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once           sync.Once
	registry       *prom.Registry
	cacheLookups   *prom.CounterVec
	executions     *prom.CounterVec
	renderDuration *prom.HistogramVec
	buildDuration  prom.Histogram
	buildOutcome   *prom.CounterVec
	mergedChapters *prom.GaugeVec
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{registry: reg}
	pr.once.Do(func() {
		pr.cacheLookups = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bookbinder",
			Name:      "freeze_lookups_total",
			Help:      "Freeze cache lookups by outcome",
		}, []string{"format", "outcome"})
		pr.executions = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bookbinder",
			Name:      "executions_total",
			Help:      "Document executions by result",
		}, []string{"format", "result"})
		pr.renderDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "bookbinder",
			Name:      "render_duration_seconds",
			Help:      "Duration of external renderer invocations",
			Buckets:   prom.DefBuckets,
		}, []string{"format"})
		pr.buildDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "bookbinder",
			Name:      "build_duration_seconds",
			Help:      "Total build duration",
			Buckets:   prom.DefBuckets,
		})
		pr.buildOutcome = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "bookbinder",
			Name:      "build_outcomes_total",
			Help:      "Build outcomes by final status",
		}, []string{"outcome"})
		pr.mergedChapters = prom.NewGaugeVec(prom.GaugeOpts{
			Namespace: "bookbinder",
			Name:      "merged_chapters",
			Help:      "Chapter count of the last merged document per format",
		}, []string{"format"})
		reg.MustRegister(pr.cacheLookups, pr.executions, pr.renderDuration,
			pr.buildDuration, pr.buildOutcome, pr.mergedChapters)
	})
	return pr
}

// Handler exposes the recorder's registry over HTTP.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

func (p *PrometheusRecorder) IncCacheLookup(format string, outcome CacheOutcome) {
	if p == nil || p.cacheLookups == nil {
		return
	}
	p.cacheLookups.WithLabelValues(format, string(outcome)).Inc()
}

func (p *PrometheusRecorder) IncExecution(format string, success bool) {
	if p == nil || p.executions == nil {
		return
	}
	res := "failed"
	if success {
		res = "success"
	}
	p.executions.WithLabelValues(format, res).Inc()
}

func (p *PrometheusRecorder) ObserveRenderDuration(format string, d time.Duration) {
	if p == nil || p.renderDuration == nil {
		return
	}
	p.renderDuration.WithLabelValues(format).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveBuildDuration(d time.Duration) {
	if p == nil || p.buildDuration == nil {
		return
	}
	p.buildDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncBuildOutcome(outcome string) {
	if p == nil || p.buildOutcome == nil {
		return
	}
	p.buildOutcome.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) SetMergedChapters(format string, n int) {
	if p == nil || p.mergedChapters == nil {
		return
	}
	p.mergedChapters.WithLabelValues(format).Set(float64(n))
}

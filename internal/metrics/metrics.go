// Package metrics records service call outcomes.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives one observation per service operation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Nop discards every observation.
type Nop struct{}

func (Nop) Observe(context.Context, string, bool, time.Duration) {}

// Prometheus counts calls and their latency per operation and data source.
type Prometheus struct {
	source   string
	calls    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	registry *prometheus.Registry
}

// NewPrometheus builds a recorder on its own registry. Use ForSource to get
// recorders labelled per data source that share the same collectors.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	p := &Prometheus{
		registry: reg,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "projectdesk",
			Name:      "service_calls_total",
			Help:      "Service operations by data source, operation and result.",
		}, []string{"source", "operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "projectdesk",
			Name:      "service_call_duration_seconds",
			Help:      "Service operation latency by data source and operation.",
			Buckets:   []float64{.005, .025, .1, .3, .5, .8, 1, 2.5, 5, 10},
		}, []string{"source", "operation"}),
	}
	reg.MustRegister(p.calls, p.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

// ForSource returns a recorder writing to the same collectors with the given
// source label.
func (p *Prometheus) ForSource(source string) *Prometheus {
	out := *p
	out.source = source
	return &out
}

// Observe records a service operation outcome.
func (p *Prometheus) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	p.calls.WithLabelValues(p.source, operation, result).Inc()
	p.duration.WithLabelValues(p.source, operation).Observe(duration.Seconds())
}

func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Since is a helper for deferred observations:
//
//	defer metrics.Since(ctx, rec, "projects.search", time.Now(), &err)
func Since(ctx context.Context, rec Recorder, operation string, start time.Time, err *error) {
	if rec == nil {
		return
	}
	ok := err == nil || *err == nil
	rec.Observe(ctx, operation, ok, time.Since(start))
}

// Package prompush implements a Prometheus Pushgateway backend for the
// metrics package.
//
// A one-shot CLI run has nothing to scrape, so the collected registry is
// pushed to a Pushgateway on Flush. The job name is the Pushgateway grouping
// key, which is why "job" is not a collector label.
package prompush

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"ruian/internal/metrics"
)

// Backend is a Prometheus Pushgateway metrics backend.
type Backend struct {
	gatewayURL string
	jobName    string
	reg        *prometheus.Registry

	stepCounter   *prometheus.CounterVec   // step, status
	stepDuration  *prometheus.HistogramVec // step, status
	recordCounter *prometheus.CounterVec   // kind
	entryCounter  *prometheus.CounterVec   // status
	byteCounter   prometheus.Counter
}

// NewBackend constructs a backend pushing to gatewayURL under jobName
// (default "ruian").
func NewBackend(jobName, gatewayURL string) (*Backend, error) {
	if gatewayURL == "" {
		return nil, fmt.Errorf("prompush: gateway URL is required")
	}
	if jobName == "" {
		jobName = "ruian"
	}

	b := &Backend{
		gatewayURL: gatewayURL,
		jobName:    jobName,
		reg:        prometheus.NewRegistry(),
		stepCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.StepTotal,
			Help: "Run step executions by step and status.",
		}, []string{"step", "status"}),
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    metrics.StepDurationSeconds,
			Help:    "Run step duration in seconds by step and status.",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"step", "status"}),
		recordCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.RecordsTotal,
			Help: "Records by kind (parsed, discarded).",
		}, []string{"kind"}),
		entryCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metrics.EntriesTotal,
			Help: "Archive entries processed by status.",
		}, []string{"status"}),
		byteCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: metrics.BytesTotal,
			Help: "Decompressed entry bytes read.",
		}),
	}

	for _, c := range []prometheus.Collector{b.stepCounter, b.stepDuration, b.recordCounter, b.entryCounter, b.byteCounter} {
		if err := b.reg.Register(c); err != nil {
			return nil, fmt.Errorf("prompush: register collector: %w", err)
		}
	}
	return b, nil
}

func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	switch name {
	case metrics.StepTotal:
		if b.stepCounter != nil {
			b.stepCounter.WithLabelValues(labels["step"], labels["status"]).Add(delta)
		}
	case metrics.RecordsTotal:
		if b.recordCounter != nil {
			b.recordCounter.WithLabelValues(labels["kind"]).Add(delta)
		}
	case metrics.EntriesTotal:
		if b.entryCounter != nil {
			b.entryCounter.WithLabelValues(labels["status"]).Add(delta)
		}
	case metrics.BytesTotal:
		if b.byteCounter != nil {
			b.byteCounter.Add(delta)
		}
	}
}

func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if name != metrics.StepDurationSeconds || b.stepDuration == nil {
		return
	}
	b.stepDuration.WithLabelValues(labels["step"], labels["status"]).Observe(value)
}

// Flush pushes the registry to the Pushgateway, replacing the job's group.
func (b *Backend) Flush() error {
	return push.New(b.gatewayURL, b.jobName).Gatherer(b.reg).Push()
}

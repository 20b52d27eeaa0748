package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/onionwatch/onionwatch/internal/progress"
)

// PrometheusSink exports probe and scan outcome metrics. It owns all
// collectors for the tracking pipeline.
type PrometheusSink struct {
	probesTotal   *prometheus.CounterVec
	scansTotal    *prometheus.CounterVec
	probeDuration prometheus.Histogram
	batchesTotal  prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		probesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onionwatch_probes_total",
			Help: "Liveness probes partitioned by outcome.",
		}, []string{"outcome"}),
		scansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "onionwatch_scans_total",
			Help: "Content scans partitioned by outcome.",
		}, []string{"outcome"}),
		probeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "onionwatch_probe_duration_seconds",
			Help:    "Probe latency including proxy round trips.",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "onionwatch_probe_batches_total",
			Help: "Reporting batches flushed by the progress hub.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.probesTotal,
		s.scansTotal,
		s.probeDuration,
		s.batchesTotal,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors using the provided batch. It is safe for
// concurrent use.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	sawProbe := false
	for _, evt := range batch {
		switch evt.Kind {
		case progress.KindProbe:
			sawProbe = true
			s.probesTotal.WithLabelValues(string(evt.Outcome)).Inc()
			if evt.Dur > 0 {
				s.probeDuration.Observe(evt.Dur.Seconds())
			}
		case progress.KindScan:
			s.scansTotal.WithLabelValues(string(evt.Outcome)).Inc()
		}
	}
	if sawProbe {
		s.batchesTotal.Inc()
	}
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

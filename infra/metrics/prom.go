package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/evsense/core/metrics"
)

// PromSink records run, stage and artifact fetch metrics in Prometheus.
type PromSink struct {
	runs         *prometheus.CounterVec
	runLatency   *prometheus.HistogramVec
	stages       *prometheus.HistogramVec
	fetches      *prometheus.CounterVec
	fetchBytes   prometheus.Counter
	fetchLatency prometheus.Histogram
}

var (
	_ coremetrics.MetricsSink   = (*PromSink)(nil)
	_ coremetrics.StageRecorder = (*PromSink)(nil)
	_ coremetrics.FetchRecorder = (*PromSink)(nil)
)

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evsense_runs_total",
		Help: "Analysis runs by telemetry source, outcome and error kind",
	}, []string{"source", "outcome", "kind"})); err != nil {
		return nil, err
	}
	if s.runLatency, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evsense_run_duration_seconds",
		Help:    "Duration of an analysis run from reading acquisition to advisories",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})); err != nil {
		return nil, err
	}
	if s.stages, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "evsense_stage_duration_seconds",
		Help:    "Duration of one pipeline stage including predictor resolution",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage", "outcome"})); err != nil {
		return nil, err
	}
	if s.fetches, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "evsense_artifact_fetches_total",
		Help: "Artifact downloads from the model repository",
	}, []string{"artifact", "outcome"})); err != nil {
		return nil, err
	}
	if s.fetchBytes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evsense_artifact_fetch_bytes_total",
		Help: "Bytes downloaded from the model repository",
	})); err != nil {
		return nil, err
	}
	if s.fetchLatency, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evsense_artifact_fetch_duration_seconds",
		Help:    "Duration of artifact downloads",
		Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register returns the already registered collector when c is a duplicate.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func outcome(failed bool) string {
	if failed {
		return coremetrics.OutcomeFailure
	}
	return coremetrics.OutcomeSuccess
}

// RecordRun counts the run and observes its duration.
func (s *PromSink) RecordRun(ev coremetrics.RunEvent) error {
	out := ev.Outcome
	if out == "" {
		out = outcome(ev.ErrorKind != "")
	}
	s.runs.WithLabelValues(ev.Source, out, ev.ErrorKind).Inc()
	s.runLatency.WithLabelValues(out).Observe(ev.Duration.Seconds())
	return nil
}

// RecordStage observes the stage duration.
func (s *PromSink) RecordStage(ev coremetrics.StageEvent) error {
	s.stages.WithLabelValues(ev.Stage, outcome(ev.Err != "")).Observe(ev.Duration.Seconds())
	return nil
}

// RecordFetch counts the download and its size.
func (s *PromSink) RecordFetch(ev coremetrics.FetchEvent) error {
	s.fetches.WithLabelValues(ev.Artifact, outcome(ev.Err != "")).Inc()
	if ev.Bytes > 0 {
		s.fetchBytes.Add(float64(ev.Bytes))
	}
	s.fetchLatency.Observe(ev.Duration.Seconds())
	return nil
}

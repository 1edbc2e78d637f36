package app

import (
	"fmt"
	"time"

	"github.com/kilianp07/evsense/config"
	coremetrics "github.com/kilianp07/evsense/core/metrics"
	"github.com/kilianp07/evsense/core/pipeline"
	"github.com/kilianp07/evsense/infra/artifact"
	"github.com/kilianp07/evsense/infra/logger"
)

// Components are the long-lived pieces built from the configuration.
type Components struct {
	Registry *artifact.Registry
	Sink     coremetrics.MetricsSink
	Pipeline *pipeline.Orchestrator
	Service  *Service
}

// Build assembles the artifact registry, the metrics sink, the orchestrator
// and the analysis service. The telemetry and metrics backends must already
// be registered, which importing infra/telemetry and infra/metrics does.
func Build(cfg *config.Config) (*Components, error) {
	if err := cfg.Artifacts.Validate(); err != nil {
		return nil, err
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	reg, err := NewRegistry(cfg.Artifacts, sink)
	if err != nil {
		return nil, err
	}
	orch := pipeline.New(reg, cfg.Pipeline, logger.New("pipeline"))
	if rec, ok := sink.(coremetrics.StageRecorder); ok {
		orch.SetRecorder(rec)
	}
	svc := New(orch, ConfigSources(cfg.Telemetry), cfg.Telemetry.Mode, sink, logger.New("analysis"))
	return &Components{Registry: reg, Sink: sink, Pipeline: orch, Service: svc}, nil
}

// NewRegistry builds the artifact registry described by cfg. sink receives
// fetch events when it implements coremetrics.FetchRecorder.
func NewRegistry(cfg config.ArtifactsConfig, sink coremetrics.MetricsSink) (*artifact.Registry, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	cache, err := artifact.NewDiskCache(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("artifact cache: %w", err)
	}
	fetcher, err := artifact.NewHTTPFetcher(cfg.BaseURL, timeout, nil)
	if err != nil {
		return nil, fmt.Errorf("artifact fetcher: %w", err)
	}
	opts := []artifact.Option{
		artifact.WithFetchTimeout(timeout),
		artifact.WithLogger(logger.New("artifacts")),
	}
	if rec, ok := sink.(coremetrics.FetchRecorder); ok {
		opts = append(opts, artifact.WithRecorder(rec))
	}
	reg, err := artifact.NewRegistry(cfg.StageFiles(), fetcher, cache, opts...)
	if err != nil {
		return nil, fmt.Errorf("artifact registry: %w", err)
	}
	return reg, nil
}

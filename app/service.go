// Package app wires a telemetry source, the inference pipeline and the
// advisory engine into one analysis run.
package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/evsense/config"
	"github.com/kilianp07/evsense/core/advisory"
	"github.com/kilianp07/evsense/core/logger"
	coremetrics "github.com/kilianp07/evsense/core/metrics"
	"github.com/kilianp07/evsense/core/model"
	coremon "github.com/kilianp07/evsense/core/monitoring"
	"github.com/kilianp07/evsense/core/pipeline"
	"github.com/kilianp07/evsense/core/telemetry"
	inflogger "github.com/kilianp07/evsense/infra/logger"
)

// Request triggers one analysis. Source selects "simulated" or "live"; an
// empty value uses the configured mode. Reading overrides individual fields
// of the simulated reading.
type Request struct {
	Source  string         `json:"source"`
	Reading map[string]any `json:"reading,omitempty"`
}

// Report is the outcome of a successful run.
type Report struct {
	RunID      string               `json:"run_id"`
	Source     string               `json:"source"`
	Result     model.PipelineResult `json:"result"`
	Advisories advisory.Set         `json:"advisories"`
}

// SourceFactory builds the telemetry source for one run.
type SourceFactory func(mode string, overrides map[string]any) (telemetry.Source, error)

// ConfigSources returns a SourceFactory backed by the telemetry section.
// Overrides are only accepted for the simulated source.
func ConfigSources(cfg config.TelemetryConfig) SourceFactory {
	return func(mode string, overrides map[string]any) (telemetry.Source, error) {
		mod := cfg.Module(mode)
		switch mod.Type {
		case telemetry.ModeSimulated, telemetry.ModeLive:
		default:
			return nil, fmt.Errorf("%w: unknown source %q", model.ErrValidation, mod.Type)
		}
		if len(overrides) > 0 {
			if mod.Type != telemetry.ModeSimulated {
				return nil, fmt.Errorf("%w: reading overrides require the simulated source", model.ErrValidation)
			}
			maps.Copy(mod.Conf, overrides)
		}
		src, err := telemetry.NewSource(mod)
		if err != nil && len(overrides) > 0 {
			return nil, fmt.Errorf("%w: %v", model.ErrValidation, err)
		}
		return src, err
	}
}

// Service runs analyses one at a time.
type Service struct {
	orch    *pipeline.Orchestrator
	sources SourceFactory
	mode    string
	sink    coremetrics.MetricsSink
	log     logger.Logger

	mu    sync.Mutex
	now   func() time.Time
	newID func() string
}

// New creates a Service. mode is the default source used when a request does
// not name one. A nil sink records nothing.
func New(orch *pipeline.Orchestrator, sources SourceFactory, mode string, sink coremetrics.MetricsSink, log logger.Logger) *Service {
	if sink == nil {
		sink = coremetrics.NopSink{}
	}
	if mode == "" {
		mode = telemetry.ModeSimulated
	}
	if log == nil {
		log = inflogger.NopLogger{}
	}
	return &Service{
		orch:    orch,
		sources: sources,
		mode:    mode,
		sink:    sink,
		log:     log,
		now:     time.Now,
		newID:   func() string { return uuid.NewString() },
	}
}

// Analyze acquires one reading, runs every stage on it and derives the
// advisories. When the reading cannot be acquired no stage is started. Runs
// are serialized.
func (s *Service) Analyze(ctx context.Context, req Request) (Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	mode := req.Source
	if mode == "" {
		mode = s.mode
	}
	runID := s.newID()
	start := s.now()

	rep, err := s.analyze(ctx, runID, mode, req.Reading)
	s.finish(runID, mode, start, err)
	if err != nil {
		return Report{}, err
	}
	return rep, nil
}

func (s *Service) analyze(ctx context.Context, runID, mode string, overrides map[string]any) (Report, error) {
	src, err := s.sources(mode, overrides)
	if err != nil {
		return Report{}, err
	}
	r, err := src.Reading(ctx)
	if err != nil {
		return Report{}, err
	}
	res, err := s.orch.Run(ctx, runID, r)
	if err != nil {
		return Report{}, err
	}
	return Report{
		RunID:      runID,
		Source:     mode,
		Result:     res,
		Advisories: advisory.Advise(res, r.TargetDistance),
	}, nil
}

func (s *Service) finish(runID, mode string, start time.Time, err error) {
	ev := coremetrics.RunEvent{
		RunID:    runID,
		Source:   mode,
		Outcome:  coremetrics.OutcomeSuccess,
		Duration: s.now().Sub(start),
		Time:     s.now(),
	}
	if err != nil {
		ev.Outcome = coremetrics.OutcomeFailure
		ev.ErrorKind = model.KindOf(err)
		ev.Stage = model.StageOf(err).String()
		// Cancellation is the caller's choice, not a failure worth reporting.
		if !errors.Is(err, context.Canceled) {
			coremon.CaptureException(err, map[string]string{
				"kind":   ev.ErrorKind,
				"stage":  ev.Stage,
				"source": mode,
				"run_id": runID,
			})
		}
		s.log.Warnf("run %s failed (%s): %v", runID, model.Describe(err), err)
	} else {
		s.log.Infow("run finished", map[string]any{"run_id": runID, "source": mode, "duration_ms": ev.Duration.Milliseconds()})
	}
	if rerr := s.sink.RecordRun(ev); rerr != nil {
		s.log.Warnf("record run %s: %v", runID, rerr)
	}
}

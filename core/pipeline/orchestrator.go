package pipeline

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/evsense/core/artifact"
	"github.com/kilianp07/evsense/core/logger"
	"github.com/kilianp07/evsense/core/metrics"
	"github.com/kilianp07/evsense/core/model"
)

// Config controls stage scheduling.
type Config struct {
	// Sequential runs the stages one after another instead of fanning out the
	// independent ones.
	Sequential bool `json:"sequential"`
}

// Orchestrator sequences the inference stages for one reading at a time.
type Orchestrator struct {
	reg      artifact.Registry
	cfg      Config
	log      logger.Logger
	bus      Publisher
	recorder metrics.StageRecorder
	tracer   trace.Tracer
	now      func() time.Time
}

// New creates an Orchestrator resolving predictors through reg.
func New(reg artifact.Registry, cfg Config, log logger.Logger) *Orchestrator {
	return &Orchestrator{
		reg:    reg,
		cfg:    cfg,
		log:    log,
		tracer: otel.Tracer("github.com/kilianp07/evsense/core/pipeline"),
		now:    time.Now,
	}
}

// SetPublisher attaches a stage event publisher.
func (o *Orchestrator) SetPublisher(p Publisher) { o.bus = p }

// SetRecorder attaches a stage metrics recorder.
func (o *Orchestrator) SetRecorder(r metrics.StageRecorder) { o.recorder = r }

// Run executes all stages for r. It returns either a complete result or the
// first stage error; partial outputs are discarded.
func (o *Orchestrator) Run(ctx context.Context, runID string, r model.SensorReading) (model.PipelineResult, error) {
	if err := r.Validate(); err != nil {
		return model.PipelineResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.PipelineResult{}, err
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("run_id", runID),
		attribute.Bool("sequential", o.cfg.Sequential),
	))
	defer span.End()

	var (
		out model.PipelineResult
		err error
	)
	if o.cfg.Sequential {
		out, err = o.runSequential(ctx, runID, r)
	} else {
		out, err = o.runConcurrent(ctx, runID, r)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, model.KindOf(err))
		return model.PipelineResult{}, err
	}
	return out, nil
}

func (o *Orchestrator) runConcurrent(ctx context.Context, runID string, r model.SensorReading) (model.PipelineResult, error) {
	var soc, low, rng, dis, health float64
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := o.stage(gctx, runID, model.StageSoC, socInputs(r))
		if err != nil {
			return err
		}
		soc = v
		v, err = o.stage(gctx, runID, model.StageRange, rangeInputs(soc, r))
		if err != nil {
			return err
		}
		rng = v
		return nil
	})
	g.Go(func() error {
		v, err := o.stage(gctx, runID, model.StageLowBattery, lowBatteryInputs(r))
		low = v
		return err
	})
	g.Go(func() error {
		v, err := o.stage(gctx, runID, model.StageDischarge, dischargeInputs(r))
		dis = v
		return err
	})
	g.Go(func() error {
		v, err := o.stage(gctx, runID, model.StageHealth, healthInputs(r))
		health = v
		return err
	})
	if err := g.Wait(); err != nil {
		return model.PipelineResult{}, err
	}
	return assemble(r, soc, low, rng, dis, health), nil
}

func (o *Orchestrator) runSequential(ctx context.Context, runID string, r model.SensorReading) (model.PipelineResult, error) {
	var soc, low, rng, dis, health float64
	for _, st := range model.Stages {
		var x []float64
		switch st {
		case model.StageSoC:
			x = socInputs(r)
		case model.StageLowBattery:
			x = lowBatteryInputs(r)
		case model.StageRange:
			x = rangeInputs(soc, r)
		case model.StageDischarge:
			x = dischargeInputs(r)
		case model.StageHealth:
			x = healthInputs(r)
		}
		v, err := o.stage(ctx, runID, st, x)
		if err != nil {
			return model.PipelineResult{}, err
		}
		switch st {
		case model.StageSoC:
			soc = v
		case model.StageLowBattery:
			low = v
		case model.StageRange:
			rng = v
		case model.StageDischarge:
			dis = v
		case model.StageHealth:
			health = v
		}
	}
	return assemble(r, soc, low, rng, dis, health), nil
}

// stage resolves the predictor, invokes it once and releases it.
func (o *Orchestrator) stage(ctx context.Context, runID string, st model.StageName, x []float64) (v float64, err error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	ctx, span := o.tracer.Start(ctx, "pipeline.stage", trace.WithAttributes(attribute.String("stage", st.String())))
	start := o.now()
	o.publish(Event{RunID: runID, Type: StageStarted, Stage: st, Time: start})
	defer func() {
		d := o.now().Sub(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, model.KindOf(err))
		}
		span.End()
		o.publish(Event{RunID: runID, Type: StageFinished, Stage: st, Duration: d, Err: err, Time: o.now()})
		o.record(runID, st, d, err)
	}()

	p, err := o.reg.Resolve(ctx, st)
	if err != nil {
		return 0, &model.StageError{Stage: st, Err: err}
	}
	defer o.reg.Release(st)

	y, err := p.Predict(ctx, x)
	if err != nil {
		return 0, &model.ModelError{Stage: st, Err: err}
	}
	return normalize(st, y)
}

func (o *Orchestrator) publish(ev Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}

func (o *Orchestrator) record(runID string, st model.StageName, d time.Duration, err error) {
	if o.log != nil {
		fields := map[string]any{"run_id": runID, "stage": st.String(), "duration_ms": d.Milliseconds()}
		if err != nil {
			fields["error"] = err.Error()
		}
		o.log.Debugw("stage finished", fields)
	}
	if o.recorder == nil {
		return
	}
	ev := metrics.StageEvent{RunID: runID, Stage: st.String(), Duration: d, Time: o.now()}
	if err != nil {
		ev.Err = model.KindOf(err)
	}
	if rerr := o.recorder.RecordStage(ev); rerr != nil && o.log != nil {
		o.log.Warnf("record stage %s: %v", st, rerr)
	}
}

func assemble(r model.SensorReading, soc, low, rng, dis, health float64) model.PipelineResult {
	return model.PipelineResult{
		Reading:        r,
		StateOfCharge:  soc,
		LowBattery:     low == 1,
		RangeKm:        rng,
		DischargeFault: dis == 1,
		HealthScore:    health,
	}
}

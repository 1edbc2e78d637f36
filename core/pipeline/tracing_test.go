package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/core/predictor"
)

func tracedOrchestrator(t *testing.T, reg *fakeRegistry) (*Orchestrator, *tracetest.SpanRecorder) {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	o := New(reg, Config{Sequential: true}, nil)
	o.tracer = tp.Tracer("test")
	return o, sr
}

func TestRun_StageSpans(t *testing.T) {
	o, sr := tracedOrchestrator(t, newFakeRegistry())
	_, err := o.Run(context.Background(), "run-span", reading())
	require.NoError(t, err)

	spans := sr.Ended()
	require.Len(t, spans, 6)
	var stages []string
	for _, s := range spans {
		if s.Name() != "pipeline.stage" {
			assert.Equal(t, "pipeline.run", s.Name())
			continue
		}
		for _, kv := range s.Attributes() {
			if kv.Key == attribute.Key("stage") {
				stages = append(stages, kv.Value.AsString())
			}
		}
	}
	assert.Equal(t, []string{"soc", "low_battery", "range", "discharge", "health"}, stages)
}

func TestRun_FailedStageSpanStatus(t *testing.T) {
	reg := newFakeRegistry()
	reg.preds[model.StageHealth] = &predictor.Stub{Err: errors.New("bad input")}
	o, sr := tracedOrchestrator(t, reg)
	_, err := o.Run(context.Background(), "run-fail", reading())
	require.ErrorIs(t, err, model.ErrModel)

	for _, s := range sr.Ended() {
		if s.Name() == "pipeline.run" {
			assert.Equal(t, codes.Error, s.Status().Code)
			assert.Equal(t, model.KindModel, s.Status().Description)
		}
	}
}

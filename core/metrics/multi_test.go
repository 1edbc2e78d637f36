package metrics

import (
	"errors"
	"testing"

	"github.com/kilianp07/evsense/core/factory"
)

type recordSink struct {
	runs, stages, fetches int
	err                   error
}

func (r *recordSink) RecordRun(RunEvent) error { r.runs++; return r.err }

func (r *recordSink) RecordStage(StageEvent) error { r.stages++; return nil }

func (r *recordSink) RecordFetch(FetchEvent) error { r.fetches++; return nil }

type runOnly struct{ runs int }

func (r *runOnly) RecordRun(RunEvent) error { r.runs++; return nil }

func TestMultiSink(t *testing.T) {
	s1 := &recordSink{}
	s2 := &runOnly{}
	m := NewMultiSink(s1, s2)
	if err := m.RecordRun(RunEvent{Outcome: OutcomeSuccess}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if err := m.RecordStage(StageEvent{Stage: "soc"}); err != nil {
		t.Fatalf("record stage: %v", err)
	}
	if err := m.RecordFetch(FetchEvent{Artifact: "soc_model.json"}); err != nil {
		t.Fatalf("record fetch: %v", err)
	}
	if s1.runs != 1 || s1.stages != 1 || s1.fetches != 1 || s2.runs != 1 {
		t.Fatalf("records not forwarded: %+v %+v", s1, s2)
	}
}

func TestMultiSink_ErrorDoesNotStopDelivery(t *testing.T) {
	boom := errors.New("boom")
	s1 := &recordSink{err: boom}
	s2 := &recordSink{}
	if err := NewMultiSink(s1, s2).RecordRun(RunEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected boom got %v", err)
	}
	if s2.runs != 1 {
		t.Fatalf("second sink should still receive the run")
	}
}

func TestNewMetricsSink(t *testing.T) {
	s, err := NewMetricsSink(nil)
	if err != nil {
		t.Fatalf("empty config: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink got %T", s)
	}
	if err := RegisterMetricsSink("test-record", func(map[string]any) (MetricsSink, error) { return &recordSink{}, nil }); err != nil {
		t.Fatalf("register: %v", err)
	}
	s, err = NewMetricsSink([]factory.ModuleConfig{{Type: "test-record"}, {Type: "test-record"}})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ms, ok := s.(*MultiSink); !ok || len(ms.Sinks) != 2 {
		t.Fatalf("expected MultiSink with 2 sinks got %T", s)
	}
	if _, err := NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}}); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

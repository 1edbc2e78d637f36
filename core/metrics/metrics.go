package metrics

import "time"

// Run outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// RunEvent summarizes one analysis run. It never carries sensor values or
// predictions, only the outcome and timing.
type RunEvent struct {
	RunID     string
	Source    string
	Outcome   string
	ErrorKind string
	Stage     string
	Duration  time.Duration
	Time      time.Time
}

// MetricsSink records analysis runs for observability purposes.
type MetricsSink interface {
	RecordRun(ev RunEvent) error
}

// StageEvent captures the execution of one pipeline stage.
type StageEvent struct {
	RunID    string
	Stage    string
	Duration time.Duration
	Err      string
	Time     time.Time
}

// StageRecorder records stage executions.
type StageRecorder interface {
	RecordStage(ev StageEvent) error
}

// FetchEvent describes one artifact download from the remote repository.
type FetchEvent struct {
	Artifact string
	Bytes    int64
	Duration time.Duration
	Err      string
	Time     time.Time
}

// FetchRecorder records artifact downloads.
type FetchRecorder interface {
	RecordFetch(ev FetchEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunEvent) error     { return nil }
func (NopSink) RecordStage(StageEvent) error { return nil }
func (NopSink) RecordFetch(FetchEvent) error { return nil }

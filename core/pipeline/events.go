package pipeline

import (
	"time"

	"github.com/kilianp07/evsense/core/model"
)

// EventType distinguishes stage lifecycle events.
type EventType int

const (
	StageStarted EventType = iota
	StageFinished
)

func (t EventType) String() string {
	switch t {
	case StageStarted:
		return "started"
	case StageFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// Event is published for every stage transition.
type Event struct {
	RunID    string
	Type     EventType
	Stage    model.StageName
	Duration time.Duration
	Err      error
	Time     time.Time
}

// Publisher receives stage events. Delivery must not block the pipeline.
type Publisher interface {
	Publish(Event)
}

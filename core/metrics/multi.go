package metrics

import "errors"

// MultiSink fans records out to several sinks. Every sink sees every record,
// so one failing backend never hides data from the others.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards ev to all sinks and joins their errors.
func (m *MultiSink) RecordRun(ev RunEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		errs = append(errs, s.RecordRun(ev))
	}
	return errors.Join(errs...)
}

// RecordStage forwards ev to the sinks that record stages.
func (m *MultiSink) RecordStage(ev StageEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(StageRecorder); ok {
			errs = append(errs, rec.RecordStage(ev))
		}
	}
	return errors.Join(errs...)
}

// RecordFetch forwards ev to the sinks that record artifact downloads.
func (m *MultiSink) RecordFetch(ev FetchEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(FetchRecorder); ok {
			errs = append(errs, rec.RecordFetch(ev))
		}
	}
	return errors.Join(errs...)
}

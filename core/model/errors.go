package model

import (
	"errors"
	"fmt"
)

// Sentinel categories. Every error that aborts an analysis run matches exactly
// one of them through errors.Is.
var (
	ErrValidation  = errors.New("invalid sensor reading")
	ErrUnavailable = errors.New("live telemetry unavailable")
	ErrFetch       = errors.New("artifact fetch failed")
	ErrModel       = errors.New("prediction failed")
)

// Error kinds used for HTTP mapping, metric labels and monitoring tags.
const (
	KindValidation  = "validation"
	KindUnavailable = "unavailable"
	KindFetch       = "fetch"
	KindModel       = "model"
	KindInternal    = "internal"
)

// ValidationError reports a sensor value outside its declared range or a
// required field missing from a live reading.
type ValidationError struct {
	Field   string
	Value   float64
	Min     float64
	Max     float64
	Missing bool
}

func (e *ValidationError) Error() string {
	if e.Missing {
		return fmt.Sprintf("%s: %s missing", ErrValidation, e.Field)
	}
	return fmt.Sprintf("%s: %s=%g outside [%g, %g]", ErrValidation, e.Field, e.Value, e.Min, e.Max)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// FetchError is returned when an artifact could not be downloaded, written to
// the local cache or loaded from it.
type FetchError struct {
	Artifact   string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s: repository status %d", ErrFetch, e.Artifact, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", ErrFetch, e.Artifact, e.Err)
	default:
		return fmt.Sprintf("%s: %s", ErrFetch, e.Artifact)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// ModelError wraps a failed predictor invocation.
type ModelError struct {
	Stage StageName
	Err   error
}

func (e *ModelError) Error() string {
	if e.Stage == "" {
		return fmt.Sprintf("%s: %v", ErrModel, e.Err)
	}
	return fmt.Sprintf("%s: stage %s: %v", ErrModel, e.Stage, e.Err)
}

func (e *ModelError) Unwrap() error { return e.Err }

func (e *ModelError) Is(target error) bool { return target == ErrModel }

// Unavailable wraps cause so that it matches ErrUnavailable.
func Unavailable(cause error) error {
	if cause == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %w", ErrUnavailable, cause)
}

// KindOf classifies err into one of the Kind constants.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrUnavailable):
		return KindUnavailable
	case errors.Is(err, ErrFetch):
		return KindFetch
	case errors.Is(err, ErrModel):
		return KindModel
	default:
		return KindInternal
	}
}

// Describe returns the user-facing category of err.
func Describe(err error) string {
	switch KindOf(err) {
	case KindValidation:
		return "invalid sensor reading"
	case KindUnavailable:
		return "no live data"
	case KindFetch:
		return "network/artifact failure"
	case KindModel:
		return "internal prediction failure"
	case KindInternal:
		return "internal error"
	default:
		return ""
	}
}

// StageOf returns the stage attached to err, if any.
func StageOf(err error) StageName {
	var me *ModelError
	if errors.As(err, &me) {
		return me.Stage
	}
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage
	}
	return ""
}

// StageError annotates a non-model failure (typically a FetchError) with the
// stage that was executing.
type StageError struct {
	Stage StageName
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

func (e *StageError) Unwrap() error { return e.Err }

// Package artifact declares how pipeline stages obtain their predictors.
// A Registry hides where the model file comes from and how long the decoded
// predictor lives; callers follow a strict resolve, invoke once, release cycle.
package artifact

import (
	"context"
	"io"

	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/core/predictor"
)

// Registry resolves stage names to ready predictors.
type Registry interface {
	// Resolve returns a predictor for the caller's exclusive use, fetching the
	// artifact first when it is not cached. Failures are *model.FetchError.
	Resolve(ctx context.Context, stage model.StageName) (predictor.Predictor, error)
	// Release signals the caller no longer needs the predictor.
	Release(stage model.StageName)
}

// Fetcher downloads one named artifact into w.
type Fetcher interface {
	Fetch(ctx context.Context, name string, w io.Writer) error
}

// Cache is the local persistent store for artifacts. Put must be atomic: a
// concurrent reader either sees the complete artifact or none at all.
type Cache interface {
	Path(name string) string
	Exists(name string) bool
	Put(name string, write func(io.Writer) error) error
	Open(name string) (io.ReadCloser, error)
}

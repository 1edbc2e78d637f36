package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	coreartifact "github.com/kilianp07/evsense/core/artifact"
	"github.com/kilianp07/evsense/core/logger"
	coremetrics "github.com/kilianp07/evsense/core/metrics"
	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/core/predictor"
	inflogger "github.com/kilianp07/evsense/infra/logger"
)

// DefaultFiles maps every stage to its artifact file name.
func DefaultFiles() map[model.StageName]string {
	return map[model.StageName]string{
		model.StageSoC:        "soc_model.json",
		model.StageLowBattery: "low_battery_model.json",
		model.StageRange:      "range_model.json",
		model.StageDischarge:  "abnormal_discharge_model.json",
		model.StageHealth:     "health_model.json",
	}
}

// Option customizes a Registry.
type Option func(*Registry)

// WithRecorder sends fetch events to rec.
func WithRecorder(rec coremetrics.FetchRecorder) Option {
	return func(r *Registry) {
		if rec != nil {
			r.rec = rec
		}
	}
}

// WithFetchTimeout bounds the shared download triggered by a cache miss.
func WithFetchTimeout(d time.Duration) Option {
	return func(r *Registry) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithLogger replaces the component logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

// Registry resolves stages to predictors decoded from cached artifacts. It
// never keeps a decoded predictor: every Resolve loads a fresh one.
type Registry struct {
	files   map[model.StageName]string
	fetcher coreartifact.Fetcher
	cache   coreartifact.Cache
	rec     coremetrics.FetchRecorder
	log     logger.Logger
	timeout time.Duration

	group singleflight.Group

	mu     sync.Mutex
	active map[model.StageName]int
}

var _ coreartifact.Registry = (*Registry)(nil)

// NewRegistry builds a registry. Stages missing from files fall back to
// DefaultFiles.
func NewRegistry(files map[model.StageName]string, fetcher coreartifact.Fetcher, cache coreartifact.Cache, opts ...Option) (*Registry, error) {
	if fetcher == nil || cache == nil {
		return nil, errors.New("artifact registry needs a fetcher and a cache")
	}
	merged := DefaultFiles()
	for stage, name := range files {
		if !stage.Valid() {
			return nil, fmt.Errorf("unknown stage %q", stage)
		}
		if err := checkName(name); err != nil {
			return nil, fmt.Errorf("stage %s: %w", stage, err)
		}
		merged[stage] = name
	}
	r := &Registry{
		files:   merged,
		fetcher: fetcher,
		cache:   cache,
		rec:     coremetrics.NopSink{},
		log:     inflogger.New("artifacts"),
		timeout: DefaultTimeout,
		active:  make(map[model.StageName]int),
	}
	for _, o := range opts {
		o(r)
	}
	return r, nil
}

// File returns the artifact name configured for stage.
func (r *Registry) File(stage model.StageName) (string, bool) {
	name, ok := r.files[stage]
	return name, ok
}

// Resolve ensures the stage's artifact is cached and returns a freshly decoded
// predictor.
func (r *Registry) Resolve(ctx context.Context, stage model.StageName) (predictor.Predictor, error) {
	name, ok := r.files[stage]
	if !ok {
		return nil, &model.FetchError{Artifact: string(stage), Err: errors.New("no artifact configured")}
	}
	if err := r.ensure(ctx, name); err != nil {
		return nil, err
	}
	rc, err := r.cache.Open(name)
	if err != nil {
		return nil, &model.FetchError{Artifact: name, Err: err}
	}
	defer rc.Close()
	p, err := predictor.Load(rc)
	if err != nil {
		return nil, &model.FetchError{Artifact: name, Err: fmt.Errorf("load: %w", err)}
	}
	r.mu.Lock()
	r.active[stage]++
	r.mu.Unlock()
	return p, nil
}

// Release drops one handle for stage.
func (r *Registry) Release(stage model.StageName) {
	r.mu.Lock()
	if r.active[stage] > 0 {
		r.active[stage]--
	}
	r.mu.Unlock()
}

// Active returns the number of unreleased handles for stage.
func (r *Registry) Active(stage model.StageName) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active[stage]
}

// Prefetch downloads every configured artifact that is not cached yet.
func (r *Registry) Prefetch(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, stage := range model.Stages {
		name := r.files[stage]
		g.Go(func() error { return r.ensure(ctx, name) })
	}
	return g.Wait()
}

// ensure makes name available in the cache. Concurrent misses share a single
// download. The download runs detached from the first caller's context so one
// cancelled caller cannot fail the others; each caller still stops waiting when
// its own context ends.
func (r *Registry) ensure(ctx context.Context, name string) error {
	if r.cache.Exists(name) {
		return nil
	}
	ch := r.group.DoChan(name, func() (any, error) {
		if r.cache.Exists(name) {
			return nil, nil
		}
		return nil, r.download(name)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return &model.FetchError{Artifact: name, Err: ctx.Err()}
	}
}

func (r *Registry) download(name string) error {
	fctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	start := time.Now()
	var n int64
	err := r.cache.Put(name, func(w io.Writer) error {
		cw := &countingWriter{w: w}
		err := r.fetcher.Fetch(fctx, name, cw)
		n = cw.n
		return err
	})
	var fe *model.FetchError
	if err != nil && !errors.As(err, &fe) {
		err = &model.FetchError{Artifact: name, Err: err}
	}

	ev := coremetrics.FetchEvent{Artifact: name, Bytes: n, Duration: time.Since(start), Time: time.Now()}
	if err != nil {
		ev.Err = err.Error()
		r.log.Errorf("fetch %s: %v", name, err)
	} else {
		r.log.Infow("artifact cached", map[string]any{"artifact": name, "bytes": n, "duration": ev.Duration.String()})
	}
	if rerr := r.rec.RecordFetch(ev); rerr != nil {
		r.log.Warnf("record fetch: %v", rerr)
	}
	return err
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

package artifact

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/evsense/core/metrics"
	"github.com/kilianp07/evsense/core/model"
	"github.com/kilianp07/evsense/infra/logger"
)

const socArtifact = `{"format":"linear","inputs":3,"weights":[0.002,0,0],"bias":0}`

type fakeFetcher struct {
	calls   atomic.Int32
	gate    chan struct{}
	started chan struct{}
	once    sync.Once
	body    map[string]string
	err     error
}

func (f *fakeFetcher) Fetch(ctx context.Context, name string, w io.Writer) error {
	f.calls.Add(1)
	if f.started != nil {
		f.once.Do(func() { close(f.started) })
	}
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if f.err != nil {
		_, _ = io.WriteString(w, `{"format":`)
		return f.err
	}
	body, ok := f.body[name]
	if !ok {
		return &model.FetchError{Artifact: name, StatusCode: 404}
	}
	_, err := io.WriteString(w, body)
	return err
}

type fetchLog struct {
	mu     sync.Mutex
	events []coremetrics.FetchEvent
}

func (l *fetchLog) RecordFetch(ev coremetrics.FetchEvent) error {
	l.mu.Lock()
	l.events = append(l.events, ev)
	l.mu.Unlock()
	return nil
}

func allArtifacts() map[string]string {
	out := map[string]string{}
	for _, name := range DefaultFiles() {
		out[name] = socArtifact
	}
	return out
}

func newTestRegistry(t *testing.T, f *fakeFetcher, opts ...Option) (*Registry, *DiskCache) {
	t.Helper()
	c, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	opts = append([]Option{WithLogger(logger.NopLogger{})}, opts...)
	r, err := NewRegistry(nil, f, c, opts...)
	require.NoError(t, err)
	return r, c
}

func TestResolveFetchesOnceThenHitsCache(t *testing.T) {
	f := &fakeFetcher{body: allArtifacts()}
	rec := &fetchLog{}
	r, c := newTestRegistry(t, f, WithRecorder(rec))

	p, err := r.Resolve(context.Background(), model.StageSoC)
	require.NoError(t, err)
	out, err := p.Predict(context.Background(), []float64{350, 20, 35})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, out, 1e-9)
	r.Release(model.StageSoC)

	_, err = r.Resolve(context.Background(), model.StageSoC)
	require.NoError(t, err)
	r.Release(model.StageSoC)

	assert.EqualValues(t, 1, f.calls.Load())
	assert.True(t, c.Exists("soc_model.json"))
	require.Len(t, rec.events, 1)
	assert.Equal(t, "soc_model.json", rec.events[0].Artifact)
	assert.EqualValues(t, len(socArtifact), rec.events[0].Bytes)
	assert.Empty(t, rec.events[0].Err)
}

func TestResolveReturnsFreshPredictor(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeFetcher{body: allArtifacts()})
	a, err := r.Resolve(context.Background(), model.StageHealth)
	require.NoError(t, err)
	b, err := r.Resolve(context.Background(), model.StageHealth)
	require.NoError(t, err)
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, r.Active(model.StageHealth))
	r.Release(model.StageHealth)
	r.Release(model.StageHealth)
	r.Release(model.StageHealth)
	assert.Equal(t, 0, r.Active(model.StageHealth))
}

func TestConcurrentResolveSingleFetch(t *testing.T) {
	f := &fakeFetcher{body: allArtifacts(), gate: make(chan struct{}), started: make(chan struct{})}
	r, _ := newTestRegistry(t, f)

	const callers = 16
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Resolve(context.Background(), model.StageRange)
			errs <- err
		}()
	}
	<-f.started
	time.Sleep(20 * time.Millisecond)
	close(f.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
	assert.EqualValues(t, 1, f.calls.Load())
	assert.Equal(t, callers, r.Active(model.StageRange))
}

func TestFailedFetchLeavesNoFile(t *testing.T) {
	f := &fakeFetcher{err: errors.New("connection reset")}
	rec := &fetchLog{}
	r, c := newTestRegistry(t, f, WithRecorder(rec))

	_, err := r.Resolve(context.Background(), model.StageSoC)
	assert.ErrorIs(t, err, model.ErrFetch)
	assert.False(t, c.Exists("soc_model.json"))
	assert.Equal(t, 0, r.Active(model.StageSoC))
	require.Len(t, rec.events, 1)
	assert.NotEmpty(t, rec.events[0].Err)
}

func TestRepositoryStatusSurfaces(t *testing.T) {
	r, _ := newTestRegistry(t, &fakeFetcher{body: map[string]string{}})
	_, err := r.Resolve(context.Background(), model.StageDischarge)
	var fe *model.FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, 404, fe.StatusCode)
	assert.True(t, IsNotFound(err))
}

func TestMalformedArtifactIsFetchError(t *testing.T) {
	body := allArtifacts()
	body["health_model.json"] = `{"format":"svm"}`
	r, _ := newTestRegistry(t, &fakeFetcher{body: body})
	_, err := r.Resolve(context.Background(), model.StageHealth)
	assert.ErrorIs(t, err, model.ErrFetch)
	assert.Equal(t, 0, r.Active(model.StageHealth))
}

func TestResolveHonoursCallerContext(t *testing.T) {
	f := &fakeFetcher{body: allArtifacts(), gate: make(chan struct{})}
	r, _ := newTestRegistry(t, f)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Resolve(ctx, model.StageSoC)
	assert.ErrorIs(t, err, model.ErrFetch)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// the shared download keeps going for later callers
	close(f.gate)
	_, err = r.Resolve(context.Background(), model.StageSoC)
	require.NoError(t, err)
	assert.EqualValues(t, 1, f.calls.Load())
}

func TestPrefetchWarmsEverything(t *testing.T) {
	f := &fakeFetcher{body: allArtifacts()}
	r, c := newTestRegistry(t, f)
	require.NoError(t, r.Prefetch(context.Background()))
	for _, name := range DefaultFiles() {
		assert.True(t, c.Exists(name), name)
	}
	assert.EqualValues(t, len(model.Stages), f.calls.Load())

	require.NoError(t, r.Prefetch(context.Background()))
	assert.EqualValues(t, len(model.Stages), f.calls.Load())
}

func TestNewRegistryFiles(t *testing.T) {
	c, err := NewDiskCache(t.TempDir())
	require.NoError(t, err)
	f := &fakeFetcher{}

	r, err := NewRegistry(map[model.StageName]string{model.StageSoC: "soc_v2.json"}, f, c)
	require.NoError(t, err)
	name, _ := r.File(model.StageSoC)
	assert.Equal(t, "soc_v2.json", name)
	name, _ = r.File(model.StageHealth)
	assert.Equal(t, "health_model.json", name)

	_, err = NewRegistry(map[model.StageName]string{"speed": "x.json"}, f, c)
	assert.Error(t, err)
	_, err = NewRegistry(map[model.StageName]string{model.StageSoC: "../x.json"}, f, c)
	assert.Error(t, err)
	_, err = NewRegistry(nil, nil, c)
	assert.Error(t, err)
}

func ExampleDefaultFiles() {
	fmt.Println(DefaultFiles()[model.StageDischarge])
	// Output: abnormal_discharge_model.json
}

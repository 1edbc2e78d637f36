package monitoring

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recordingMonitor struct {
	errs    []error
	tags    []map[string]string
	panics  []any
	flushed int
}

func (m *recordingMonitor) CaptureException(err error, tags map[string]string) {
	m.errs = append(m.errs, err)
	m.tags = append(m.tags, tags)
}
func (m *recordingMonitor) CapturePanic(v any)  { m.panics = append(m.panics, v) }
func (m *recordingMonitor) Flush(time.Duration) { m.flushed++ }

func TestGlobalMonitor(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })
	Init(nil)
	assert.Same(t, rec, Current())

	CaptureException(errors.New("boom"), map[string]string{"kind": "fetch"})
	Flush(time.Second)
	assert.Len(t, rec.errs, 1)
	assert.Equal(t, "fetch", rec.tags[0]["kind"])
	assert.Equal(t, 1, rec.flushed)
}

func TestRecoverReportsAndRepanics(t *testing.T) {
	rec := &recordingMonitor{}
	Init(rec)
	t.Cleanup(func() { Init(NopMonitor{}) })

	assert.PanicsWithValue(t, "stage exploded", func() {
		defer Recover()
		panic("stage exploded")
	})
	assert.Equal(t, []any{"stage exploded"}, rec.panics)
	assert.Equal(t, 1, rec.flushed)
}

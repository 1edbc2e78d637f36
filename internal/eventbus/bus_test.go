package eventbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type progress struct {
	stage string
	done  bool
}

func TestBusPublishSubscribe(t *testing.T) {
	b := New[progress]()
	a := b.Subscribe(0)
	c := b.Subscribe(1)
	b.Publish(progress{stage: "soc"})
	require.Equal(t, progress{stage: "soc"}, <-a)
	require.Equal(t, progress{stage: "soc"}, <-c)
}

func TestBusDropsWhenFull(t *testing.T) {
	b := New[progress]()
	ch := b.Subscribe(1)
	b.Publish(progress{stage: "soc"})
	b.Publish(progress{stage: "range"})
	assert.Equal(t, uint64(1), b.Dropped())
	assert.Equal(t, "soc", (<-ch).stage)
}

func TestBusClose(t *testing.T) {
	b := New[progress]()
	ch := b.Subscribe(0)
	b.Close()
	b.Close()
	_, ok := <-ch
	assert.False(t, ok, "channel should be closed")
	b.Publish(progress{done: true})

	late := b.Subscribe(0)
	_, ok = <-late
	assert.False(t, ok, "subscribing after close returns a closed channel")
}

func TestBusUnsubscribe(t *testing.T) {
	b := New[progress]()
	ch := b.Subscribe(0)
	b.Unsubscribe(ch)
	_, ok := <-ch
	assert.False(t, ok)
	b.Publish(progress{stage: "health"})
	assert.Zero(t, b.Dropped())
	b.Unsubscribe(ch)
	b.Close()
}

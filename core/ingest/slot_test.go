package ingest

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlotEmpty(t *testing.T) {
	s := NewSlot()
	_, ok := s.Latest()
	assert.False(t, ok)
}

func TestSlotOverwrites(t *testing.T) {
	s := NewSlot()
	s.Store(Document{Voltage: Num(300)})
	s.Store(Document{Voltage: Num(350)})
	d, ok := s.Latest()
	assert.True(t, ok)
	assert.Equal(t, 350.0, d.Voltage.Value)
}

func TestSlotWithoutVoltageIsEmpty(t *testing.T) {
	s := NewSlot()
	s.Store(Document{Current: Num(20)})
	_, ok := s.Latest()
	assert.False(t, ok)
}

func TestSlotReset(t *testing.T) {
	s := NewSlot()
	s.Store(Document{Voltage: Num(300)})
	s.Reset()
	_, ok := s.Latest()
	assert.False(t, ok)
}

func TestSlotConcurrentAccess(t *testing.T) {
	s := NewSlot()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(v float64) {
			defer wg.Done()
			s.Store(Document{Voltage: Num(v)})
		}(float64(200 + i))
		go func() {
			defer wg.Done()
			s.Latest()
		}()
	}
	wg.Wait()
	d, ok := s.Latest()
	assert.True(t, ok)
	assert.GreaterOrEqual(t, d.Voltage.Value, 200.0)
}

package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/itohio/compadc/pkg/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func reading(ch int, tick uint64, corrected uint16) sample.Reading {
	return sample.Reading{Channel: ch, Tick: tick, Corrected: corrected}
}

func TestNew(t *testing.T) {
	m := New(0)
	assert.Equal(t, DefaultWindow, m.window)
	assert.Empty(t, m.Readings(0))
	_, ok := m.Latest(0)
	assert.False(t, ok)
	assert.Equal(t, Stats{}, m.Stats(0))
}

func TestProcessReading_Window(t *testing.T) {
	m := New(3)
	for i := 0; i < 5; i++ {
		m.processReading(reading(0, uint64(i), uint16(i)))
	}
	m.processReading(reading(1, 9, 42))

	got := m.Readings(0)
	require.Len(t, got, 3)
	assert.Equal(t, uint64(2), got[0].Tick)
	assert.Equal(t, uint64(4), got[2].Tick)

	latest, ok := m.Latest(1)
	assert.True(t, ok)
	assert.Equal(t, uint16(42), latest.Corrected)
}

func TestStats(t *testing.T) {
	m := New(10)
	for _, v := range []uint16{100, 104, 98, 102} {
		m.processReading(reading(0, 0, v))
	}

	st := m.Stats(0)
	assert.Equal(t, 4, st.Count)
	assert.Equal(t, uint16(98), st.Min)
	assert.Equal(t, uint16(104), st.Max)
	assert.InDelta(t, 101, st.Mean, 1e-9)
	assert.Equal(t, uint16(6), st.Jitter)
}

func TestReadingsReturnsCopy(t *testing.T) {
	m := New(4)
	m.processReading(reading(0, 1, 10))
	got := m.Readings(0)
	got[0].Corrected = 99
	assert.Equal(t, uint16(10), m.Readings(0)[0].Corrected)
}

func TestProcessReadings_CallbacksAndShutdown(t *testing.T) {
	m := New(8)

	var mu sync.Mutex
	var seen []uint64
	m.OnUpdate(func(r sample.Reading) {
		mu.Lock()
		seen = append(seen, r.Tick)
		mu.Unlock()
	})

	in := make(chan sample.Reading, 3)
	for i := uint64(1); i <= 3; i++ {
		in <- reading(0, i, 0)
	}
	close(in)

	done := make(chan struct{})
	go func() {
		m.ProcessReadings(in)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("ProcessReadings did not return after close")
	}

	mu.Lock()
	assert.Equal(t, []uint64{1, 2, 3}, seen)
	mu.Unlock()

	// no callbacks after the input closed
	m.processReading(reading(0, 4, 0))
	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
	assert.Len(t, m.Readings(0), 4)

	m.ResetShutdown()
	m.processReading(reading(0, 5, 0))
	mu.Lock()
	assert.Equal(t, []uint64{1, 2, 3, 5}, seen)
	mu.Unlock()
}

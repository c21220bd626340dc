package monitor

import (
	"sync"

	"github.com/itohio/compadc/pkg/sample"
)

// DefaultWindow is the number of readings kept per channel.
const DefaultWindow = 64

// Stats summarises the corrected readings of one channel in the window.
type Stats struct {
	Count  int
	Min    uint16
	Max    uint16
	Mean   float64
	Jitter uint16 // Max - Min
}

// Monitor keeps the most recent readings of every channel and notifies
// subscribers on each reading.
type Monitor struct {
	window int

	// per channel FIFO, oldest first
	readings map[int][]sample.Reading
	mu       sync.RWMutex

	callbacks []func(r sample.Reading)
	cbMu      sync.RWMutex

	shutdown bool // set when the input channel closes, suppresses callbacks
}

// New creates a Monitor holding up to window readings per channel.
func New(window int) *Monitor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Monitor{
		window:   window,
		readings: make(map[int][]sample.Reading),
	}
}

// ProcessReadings consumes readings until the channel closes.
func (m *Monitor) ProcessReadings(in <-chan sample.Reading) {
	for r := range in {
		m.processReading(r)
	}
	m.mu.Lock()
	m.shutdown = true
	m.mu.Unlock()
}

func (m *Monitor) processReading(r sample.Reading) {
	m.mu.Lock()
	buf := append(m.readings[r.Channel], r)
	if len(buf) > m.window {
		buf = buf[len(buf)-m.window:]
	}
	m.readings[r.Channel] = buf
	notify := !m.shutdown
	m.mu.Unlock()

	if notify {
		m.notifyCallbacks(r)
	}
}

// Readings returns a copy of the window of channel ch, oldest first.
func (m *Monitor) Readings(ch int) []sample.Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]sample.Reading, len(m.readings[ch]))
	copy(result, m.readings[ch])
	return result
}

// Latest returns the newest reading of channel ch.
func (m *Monitor) Latest(ch int) (sample.Reading, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buf := m.readings[ch]
	if len(buf) == 0 {
		return sample.Reading{}, false
	}
	return buf[len(buf)-1], true
}

// Stats returns statistics of the corrected readings of channel ch.
func (m *Monitor) Stats(ch int) Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buf := m.readings[ch]
	if len(buf) == 0 {
		return Stats{}
	}

	st := Stats{Count: len(buf), Min: buf[0].Corrected, Max: buf[0].Corrected}
	var sum float64
	for _, r := range buf {
		if r.Corrected < st.Min {
			st.Min = r.Corrected
		}
		if r.Corrected > st.Max {
			st.Max = r.Corrected
		}
		sum += float64(r.Corrected)
	}
	st.Mean = sum / float64(len(buf))
	st.Jitter = st.Max - st.Min
	return st
}

// OnUpdate registers a callback invoked for every reading.
// The callback should return quickly.
func (m *Monitor) OnUpdate(callback func(r sample.Reading)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// ResetShutdown allows callbacks again after the input channel closed.
func (m *Monitor) ResetShutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.shutdown = false
}

// notifyCallbacks invokes the callbacks without holding any locks.
func (m *Monitor) notifyCallbacks(r sample.Reading) {
	m.cbMu.RLock()
	callbacks := make([]func(sample.Reading), len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.cbMu.RUnlock()

	for _, cb := range callbacks {
		if cb != nil {
			cb(r)
		}
	}
}

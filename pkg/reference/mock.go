package reference

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock emits a constant reference reading at a fixed period.
type Mock struct {
	value  uint16
	period time.Duration

	readings  chan Reading
	mu        sync.RWMutex
	cancel    context.CancelFunc
	connected bool
	closed    bool // readings was closed by a previous session
}

var _ Device = (*Mock)(nil)

// NewMock creates a mocked reference meter.
func NewMock(value uint16, period time.Duration, bufSize int) *Mock {
	if period <= 0 {
		period = 100 * time.Millisecond
	}
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}

	return &Mock{
		value:    value,
		period:   period,
		readings: make(chan Reading, bufSize),
	}
}

// Connect starts emitting readings. After a Close it starts a new session
// with a fresh readings channel.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	if m.closed {
		m.readings = make(chan Reading, cap(m.readings))
		m.closed = false
	}

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.connected = true
	go m.generate(ctx, m.readings)

	return nil
}

// Close stops the mock. The readings channel is closed by the generator.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return nil
	}

	m.cancel()
	m.connected = false
	m.closed = true

	return nil
}

// Readings returns the channel of reference readings of the current session.
func (m *Mock) Readings() <-chan Reading {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.readings
}

// IsConnected returns whether the mock is running.
func (m *Mock) IsConnected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// SetValue changes the emitted reading.
func (m *Mock) SetValue(v uint16) {
	m.mu.Lock()
	m.value = v
	m.mu.Unlock()
}

func (m *Mock) generate(ctx context.Context, out chan<- Reading) {
	defer close(out)

	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			m.mu.RLock()
			r := Reading{Timestamp: now, Value: m.value}
			m.mu.RUnlock()
			select {
			case out <- r:
			case <-ctx.Done():
				return
			default:
				// Channel full, skip
			}
		}
	}
}

// FromMillivolts converts a voltage into reference units: millivolts as is,
// or the 0..9999 decimal scale of a fullScale millivolt range.
func FromMillivolts(mv, fullScale float64, decimal bool) uint16 {
	if mv < 0 {
		mv = 0
	}
	if !decimal {
		if mv > 65535 {
			return 65535
		}
		return uint16(mv + 0.5)
	}
	v := mv/fullScale*MaxReading + 0.5
	if v > MaxReading {
		return MaxReading
	}
	return uint16(v)
}

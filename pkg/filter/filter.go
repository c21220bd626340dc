// Package filter smooths the stream of raw conversions.
package filter

// MovingAverage is a running mean over the last 2^k samples. The history is a
// fixed ring buffer; each update subtracts the sample it overwrites and adds
// the new one, so the cost does not depend on the window size.
type MovingAverage struct {
	k       int
	history []uint16
	cursor  int
	sum     uint32

	estimate uint16
	valid    bool
}

// New creates a filter with a 2^k sample window, zero filled.
func New(k int) *MovingAverage {
	if k < 0 {
		k = 0
	}
	return &MovingAverage{
		k:       k,
		history: make([]uint16, 1<<k),
	}
}

// Update feeds one sample and returns the new estimate.
func (m *MovingAverage) Update(sample uint16) uint16 {
	m.sum -= uint32(m.history[m.cursor])
	m.sum += uint32(sample)
	m.history[m.cursor] = sample
	m.cursor = (m.cursor + 1) & (len(m.history) - 1)
	m.estimate = uint16(m.sum >> m.k)
	return m.estimate
}

// Step updates the filter only when ready is set. Valid reports the update
// for exactly one Step.
func (m *MovingAverage) Step(ready bool, sample uint16) {
	m.valid = ready
	if ready {
		m.Update(sample)
	}
}

// Estimate returns sum >> k.
func (m *MovingAverage) Estimate() uint16 {
	return m.estimate
}

// Sum returns the running sum of the window.
func (m *MovingAverage) Sum() uint32 {
	return m.sum
}

// Valid reports whether the last Step updated the estimate.
func (m *MovingAverage) Valid() bool {
	return m.valid
}

// Window returns the number of samples averaged.
func (m *MovingAverage) Window() int {
	return len(m.history)
}

// Reset zero fills the history.
func (m *MovingAverage) Reset() {
	for i := range m.history {
		m.history[i] = 0
	}
	m.cursor = 0
	m.sum = 0
	m.estimate = 0
	m.valid = false
}

// Package synchronizer moves an asynchronous 1-bit signal into the clocked
// domain through two register stages.
package synchronizer

// Synchronizer is a double-registered input stage.
//
// A level presented to Step on tick n is captured by the first stage on that
// tick and reaches Value on tick n+1: two clock edges. Previous holds the
// synchronized value of the tick before, for edge detection.
//
// The zero value is a reset synchronizer.
type Synchronizer struct {
	meta bool // first stage, may be metastable in hardware, never read directly
	sync bool
	prev bool
}

// New creates a Synchronizer in its reset state.
func New() *Synchronizer {
	return &Synchronizer{}
}

// Step clocks the input through both stages and returns the synchronized value.
func (s *Synchronizer) Step(in bool) bool {
	s.prev = s.sync
	s.sync = s.meta
	s.meta = in
	return s.sync
}

// Value returns the synchronized level.
func (s *Synchronizer) Value() bool {
	return s.sync
}

// Previous returns the synchronized level of the previous tick.
func (s *Synchronizer) Previous() bool {
	return s.prev
}

// Rose reports a false to true transition of the synchronized level.
func (s *Synchronizer) Rose() bool {
	return s.sync && !s.prev
}

// Fell reports a true to false transition of the synchronized level.
func (s *Synchronizer) Fell() bool {
	return !s.sync && s.prev
}

// Reset clears every stage.
func (s *Synchronizer) Reset() {
	*s = Synchronizer{}
}

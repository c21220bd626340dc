// Package calib applies a single-point offset correction captured against a
// reference channel.
package calib

import "github.com/itohio/compadc/pkg/synchronizer"

// MaxReading is the upper clamp of corrected readings.
const MaxReading = 9999

// Unit stores one signed offset per channel. The offsets are captured on the
// rising edge of the synchronized trigger as reference - reading and are
// applied to every later reading of that channel.
type Unit struct {
	trigger  *synchronizer.Synchronizer
	offsets  []int32
	captured bool
}

// New creates a Unit for the given number of channels with zero offsets.
func New(channels int) *Unit {
	return &Unit{
		trigger: synchronizer.New(),
		offsets: make([]int32, channels),
	}
}

// Step samples the asynchronous trigger. When the synchronized trigger rose
// on the previous tick, each channel's offset is replaced with
// reference - readings[ch].
func (u *Unit) Step(trigger bool, reference uint16, readings []uint16) {
	u.captured = false
	if u.trigger.Rose() {
		for ch := range u.offsets {
			if ch < len(readings) {
				u.offsets[ch] = int32(reference) - int32(readings[ch])
			}
		}
		u.captured = true
	}
	u.trigger.Step(trigger)
}

// Corrected returns clamp(reading + offset, 0, 9999) for channel ch.
func (u *Unit) Corrected(ch int, reading uint16) uint16 {
	v := int32(reading) + u.offsets[ch]
	switch {
	case v < 0:
		return 0
	case v > MaxReading:
		return MaxReading
	}
	return uint16(v)
}

// Offset returns the stored offset of channel ch.
func (u *Unit) Offset(ch int) int32 {
	return u.offsets[ch]
}

// Offsets returns a copy of every stored offset.
func (u *Unit) Offsets() []int32 {
	result := make([]int32, len(u.offsets))
	copy(result, u.offsets)
	return result
}

// Captured reports whether the last Step stored new offsets.
func (u *Unit) Captured() bool {
	return u.captured
}

// Reset zeroes every offset and the trigger synchronizer.
func (u *Unit) Reset() {
	for i := range u.offsets {
		u.offsets[i] = 0
	}
	u.trigger.Reset()
	u.captured = false
}

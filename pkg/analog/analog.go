// Package analog models the analog side of a channel: the DAC output stage
// and the comparator that compares it against the unknown input.
package analog

import "github.com/chewxy/math32"

// Frontend simulates one DAC plus comparator.
type Frontend struct {
	maxCode   float32
	fullScale float32 // mV at the maximum code
	alpha     float32 // fraction of the remaining DAC error removed per tick
	noise     float32 // mV amplitude

	input float32 // mV
	dac   float32 // mV
	tick  uint32
}

// New creates a front-end for width-bit codes. tauTicks is the first-order
// DAC settling time constant; 0 makes the DAC settle within one tick.
func New(width int, fullScaleMillivolts, tauTicks, noiseMillivolts float64) *Frontend {
	alpha := float32(1)
	if tauTicks > 0 {
		alpha = 1 - math32.Exp(-1/float32(tauTicks))
	}
	return &Frontend{
		maxCode:   float32((uint32(1) << width) - 1),
		fullScale: float32(fullScaleMillivolts),
		alpha:     alpha,
		noise:     float32(noiseMillivolts),
	}
}

// SetInput sets the unknown input voltage in millivolts.
func (f *Frontend) SetInput(mv float64) {
	f.input = float32(mv)
}

// Input returns the input voltage in millivolts.
func (f *Frontend) Input() float64 {
	return float64(f.input)
}

// DAC returns the present DAC output in millivolts.
func (f *Frontend) DAC() float64 {
	return float64(f.dac)
}

// Step drives code for one tick and returns the raw comparator level:
// true when the input is above the DAC output.
func (f *Frontend) Step(code uint16) bool {
	target := float32(code) / f.maxCode * f.fullScale
	f.dac += (target - f.dac) * f.alpha
	f.tick++
	return f.input+f.sampleNoise() > f.dac
}

// sampleNoise is deterministic so that runs are reproducible.
func (f *Frontend) sampleNoise() float32 {
	if f.noise == 0 {
		return 0
	}
	t := float32(f.tick)
	return (math32.Sin(t*0.37) + math32.Cos(t*0.0531)) * f.noise * 0.5
}

// Reset returns the DAC output to zero.
func (f *Frontend) Reset() {
	f.dac = 0
	f.tick = 0
}

// Code returns the ideal code of an input voltage: the largest code whose
// DAC voltage is not above mv, clamped to the code range.
func Code(mv float64, width int, fullScaleMillivolts float64) uint16 {
	max := float32((uint32(1) << width) - 1)
	c := math32.Floor(float32(mv) / float32(fullScaleMillivolts) * max)
	switch {
	case c < 0:
		return 0
	case c > max:
		return uint16(max)
	}
	return uint16(c)
}

// Millivolts returns the DAC voltage of a code.
func Millivolts(code uint16, width int, fullScaleMillivolts float64) float64 {
	max := float64((uint32(1) << width) - 1)
	return float64(code) / max * fullScaleMillivolts
}

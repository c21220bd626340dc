package calib

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pulse drives the trigger high for one tick and returns the tick on which
// the offsets were captured.
func pulse(u *Unit, reference uint16, readings []uint16) int {
	u.Step(true, reference, readings)
	for i := 1; i < 10; i++ {
		u.Step(false, reference, readings)
		if u.Captured() {
			return i
		}
	}
	return -1
}

func TestUnit_CaptureAndApply(t *testing.T) {
	u := New(1)
	tick := pulse(u, 1000, []uint16{950})
	require.Equal(t, 2, tick, "trigger passes two register stages before the edge is seen")

	assert.Equal(t, int32(50), u.Offset(0))
	assert.Equal(t, uint16(950), u.Corrected(0, 900))
	assert.Equal(t, uint16(9999), u.Corrected(0, 9980), "clamped, not 10030")
}

func TestUnit_NegativeOffsetClampsAtZero(t *testing.T) {
	u := New(1)
	pulse(u, 100, []uint16{400})
	assert.Equal(t, int32(-300), u.Offset(0))
	assert.Equal(t, uint16(0), u.Corrected(0, 250))
	assert.Equal(t, uint16(200), u.Corrected(0, 500))
}

func TestUnit_ZeroUntilTriggered(t *testing.T) {
	u := New(2)
	for i := 0; i < 20; i++ {
		u.Step(false, 5000, []uint16{1, 2})
		assert.False(t, u.Captured())
	}
	assert.Equal(t, []int32{0, 0}, u.Offsets())
	assert.Equal(t, uint16(1234), u.Corrected(1, 1234))
}

func TestUnit_PerChannelOffsets(t *testing.T) {
	u := New(3)
	pulse(u, 2000, []uint16{1990, 2000, 2100})
	assert.Equal(t, []int32{10, 0, -100}, u.Offsets())
}

func TestUnit_HeldTriggerCapturesOnce(t *testing.T) {
	u := New(1)
	captures := 0
	for i := 0; i < 50; i++ {
		u.Step(true, 1000, []uint16{uint16(900 + i)})
		if u.Captured() {
			captures++
		}
	}
	assert.Equal(t, 1, captures)
	// captured on the third tick with the reading presented at that instant
	assert.Equal(t, int32(1000-902), u.Offset(0))
}

func TestUnit_RetriggerOverwrites(t *testing.T) {
	u := New(1)
	pulse(u, 1000, []uint16{950})
	require.Equal(t, int32(50), u.Offset(0))
	pulse(u, 1000, []uint16{1100})
	assert.Equal(t, int32(-100), u.Offset(0))
}

func TestUnit_Reset(t *testing.T) {
	u := New(1)
	pulse(u, 1000, []uint16{950})
	u.Reset()
	assert.Equal(t, int32(0), u.Offset(0))
	assert.Equal(t, uint16(900), u.Corrected(0, 900))
}

package synchronizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSynchronizer_Latency(t *testing.T) {
	s := New()

	assert.False(t, s.Step(true), "first edge only captures into the first stage")
	assert.True(t, s.Step(true), "second edge exposes the captured level")
	assert.True(t, s.Value())
	assert.False(t, s.Previous())
	assert.True(t, s.Rose())

	assert.True(t, s.Step(false))
	assert.False(t, s.Step(false))
	assert.True(t, s.Previous())
	assert.True(t, s.Fell())
	assert.False(t, s.Rose())
}

func TestSynchronizer_Sequence(t *testing.T) {
	s := New()
	in := []bool{true, false, true, true, false, false, true}
	var out []bool
	for _, v := range in {
		out = append(out, s.Step(v))
	}
	// Output is the input delayed by one Step, starting from reset (false).
	assert.Equal(t, []bool{false, true, false, true, true, false, false}, out)
}

func TestSynchronizer_SinglePulseEdges(t *testing.T) {
	s := New()
	var rises, falls int
	for _, v := range []bool{false, true, false, false, false} {
		s.Step(v)
		if s.Rose() {
			rises++
		}
		if s.Fell() {
			falls++
		}
	}
	assert.Equal(t, 1, rises)
	assert.Equal(t, 1, falls)
}

func TestSynchronizer_Reset(t *testing.T) {
	s := New()
	s.Step(true)
	s.Step(true)
	s.Step(true)
	assert.True(t, s.Value())
	assert.True(t, s.Previous())

	s.Reset()
	assert.False(t, s.Value())
	assert.False(t, s.Previous())
	// first stage was cleared too
	assert.False(t, s.Step(false))
}

package adc

import (
	"testing"

	"github.com/itohio/compadc/pkg/analog"
	"github.com/itohio/compadc/pkg/config"
	"github.com/itohio/compadc/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullScale = 3300

// inputFor places the input half an LSB above code.
func inputFor(code uint16) float64 {
	return analog.Millivolts(code, 8, fullScale) + 6
}

func testConfig(algorithms ...string) *config.Config {
	cfg := config.Default()
	cfg.Converter.SettleTicks = 16
	cfg.Converter.RampFrequency = 1000
	cfg.Converter.TickRate = 8 * 256 * 1000 // 8 ticks per ramp step
	cfg.Channels = nil
	for _, a := range algorithms {
		cfg.Channels = append(cfg.Channels, config.ChannelConfig{Algorithm: a})
	}
	return cfg
}

type harness struct {
	sys *System
	fe  []*analog.Frontend
	in  Inputs
}

func newHarness(t *testing.T, cfg *config.Config, inputs ...float64) *harness {
	t.Helper()
	sys, err := New(cfg)
	require.NoError(t, err)
	h := &harness{sys: sys, in: Inputs{Channels: make([]ChannelInputs, sys.Channels())}}
	for i, ch := range cfg.Channels {
		alg, err := engine.ParseAlgorithm(ch.Algorithm)
		require.NoError(t, err)
		f := analog.New(cfg.Converter.Width, fullScale, 1, 0)
		f.SetInput(inputs[i])
		h.fe = append(h.fe, f)
		h.in.Channels[i] = ChannelInputs{Enable: true, Algorithm: alg}
	}
	return h
}

func (h *harness) tick() *Outputs {
	prev := h.sys.Outputs()
	for i, f := range h.fe {
		h.in.Channels[i].Comparator = f.Step(prev.Channels[i].DAC)
	}
	return h.sys.Tick(h.in)
}

func (h *harness) run(n int) *Outputs {
	var out *Outputs
	for i := 0; i < n; i++ {
		out = h.tick()
	}
	return out
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Converter.Width = 20
	_, err := New(cfg)
	assert.ErrorIs(t, err, config.ErrWidth)
}

func TestSystem_SARChannel(t *testing.T) {
	h := newHarness(t, testConfig(config.AlgorithmSAR), inputFor(100))
	out := h.run(1500)

	ch := out.Channels[0]
	assert.Equal(t, uint16(100), ch.Raw)
	assert.Equal(t, uint16(100), ch.Filtered)
	assert.Equal(t, uint16((100*3313)>>8), ch.Millivolts)
	assert.Equal(t, uint16((100*1284891)>>15), ch.Decimal)
	assert.Equal(t, ch.Decimal, ch.Corrected)
}

func TestSystem_RampChannel(t *testing.T) {
	h := newHarness(t, testConfig(config.AlgorithmRamp), inputFor(100))
	out := h.run(5 * 2048)

	ch := out.Channels[0]
	assert.Equal(t, uint16(100), ch.Raw, "last code at or below the input")
	assert.Equal(t, uint16(100), ch.Filtered)
}

func TestSystem_AlgorithmsAgree(t *testing.T) {
	for _, code := range []uint16{5, 60, 128, 200, 240} {
		h := newHarness(t, testConfig(config.AlgorithmRamp, config.AlgorithmSAR), inputFor(code), inputFor(code))
		out := h.run(2 * 2048)
		assert.Equal(t, out.Channels[1].Raw, out.Channels[0].Raw, "code %d", code)
		assert.Equal(t, code, out.Channels[1].Raw)
	}
}

func TestSystem_PipelineOrdering(t *testing.T) {
	h := newHarness(t, testConfig(config.AlgorithmSAR), inputFor(42))
	var ready, updated []uint64
	for i := 0; i < 2000; i++ {
		out := h.tick()
		if out.Channels[0].Ready {
			ready = append(ready, out.Tick)
		}
		if out.Channels[0].Updated {
			updated = append(updated, out.Tick)
		}
	}
	require.NotEmpty(t, ready)
	require.Len(t, updated, len(ready))
	for i := range ready {
		assert.Equal(t, ready[i]+2, updated[i])
	}
}

func TestSystem_FilterHoldsBetweenEvents(t *testing.T) {
	h := newHarness(t, testConfig(config.AlgorithmSAR), inputFor(42))
	var last uint16
	changes := 0
	for i := 0; i < 2000; i++ {
		out := h.tick()
		if out.Channels[0].Filtered != last {
			changes++
			last = out.Channels[0].Filtered
		}
	}
	// the filter only moves on the first four conversions while the window fills
	assert.LessOrEqual(t, changes, 4)
	assert.Equal(t, uint16(42), last)
}

func TestSystem_Calibration(t *testing.T) {
	h := newHarness(t, testConfig(config.AlgorithmSAR), inputFor(100))
	out := h.run(1500)
	reading := out.Channels[0].Decimal
	require.Equal(t, uint16(3921), reading)

	h.in.Reference = reading + 50
	h.in.Trigger = true
	captures := 0
	for i := 0; i < 10; i++ {
		if h.tick().Captured {
			captures++
		}
	}
	h.in.Trigger = false
	out = h.run(500)

	assert.Equal(t, 1, captures)
	assert.Equal(t, []int32{50}, h.sys.Offsets())
	assert.Equal(t, reading+50, out.Channels[0].Corrected)
}

func TestSystem_CalibrationMillivolts(t *testing.T) {
	cfg := testConfig(config.AlgorithmSAR)
	cfg.Calibration.Units = config.UnitsMillivolts
	h := newHarness(t, cfg, inputFor(100))
	out := h.run(1500)
	mv := out.Channels[0].Millivolts

	h.in.Reference = mv - 20
	h.in.Trigger = true
	h.run(5)
	h.in.Trigger = false
	out = h.run(10)

	assert.Equal(t, []int32{-20}, h.sys.Offsets())
	assert.Equal(t, mv-20, out.Channels[0].Corrected)
}

func TestSystem_DisabledChannel(t *testing.T) {
	h := newHarness(t, testConfig(config.AlgorithmSAR), inputFor(100))
	h.in.Channels[0].Enable = false
	for i := 0; i < 1000; i++ {
		out := h.tick()
		require.False(t, out.Channels[0].Ready)
	}
	assert.Equal(t, uint16(0), h.sys.Outputs().Channels[0].Raw)
}

func TestSystem_MissingInputsAreDisabled(t *testing.T) {
	sys, err := New(testConfig(config.AlgorithmSAR, config.AlgorithmSAR))
	require.NoError(t, err)
	for i := 0; i < 500; i++ {
		out := sys.Tick(Inputs{})
		require.False(t, out.Channels[0].Ready)
		require.False(t, out.Channels[1].Ready)
	}
}

func TestSystem_Reset(t *testing.T) {
	h := newHarness(t, testConfig(config.AlgorithmSAR), inputFor(100))
	h.run(1500)
	h.in.Reference = 5000
	h.in.Trigger = true
	h.run(5)
	h.in.Trigger = false
	require.NotEqual(t, int32(0), h.sys.Offsets()[0])

	h.in.Reset = true
	out := h.run(3)
	assert.True(t, out.Reset)
	assert.Equal(t, ChannelOutputs{}, out.Channels[0])
	assert.Equal(t, []int32{0}, h.sys.Offsets())

	// conversions resume from a clean pipeline
	h.in.Reset = false
	out = h.run(200)
	assert.False(t, out.Reset)
	assert.Equal(t, uint16(100), out.Channels[0].Raw)
	assert.Equal(t, uint16(25), out.Channels[0].Filtered, "one sample in a zero-filled window of four")
}

// Package adc composes the conversion pipeline of every channel and the
// shared calibration unit into one clocked system.
//
// Each Tick advances all components in lock step. Stages read the outputs
// their upstream registered on the previous tick, so a conversion event at
// tick t updates the filter at t+1 and the scaler at t+2. The corrected
// reading is combinational on the scaler output and the stored offset.
package adc

import (
	"fmt"

	"github.com/itohio/compadc/pkg/calib"
	"github.com/itohio/compadc/pkg/config"
	"github.com/itohio/compadc/pkg/engine"
	"github.com/itohio/compadc/pkg/filter"
	"github.com/itohio/compadc/pkg/ramp"
	"github.com/itohio/compadc/pkg/scale"
)

// ChannelInputs are the per-channel inputs sampled on a tick.
type ChannelInputs struct {
	Enable     bool
	Algorithm  engine.Algorithm
	Comparator bool // asynchronous
}

// Inputs are every input of the system for one tick.
type Inputs struct {
	Reset     bool
	Channels  []ChannelInputs
	Trigger   bool // asynchronous
	Reference uint16
}

// ChannelOutputs are the per-channel outputs after a tick.
type ChannelOutputs struct {
	DAC        uint16
	Raw        uint16
	Filtered   uint16
	Millivolts uint16
	Decimal    uint16
	Corrected  uint16
	Ready      bool // conversion event, one tick
	Updated    bool // scaler latched a new value, one tick
}

// Outputs are every output of the system after a tick.
type Outputs struct {
	Tick     uint64
	Channels []ChannelOutputs
	Captured bool // calibration offsets were replaced on this tick
	Reset    bool // every register was cleared on this tick
}

type pipeline struct {
	engine *engine.Channel
	filter *filter.MovingAverage
	scaler *scale.Scaler
}

// System owns all state of the converter.
type System struct {
	width     int
	millivolt bool
	channels  []pipeline
	calib     *calib.Unit
	readings  []uint16
	tick      uint64
	out       Outputs
}

// New validates cfg and builds a System in its reset state.
func New(cfg *config.Config) (*System, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	policy, err := ramp.ParsePolicy(cfg.Converter.DisabledPolicy)
	if err != nil {
		return nil, err
	}

	p := engine.Params{
		Width:       cfg.Converter.Width,
		StepTicks:   cfg.Converter.StepTicks(),
		SettleTicks: cfg.Converter.SettleTicks,
		Policy:      policy,
	}

	n := len(cfg.Channels)
	s := &System{
		width:     cfg.Converter.Width,
		millivolt: cfg.Calibration.Units == config.UnitsMillivolts,
		channels:  make([]pipeline, n),
		calib:     calib.New(n),
		readings:  make([]uint16, n),
		out:       Outputs{Channels: make([]ChannelOutputs, n)},
	}
	for i := range s.channels {
		s.channels[i] = pipeline{
			engine: engine.New(p),
			filter: filter.New(cfg.Converter.WindowExponent),
			scaler: scale.New(cfg.Converter.Width),
		}
	}
	return s, nil
}

// Channels returns the number of channels.
func (s *System) Channels() int {
	return len(s.channels)
}

// Width returns the sample width in bits.
func (s *System) Width() int {
	return s.width
}

// Tick advances the system by one clock. Missing channel inputs are treated
// as disabled. The returned Outputs are reused by the next Tick.
func (s *System) Tick(in Inputs) *Outputs {
	s.tick++
	s.out.Tick = s.tick
	s.out.Reset = in.Reset

	if in.Reset {
		s.reset()
		return &s.out
	}

	// downstream first: each stage consumes what its upstream registered last tick
	for i := range s.channels {
		p := &s.channels[i]
		p.scaler.Step(p.filter.Valid(), p.filter.Estimate())
		p.filter.Step(p.engine.Ready(), p.engine.Raw())

		var ci ChannelInputs
		if i < len(in.Channels) {
			ci = in.Channels[i]
		}
		p.engine.Step(engine.Inputs{
			Enable:     ci.Enable,
			Algorithm:  ci.Algorithm,
			Comparator: ci.Comparator,
		})
		s.readings[i] = s.display(p.scaler)
	}

	s.calib.Step(in.Trigger, in.Reference, s.readings)
	s.out.Captured = s.calib.Captured()

	for i := range s.channels {
		p := &s.channels[i]
		s.out.Channels[i] = ChannelOutputs{
			DAC:        p.engine.DAC(),
			Raw:        p.engine.Raw(),
			Filtered:   p.filter.Estimate(),
			Millivolts: p.scaler.MillivoltsOut(),
			Decimal:    p.scaler.DecimalOut(),
			Corrected:  s.calib.Corrected(i, s.readings[i]),
			Ready:      p.engine.Ready(),
			Updated:    p.scaler.Updated(),
		}
	}
	return &s.out
}

// Outputs returns the outputs of the last Tick.
func (s *System) Outputs() *Outputs {
	return &s.out
}

// Offsets returns the calibration offset of every channel.
func (s *System) Offsets() []int32 {
	return s.calib.Offsets()
}

func (s *System) display(sc *scale.Scaler) uint16 {
	if s.millivolt {
		return sc.MillivoltsOut()
	}
	return sc.DecimalOut()
}

func (s *System) reset() {
	for i := range s.channels {
		p := &s.channels[i]
		p.engine.Reset()
		p.filter.Reset()
		p.scaler.Reset()
		s.readings[i] = 0
		s.out.Channels[i] = ChannelOutputs{}
	}
	s.calib.Reset()
	s.out.Captured = false
}

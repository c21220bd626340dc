// Package sample runs the converter simulation and streams its readings.
package sample

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/itohio/compadc/pkg/adc"
	"github.com/itohio/compadc/pkg/analog"
	"github.com/itohio/compadc/pkg/config"
	"github.com/itohio/compadc/pkg/engine"
	"github.com/itohio/compadc/pkg/reference"
)

// Reading is one scaler update of one channel.
type Reading struct {
	Tick       uint64
	Elapsed    time.Duration // simulated time since start
	Channel    int
	Name       string
	Raw        uint16
	Filtered   uint16
	Millivolts uint16
	Decimal    uint16
	Corrected  uint16
	Captures   int // calibration captures since the run started or the last reset
}

// Runner drives an adc.System with simulated analog front-ends.
type Runner struct {
	cfg       *config.Config
	sys       *adc.System
	frontends []*analog.Frontend
	names     []string
	tickTime  float64 // seconds per tick

	mu      sync.Mutex
	inputs  adc.Inputs
	trigger int // ticks left with the calibration trigger asserted
	reset   bool
}

// NewRunner builds the system and one front-end per configured channel.
func NewRunner(cfg *config.Config) (*Runner, error) {
	sys, err := adc.New(cfg)
	if err != nil {
		return nil, err
	}

	r := &Runner{
		cfg:      cfg,
		sys:      sys,
		tickTime: 1 / cfg.Converter.TickRate,
		inputs:   adc.Inputs{Channels: make([]adc.ChannelInputs, len(cfg.Channels))},
	}

	for i, ch := range cfg.Channels {
		alg, err := engine.ParseAlgorithm(ch.Algorithm)
		if err != nil {
			return nil, fmt.Errorf("channel %s: %w", ch.Name, err)
		}
		fe := analog.New(cfg.Converter.Width, cfg.Mock.FullScaleMillivolts, cfg.Mock.DACTimeConstant, cfg.Mock.NoiseMillivolts)
		fe.SetInput(ch.InputMillivolts)
		r.frontends = append(r.frontends, fe)
		r.names = append(r.names, ch.Name)
		r.inputs.Channels[i] = adc.ChannelInputs{Enable: !ch.Disabled, Algorithm: alg}
	}

	return r, nil
}

// SetInput changes the analog input of channel ch.
func (r *Runner) SetInput(ch int, mv float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frontends[ch].SetInput(mv)
}

// SetEnable enables or disables channel ch.
func (r *Runner) SetEnable(ch int, enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs.Channels[ch].Enable = enable
}

// SetAlgorithm selects the search strategy of channel ch.
func (r *Runner) SetAlgorithm(ch int, alg engine.Algorithm) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs.Channels[ch].Algorithm = alg
}

// SetReference sets the reference reading presented to the calibration unit.
func (r *Runner) SetReference(v uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inputs.Reference = v
}

// Follow copies readings from a reference device until the channel closes
// or ctx is done.
func (r *Runner) Follow(ctx context.Context, in <-chan reference.Reading) {
	for {
		select {
		case <-ctx.Done():
			return
		case rd, ok := <-in:
			if !ok {
				return
			}
			r.SetReference(rd.Value)
		}
	}
}

// Calibrate asserts the calibration trigger for the configured number of ticks.
func (r *Runner) Calibrate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trigger = r.cfg.Calibration.TriggerTicks
}

// Reset asserts the system reset on the next tick.
func (r *Runner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reset = true
}

// Offsets returns the calibration offsets.
func (r *Runner) Offsets() []int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sys.Offsets()
}

// Step advances the simulation by one tick. The returned outputs are only
// valid until the next Step.
func (r *Runner) Step() *adc.Outputs {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.inputs.Reset = r.reset
	if r.reset {
		r.reset = false
		r.trigger = 0
		for _, fe := range r.frontends {
			fe.Reset()
		}
	}

	prev := r.sys.Outputs()
	for i, fe := range r.frontends {
		r.inputs.Channels[i].Comparator = fe.Step(prev.Channels[i].DAC)
	}
	r.inputs.Trigger = r.trigger > 0
	if r.trigger > 0 {
		r.trigger--
	}
	return r.sys.Tick(r.inputs)
}

// Run steps the simulation in a goroutine and emits a Reading for every
// scaler update. ticks == 0 runs until ctx is cancelled. The returned channel
// is closed when the run ends.
func (r *Runner) Run(ctx context.Context, ticks int64) <-chan Reading {
	bufSize := r.cfg.Simulation.BufferSize
	if bufSize <= 0 {
		bufSize = 100
	}
	out := make(chan Reading, bufSize)

	go func() {
		defer close(out)

		captures := 0
		for n := int64(0); ticks == 0 || n < ticks; n++ {
			if n%1024 == 0 && ctx.Err() != nil {
				return
			}

			o := r.Step()
			if o.Reset {
				captures = 0
			}
			if o.Captured {
				captures++
				log.Printf("Calibration offsets captured at tick %d: %v", o.Tick, r.Offsets())
			}
			for ch := range o.Channels {
				c := &o.Channels[ch]
				if !c.Updated {
					continue
				}
				reading := Reading{
					Tick:       o.Tick,
					Elapsed:    time.Duration(float64(o.Tick) * r.tickTime * float64(time.Second)),
					Channel:    ch,
					Name:       r.names[ch],
					Raw:        c.Raw,
					Filtered:   c.Filtered,
					Millivolts: c.Millivolts,
					Decimal:    c.Decimal,
					Corrected:  c.Corrected,
					Captures:   captures,
				}
				select {
				case out <- reading:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}

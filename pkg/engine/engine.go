// Package engine implements the per-channel conversion engine. It owns the
// comparator synchronizer and both search strategies, and exposes the code
// of whichever strategy is selected.
package engine

import (
	"fmt"

	"github.com/itohio/compadc/pkg/ramp"
	"github.com/itohio/compadc/pkg/sar"
	"github.com/itohio/compadc/pkg/synchronizer"
)

// Algorithm selects the search strategy of a channel.
type Algorithm int

const (
	// Ramp sweeps every code and captures on the comparator falling edge.
	Ramp Algorithm = iota
	// SAR bisects the code space one bit per settle round.
	SAR
)

func (a Algorithm) String() string {
	switch a {
	case Ramp:
		return "ramp"
	case SAR:
		return "sar"
	default:
		return fmt.Sprintf("Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm converts a configuration name into an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch name {
	case "ramp":
		return Ramp, nil
	case "sar":
		return SAR, nil
	}
	return Ramp, fmt.Errorf("unknown algorithm %q", name)
}

// Params are the construction-time parameters of a channel.
type Params struct {
	Width       int
	StepTicks   int
	SettleTicks int
	Policy      ramp.Policy
}

// Inputs are sampled once per tick.
type Inputs struct {
	Enable     bool
	Algorithm  Algorithm
	Comparator bool // raw, asynchronous comparator level
}

// verdictDelay is the number of ticks between driving a code and seeing the
// comparator verdict on it as the synchronizer's previous value: one DAC
// register, two synchronizer registers and the previous-value register.
const verdictDelay = 4

// Channel is one conversion engine.
type Channel struct {
	sync *synchronizer.Synchronizer
	ramp *ramp.Generator
	sar  *sar.Controller

	// driven[i] is the DAC code driven i+1 ticks ago.
	driven [verdictDelay]uint16

	algorithm Algorithm
	raw       uint16
	ready     bool
}

// New creates a Channel in its reset state.
func New(p Params) *Channel {
	return &Channel{
		sync: synchronizer.New(),
		ramp: ramp.New(p.Width, p.StepTicks, p.Policy),
		sar:  sar.New(p.Width, p.SettleTicks),
	}
}

// Step advances the channel by one tick. Decisions use the synchronized
// comparator level registered on the previous tick; the raw comparator input
// only enters the synchronizer.
func (c *Channel) Step(in Inputs) {
	level, fell := c.sync.Value(), c.sync.Fell()
	rampOn := in.Enable && in.Algorithm == Ramp
	sarOn := in.Enable && in.Algorithm == SAR

	c.ready = false
	if rampOn && fell {
		// the last code the input was judged above
		c.raw = c.driven[verdictDelay-1]
		c.ready = true
	}

	c.sar.Step(sarOn, level)
	if in.Algorithm == SAR && c.sar.Ready() {
		c.raw = c.sar.Result()
		c.ready = true
	}

	c.ramp.Step(rampOn)
	c.sync.Step(in.Comparator)
	c.algorithm = in.Algorithm

	copy(c.driven[1:], c.driven[:verdictDelay-1])
	c.driven[0] = c.DAC()
}

// DAC returns the code driven to the external DAC by the selected strategy.
func (c *Channel) DAC() uint16 {
	if c.algorithm == SAR {
		return c.sar.Code()
	}
	return c.ramp.Code()
}

// PWM returns the duty-cycle modulated ramp output.
func (c *Channel) PWM() bool {
	return c.ramp.Output()
}

// Raw returns the last latched sample.
func (c *Channel) Raw() uint16 {
	return c.raw
}

// Ready reports whether the last Step completed a conversion.
func (c *Channel) Ready() bool {
	return c.ready
}

// Algorithm returns the strategy selected on the last Step.
func (c *Channel) Algorithm() Algorithm {
	return c.algorithm
}

// SARState exposes the controller state for diagnostics.
func (c *Channel) SARState() sar.State {
	return c.sar.State()
}

// Reset clears every register of the channel.
func (c *Channel) Reset() {
	c.sync.Reset()
	c.ramp.Reset()
	c.sar.Reset()
	c.algorithm = Ramp
	c.driven = [verdictDelay]uint16{}
	c.raw = 0
	c.ready = false
}

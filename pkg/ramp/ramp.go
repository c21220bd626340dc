// Package ramp implements the open-loop sweep source of the ramp-compare
// converter: a slow staircase code plus a fast carrier compared against it.
package ramp

import "fmt"

// Policy selects what a disabled generator does on each tick.
type Policy int

const (
	// PolicyZero forces ramp, carrier and output to zero while disabled.
	PolicyZero Policy = iota
	// PolicyHold freezes the counters at their last value while disabled.
	PolicyHold
)

func (p Policy) String() string {
	switch p {
	case PolicyZero:
		return "zero"
	case PolicyHold:
		return "hold"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// ParsePolicy converts a configuration name into a Policy.
func ParsePolicy(name string) (Policy, error) {
	switch name {
	case "zero":
		return PolicyZero, nil
	case "hold":
		return PolicyHold, nil
	}
	return PolicyZero, fmt.Errorf("unknown disabled policy %q", name)
}

// Generator produces a code that increments every stepTicks ticks and wraps
// modulo 2^W, and a PWM output asserted while carrier < ramp.
type Generator struct {
	mask      uint16
	stepTicks int
	policy    Policy

	ramp    uint16
	carrier uint16
	count   int
	enabled bool
}

// New creates a Generator. stepTicks below 1 is clamped to 1.
func New(width int, stepTicks int, policy Policy) *Generator {
	if stepTicks < 1 {
		stepTicks = 1
	}
	return &Generator{
		mask:      uint16((uint32(1) << width) - 1),
		stepTicks: stepTicks,
		policy:    policy,
	}
}

// Step advances the generator by one tick.
func (g *Generator) Step(enabled bool) {
	g.enabled = enabled
	if !enabled {
		if g.policy == PolicyZero {
			g.ramp = 0
			g.carrier = 0
			g.count = 0
		}
		return
	}

	g.carrier = (g.carrier + 1) & g.mask
	g.count++
	if g.count >= g.stepTicks {
		g.count = 0
		g.ramp = (g.ramp + 1) & g.mask
	}
}

// Code returns the current ramp value driven to the DAC.
func (g *Generator) Code() uint16 {
	return g.ramp
}

// Carrier returns the free-running carrier counter.
func (g *Generator) Carrier() uint16 {
	return g.carrier
}

// Output returns the duty-cycle modulated output.
func (g *Generator) Output() bool {
	return g.enabled && g.carrier < g.ramp
}

// StepTicks returns the configured ticks per ramp increment.
func (g *Generator) StepTicks() int {
	return g.stepTicks
}

// Reset clears ramp, carrier and step counter.
func (g *Generator) Reset() {
	g.ramp = 0
	g.carrier = 0
	g.count = 0
	g.enabled = false
}

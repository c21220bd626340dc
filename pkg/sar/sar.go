// Package sar implements a successive-approximation search over DAC codes.
//
// The controller trials one bit per round, MSB first. Each round sets the
// bit, waits for the DAC and comparator to settle, then keeps or clears the
// bit according to the synchronized comparator verdict. A conversion takes
// W rounds of SetBit, Wait and Compare plus the Start and Done states.
package sar

import "fmt"

// State is the controller state.
type State int

const (
	// Idle holds until enabled.
	Idle State = iota
	// Start clears the trial code and points the cursor at the MSB.
	Start
	// SetBit sets the trial bit under the cursor.
	SetBit
	// Wait holds for the settle ticks.
	Wait
	// Compare keeps or clears the trial bit and moves the cursor down.
	Compare
	// Done pulses ready with the finished code.
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Start:
		return "Start"
	case SetBit:
		return "SetBit"
	case Wait:
		return "Wait"
	case Compare:
		return "Compare"
	case Done:
		return "Done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Controller is the SAR finite-state machine.
type Controller struct {
	width  int
	settle int

	state  State
	trial  uint16
	cursor int
	wait   int
	result uint16
	ready  bool
}

// New creates a Controller for width-bit codes. settleTicks below 1 is clamped to 1.
func New(width int, settleTicks int) *Controller {
	if settleTicks < 1 {
		settleTicks = 1
	}
	return &Controller{
		width:  width,
		settle: settleTicks,
	}
}

// Step advances the state machine by one tick. comparator must be the
// synchronized comparator level: true when the input is above the DAC output.
//
// Dropping enabled in any state other than Idle and Done abandons the
// conversion at once; the partial trial is discarded and no ready pulse fires.
func (c *Controller) Step(enabled bool, comparator bool) {
	c.ready = false

	if !enabled && c.state != Idle && c.state != Done {
		c.abort()
		return
	}

	switch c.state {
	case Idle:
		if enabled {
			c.state = Start
		}

	case Start:
		c.trial = 0
		c.cursor = c.width - 1
		c.state = SetBit

	case SetBit:
		c.trial |= 1 << c.cursor
		c.wait = 0
		c.state = Wait

	case Wait:
		c.wait++
		if c.wait >= c.settle {
			c.state = Compare
		}

	case Compare:
		// ties resolve toward the lower code
		if !comparator {
			c.trial &^= 1 << c.cursor
		}
		if c.cursor > 0 {
			c.cursor--
			c.state = SetBit
		} else {
			c.state = Done
		}

	case Done:
		c.result = c.trial
		c.ready = true
		if enabled {
			c.state = Start
		} else {
			c.state = Idle
		}
	}
}

func (c *Controller) abort() {
	c.state = Idle
	c.trial = 0
	c.cursor = 0
	c.wait = 0
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// Code returns the trial code driven to the DAC.
func (c *Controller) Code() uint16 {
	return c.trial
}

// Result returns the last finalized conversion.
func (c *Controller) Result() uint16 {
	return c.result
}

// Ready reports whether the last Step completed a conversion.
func (c *Controller) Ready() bool {
	return c.ready
}

// ConversionTicks returns the number of ticks from Start to the ready pulse
// of one conversion.
func (c *Controller) ConversionTicks() int {
	return 1 + c.width*(c.settle+2) + 1
}

// Reset returns the controller to Idle and clears trial and result.
func (c *Controller) Reset() {
	c.abort()
	c.result = 0
	c.ready = false
}

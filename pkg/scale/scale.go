// Package scale maps filtered codes into display units without a divider.
//
// Each mapping is (code * multiplier) >> shift, where the multiplier is the
// target ratio pre-scaled by 2^shift. For 8-bit codes the multipliers are
// 3313 (millivolts, shift 8) and 1284891 (0..9999, shift 15). Wider codes
// add one bit of shift per extra code bit to keep the same precision.
package scale

const (
	FullScaleMillivolts = 3300
	FullScaleDecimal    = 9999

	MillivoltShift = 8
	DecimalShift   = 15
)

// Multiplier returns round(fullScale * 2^shift / (2^width - 1)).
func Multiplier(fullScale uint64, shift uint, width int) uint64 {
	max := (uint64(1) << width) - 1
	return (fullScale<<shift + max/2) / max
}

// Shift returns the fixed-point shift used for width-bit codes.
func Shift(base uint, width int) uint {
	if width > 8 {
		return base + uint(width-8)
	}
	return base
}

// Scaler holds the two registered outputs.
type Scaler struct {
	mvShift  uint
	mvMul    uint64
	decShift uint
	decMul   uint64

	millivolts uint16
	decimal    uint16
	updated    bool
}

// New creates a Scaler for width-bit codes.
func New(width int) *Scaler {
	mvShift := Shift(MillivoltShift, width)
	decShift := Shift(DecimalShift, width)
	return &Scaler{
		mvShift:  mvShift,
		mvMul:    Multiplier(FullScaleMillivolts, mvShift, width),
		decShift: decShift,
		decMul:   Multiplier(FullScaleDecimal, decShift, width),
	}
}

// Millivolts maps a code to millivolts.
func (s *Scaler) Millivolts(code uint16) uint16 {
	return uint16((uint64(code) * s.mvMul) >> s.mvShift)
}

// Decimal maps a code to 0..9999.
func (s *Scaler) Decimal(code uint16) uint16 {
	return uint16((uint64(code) * s.decMul) >> s.decShift)
}

// Step latches both mappings of code when enable is set and holds otherwise.
func (s *Scaler) Step(enable bool, code uint16) {
	s.updated = enable
	if !enable {
		return
	}
	s.millivolts = s.Millivolts(code)
	s.decimal = s.Decimal(code)
}

// MillivoltsOut returns the latched millivolt value.
func (s *Scaler) MillivoltsOut() uint16 {
	return s.millivolts
}

// DecimalOut returns the latched 0..9999 value.
func (s *Scaler) DecimalOut() uint16 {
	return s.decimal
}

// Updated reports whether the last Step latched new values.
func (s *Scaler) Updated() bool {
	return s.updated
}

// Reset clears the latched outputs.
func (s *Scaler) Reset() {
	s.millivolts = 0
	s.decimal = 0
	s.updated = false
}

// Package field supplies the magnetic field history that drives each spin.
//
// A [Source] is a pure function of position and time. Implementations must be
// safe for concurrent use because every partition worker shares the same one.
// [Sequence] is the built-in piecewise-constant source made of [Segment]
// values (hard RF pulses, linear gradients and a constant offset).
package field

// Position is a point in sample coordinates.
type Position struct {
	X, Y, Z float64
}

type Source interface {
	Field(p Position, t float64) (bx, by, bz float64)
}

// Func adapts a plain function to a Source.
type Func func(p Position, t float64) (bx, by, bz float64)

func (f Func) Field(p Position, t float64) (bx, by, bz float64) {
	return f(p, t)
}

// Breakpointer is implemented by sources that are discontinuous at known times.
type Breakpointer interface {
	Breakpoints() []float64
}

// Bounded is implemented by sources that are only defined on [0, Duration()].
type Bounded interface {
	Duration() float64
}

// Constant is a time-invariant, spatially uniform field.
type Constant struct {
	Bx, By, Bz float64
}

func (c Constant) Field(Position, float64) (bx, by, bz float64) {
	return c.Bx, c.By, c.Bz
}

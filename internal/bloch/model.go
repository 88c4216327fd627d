// Package bloch implements the Bloch equation for a single spin in
// cylindrical coordinates.
//
// The state is (Mxy, Phi, Mz) with Mx = Mxy*cos(Phi) and My = Mxy*sin(Phi).
// The phase rate divides by max(Mxy, Epsilon) so that a spin sitting on the
// longitudinal axis still has a bounded derivative.
package bloch

import (
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/field"
)

// Epsilon guards the phase-rate denominator.
const Epsilon = 1e-10

// Components of the cylindrical state.
const (
	Mxy = iota
	Phi
	Mz
)

// Params describes one spin. Offset is added to Bz.
type Params struct {
	Pos    field.Position
	M0     float64
	R1     float64
	R2     float64
	Offset float64
}

// Model is the right-hand side of one spin under a shared field source.
// It is cheap to construct; create one per spin.
type Model struct {
	p        Params
	src      field.Source
	duration float64
	bounded  bool
	breaks   []float64
}

func New(src field.Source, p Params) *Model {
	m := &Model{p: p, src: src}
	if b, ok := src.(field.Bounded); ok {
		m.duration = b.Duration()
		m.bounded = true
	}
	if bp, ok := src.(field.Breakpointer); ok {
		m.breaks = bp.Breakpoints()
	}
	return m
}

func (m *Model) Params() Params { return m.p }

func (m *Model) StateDim() int { return 3 }

func (m *Model) Breakpoints() []float64 { return m.breaks }

// active reports whether the field is defined at t.
func (m *Model) active(t float64) bool {
	return t >= 0 && (!m.bounded || t <= m.duration)
}

func (m *Model) field(t float64) (bx, by, bz float64) {
	bx, by, bz = m.src.Field(m.p.Pos, t)
	return bx, by, bz + m.p.Offset
}

func (m *Model) Derive(x dynamo.State, t float64) dynamo.State {
	dx := make(dynamo.State, 3)
	if !m.active(t) {
		return dx
	}

	bx, by, bz := m.field(t)
	r1, r2, m0 := m.p.R1, m.p.R2, m.p.M0

	sin, cos := math.Sincos(x[Phi])
	mx := x[Mxy] * cos
	my := x[Mxy] * sin
	mz := x[Mz]

	mxDot := -r2*mx + bz*my - by*mz
	myDot := -bz*mx - r2*my + bx*mz
	mzDot := by*mx - bx*my + r1*(m0-mz)

	dx[Mxy] = cos*mxDot + sin*myDot
	dx[Phi] = (cos*myDot - sin*mxDot) / math.Max(x[Mxy], Epsilon)
	dx[Mz] = mzDot
	return dx
}

// Jacobian fills jac with the partial derivatives of Derive. Below Epsilon
// the guarded denominator is constant, so d(dPhi)/dMxy is taken from the
// numerator alone.
func (m *Model) Jacobian(x dynamo.State, t float64, jac []float64) {
	for i := range jac[:9] {
		jac[i] = 0
	}
	if !m.active(t) {
		return
	}

	bx, by, bz := m.field(t)
	r1, r2 := m.p.R1, m.p.R2

	a, z := x[Mxy], x[Mz]
	sin, cos := math.Sincos(x[Phi])
	den := math.Max(a, Epsilon)

	// transverse field projected on and perpendicular to the magnetization
	par := bx*cos + by*sin
	perp := bx*sin - by*cos

	jac[0] = -r2
	jac[1] = z * par
	jac[2] = perp

	if a > Epsilon {
		jac[3] = -z * par / (a * a)
	} else {
		jac[3] = -bz / Epsilon
	}
	jac[4] = -z * perp / den
	jac[5] = par / den

	jac[6] = -perp
	jac[7] = -a * par
	jac[8] = -r1
}

// Normalize wraps the phase into (-2*pi, 2*pi).
func (m *Model) Normalize(x dynamo.State) {
	x[Phi] = math.Mod(x[Phi], 2*math.Pi)
}

// ValidStep rejects steps that turn the phase by more than half a
// revolution. Near Mxy = 0 the phase rate is of order 1/Epsilon and an
// explicit step can throw the phase anywhere while both halves of a
// doubled step agree.
func (m *Model) ValidStep(prev, next dynamo.State) bool {
	return math.Abs(next[Phi]-prev[Phi]) <= math.Pi
}

// Equilibrium is the fully relaxed state for equilibrium magnetization m0.
func Equilibrium(m0 float64) dynamo.State {
	return dynamo.State{0, 0, m0}
}

// Cartesian converts a cylindrical state to (Mx, My, Mz).
func Cartesian(x dynamo.State) (mx, my, mz float64) {
	sin, cos := math.Sincos(x[Phi])
	return x[Mxy] * cos, x[Mxy] * sin, x[Mz]
}

// FromCartesian converts (Mx, My, Mz) to a cylindrical state.
func FromCartesian(mx, my, mz float64) dynamo.State {
	return dynamo.State{math.Hypot(mx, my), math.Atan2(my, mx), mz}
}

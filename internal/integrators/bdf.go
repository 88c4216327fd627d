package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
	"gonum.org/v1/gonum/mat"
)

// newtonTol is the default weighting used by the fixed-step Step method.
var newtonTol = dynamo.Tolerance{Rel: 1e-8, Abs: dynamo.State{1e-10}}

// BDF is the first-order backward differentiation formula (backward Euler)
// with a full Newton corrector. The adaptive step compares one step of size
// dt against two of size dt/2 and returns the extrapolated value
// 2*y_half - y_full, which is second order and L-stable.
type BDF struct {
	safety    float64
	minScale  float64
	maxScale  float64
	failScale float64
	maxIter   int
	converged float64

	n     int
	jac   []float64
	iter  *mat.Dense
	rhs   *mat.VecDense
	delta *mat.VecDense
	step  dynamo.State
	lu    mat.LU
}

func NewBDF() *BDF {
	return &BDF{
		safety:    0.9,
		minScale:  0.2,
		maxScale:  5.0,
		failScale: 0.25,
		maxIter:   7,
		converged: 0.05,
	}
}

func (b *BDF) ensureScratch(n int) {
	if b.n != n {
		b.n = n
		b.jac = make([]float64, n*n)
		b.iter = mat.NewDense(n, n, nil)
		b.rhs = mat.NewVecDense(n, nil)
		b.delta = mat.NewVecDense(n, nil)
		b.step = make(dynamo.State, n)
	}
}

// Step takes one backward Euler step. A failed corrector yields a NaN state
// so that state validation reports it.
func (b *BDF) Step(dyn dynamo.System, x dynamo.State, t, dt float64) dynamo.State {
	y, err := b.solve(dyn, x, t, dt, newtonTol)
	if err != nil {
		y = make(dynamo.State, len(x))
		for i := range y {
			y[i] = math.NaN()
		}
	}
	return y
}

func (b *BDF) StepAdaptive(dyn dynamo.System, x dynamo.State, t, dt float64, tol dynamo.Tolerance) (dynamo.State, float64, error) {
	full, err := b.solve(dyn, x, t, dt, tol)
	if err != nil {
		return nil, dt * b.failScale, err
	}
	half, err := b.solve(dyn, x, t, dt/2, tol)
	if err != nil {
		return nil, dt * b.failScale, err
	}
	two, err := b.solve(dyn, half, t+dt/2, dt/2, tol)
	if err != nil {
		return nil, dt * b.failScale, err
	}

	n := len(x)
	errEst := make(dynamo.State, n)
	xNew := make(dynamo.State, n)
	for i := 0; i < n; i++ {
		errEst[i] = two[i] - full[i]
		xNew[i] = two[i] + errEst[i]
	}

	errNorm := tol.ErrorNorm(errEst, x, xNew)
	if errNorm > 1 || math.IsNaN(errNorm) {
		scale := b.minScale
		if !math.IsNaN(errNorm) {
			scale = math.Max(b.minScale, b.safety*math.Pow(errNorm, -0.5))
		}
		return nil, dt * scale, dynamo.ErrStepRejected
	}

	scale := b.maxScale
	if errNorm > 0 {
		scale = math.Min(b.maxScale, b.safety*math.Pow(errNorm, -0.5))
	}
	return xNew, dt * scale, nil
}

// solve finds y with y - x - h*f(y, t+h) = 0 by Newton iteration starting at x.
func (b *BDF) solve(dyn dynamo.System, x dynamo.State, t, h float64, tol dynamo.Tolerance) (dynamo.State, error) {
	n := len(x)
	if dyn.StateDim() != n {
		return nil, dynamo.ErrDimensionMismatch
	}
	b.ensureScratch(n)

	tn := t + h
	y := x.Clone()
	jd, analytic := dyn.(dynamo.Jacobian)
	prev := math.Inf(1)

	for k := 0; k < b.maxIter; k++ {
		f := dyn.Derive(y, tn)
		if analytic {
			jd.Jacobian(y, tn, b.jac)
		} else {
			b.finiteDiff(dyn, y, tn, f)
		}

		for i := 0; i < n; i++ {
			b.rhs.SetVec(i, x[i]+h*f[i]-y[i])
			for j := 0; j < n; j++ {
				v := -h * b.jac[i*n+j]
				if i == j {
					v++
				}
				b.iter.Set(i, j, v)
			}
		}
		if !finite(b.iter.RawMatrix().Data) || !finite(b.rhs.RawVector().Data) {
			return nil, fmt.Errorf("%w: non-finite iteration matrix at t=%g", dynamo.ErrNonConvergence, tn)
		}

		b.lu.Factorize(b.iter)
		if err := b.lu.SolveVecTo(b.delta, false, b.rhs); err != nil {
			return nil, fmt.Errorf("%w: %v", dynamo.ErrNonConvergence, err)
		}

		for i := 0; i < n; i++ {
			b.step[i] = b.delta.AtVec(i)
			y[i] += b.step[i]
		}
		if !y.IsValid() {
			return nil, fmt.Errorf("%w: iterate left the finite range", dynamo.ErrNonConvergence)
		}

		norm := tol.ErrorNorm(b.step, x, y)
		if norm <= b.converged {
			return y, nil
		}
		if k > 0 && norm > 2*prev {
			return nil, fmt.Errorf("%w: corrector diverging (h=%g)", dynamo.ErrNonConvergence, h)
		}
		prev = norm
	}

	return nil, fmt.Errorf("%w: no convergence in %d iterations (h=%g)", dynamo.ErrNonConvergence, b.maxIter, h)
}

func (b *BDF) finiteDiff(dyn dynamo.System, y dynamo.State, t float64, f0 dynamo.State) {
	n := len(y)
	for j := 0; j < n; j++ {
		save := y[j]
		d := math.Sqrt(epsilon) * math.Max(math.Abs(save), 1)
		y[j] = save + d
		fj := dyn.Derive(y, t)
		y[j] = save
		for i := 0; i < n; i++ {
			b.jac[i*n+j] = (fj[i] - f0[i]) / d
		}
	}
}

const epsilon = 2.220446049250313e-16

func finite(v []float64) bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

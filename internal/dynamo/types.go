package dynamo

import (
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type System interface {
	Derive(x State, t float64) State
	StateDim() int
}

// Jacobian fills jac (row-major, StateDim x StateDim) with df_i/dx_j at (x, t).
type Jacobian interface {
	Jacobian(x State, t float64, jac []float64)
}

// Normalizer maps an accepted state back into its canonical range in place.
type Normalizer interface {
	Normalize(x State)
}

// StepValidator rejects a step whose error estimate looks fine but whose
// result left the region where the state is meaningful. Drivers consult it
// when they estimate the error by step doubling.
type StepValidator interface {
	ValidStep(prev, next State) bool
}

// Breakpointer reports ascending times at which the right-hand side may be
// discontinuous. Drivers stop exactly at each of them.
type Breakpointer interface {
	Breakpoints() []float64
}

type Integrator interface {
	Step(dyn System, x State, t float64, dt float64) State
}

// AdaptiveIntegrator attempts a single step of size dt. On success it returns
// the new state and a proposed next step size. On ErrStepRejected or
// ErrNonConvergence the state is nil and the step size is the retry proposal.
type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(dyn System, x State, t, dt float64, tol Tolerance) (State, float64, error)
}

type Observer interface {
	OnSample(k int, t float64, x State)
}

// Tolerance bounds the local error of one step: component i is accepted when
// |err_i| <= Rel*|x_i| + Abs[i]. A shorter Abs repeats its last entry.
type Tolerance struct {
	Rel float64
	Abs State
}

func (tol Tolerance) AbsAt(i int) float64 {
	switch {
	case len(tol.Abs) == 0:
		return 0
	case i < len(tol.Abs):
		return tol.Abs[i]
	default:
		return tol.Abs[len(tol.Abs)-1]
	}
}

// Weight returns the error weight of component i given reference magnitudes a and b.
func (tol Tolerance) Weight(i int, a, b float64) float64 {
	return tol.Rel*math.Max(math.Abs(a), math.Abs(b)) + tol.AbsAt(i)
}

// ErrorNorm is the weighted RMS norm of errEst; values <= 1 are within tolerance.
func (tol Tolerance) ErrorNorm(errEst, a, b State) float64 {
	if len(errEst) == 0 {
		return 0
	}
	sum := 0.0
	for i, e := range errEst {
		w := tol.Weight(i, a[i], b[i])
		if w <= 0 {
			w = math.SmallestNonzeroFloat64
		}
		r := e / w
		sum += r * r
	}
	return math.Sqrt(sum / float64(len(errEst)))
}

func (tol Tolerance) Valid() bool {
	if tol.Rel < 0 || math.IsNaN(tol.Rel) {
		return false
	}
	positive := tol.Rel > 0
	for _, a := range tol.Abs {
		if a < 0 || math.IsNaN(a) {
			return false
		}
		if a > 0 {
			positive = true
		}
	}
	return positive
}

type Config struct {
	Tolerance     Tolerance
	InitialStep   float64
	MinStep       float64
	MaxStep       float64 // 0 means unbounded
	MaxSteps      int
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Tolerance:     Tolerance{Rel: 1e-4, Abs: State{1e-6, 1e-6, 1e-6}},
		InitialStep:   1e-3,
		MinStep:       1e-14,
		MaxSteps:      100000,
		ValidateState: true,
	}
}

// Stats counts solver work for one or more trajectories.
type Stats struct {
	Steps          int `json:"steps"`
	Rejected       int `json:"rejected"`
	NewtonFailures int `json:"newton_failures"`
	Evaluations    int `json:"evaluations"`
}

func (s *Stats) Add(o Stats) {
	s.Steps += o.Steps
	s.Rejected += o.Rejected
	s.NewtonFailures += o.NewtonFailures
	s.Evaluations += o.Evaluations
}

// Result holds the states at the requested output times.
type Result struct {
	Times  []float64
	States []State
	Stats  Stats
}

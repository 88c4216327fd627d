package sim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// Simulator integrates one trajectory from t = 0 through a list of output
// times. It stops exactly at every output time and at every breakpoint the
// system reports, and evaluates the right-hand side just left of each stop so
// that piecewise-constant inputs are integrated segment by segment.
type Simulator struct {
	dyn        dynamo.System
	integrator dynamo.Integrator
	cfg        dynamo.Config
	pool       *StatePool
	observers  []dynamo.Observer
	normalizer dynamo.Normalizer
	validator  dynamo.StepValidator
	breaks     []float64
}

func New(dyn dynamo.System, integrator dynamo.Integrator, cfg dynamo.Config) *Simulator {
	s := &Simulator{
		dyn:        dyn,
		integrator: integrator,
		cfg:        cfg,
		observers:  make([]dynamo.Observer, 0),
	}
	if n, ok := dyn.(dynamo.Normalizer); ok {
		s.normalizer = n
	}
	if v, ok := dyn.(dynamo.StepValidator); ok {
		s.validator = v
	}
	if b, ok := dyn.(dynamo.Breakpointer); ok {
		s.breaks = b.Breakpoints()
	}
	return s
}

func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// UsePool makes Run take output states from p; hand them back with Release.
func (s *Simulator) UsePool(p *StatePool) { s.pool = p }

// Release returns the output states of res to the pool.
func (s *Simulator) Release(res *dynamo.Result) {
	if s.pool == nil || res == nil {
		return
	}
	for _, st := range res.States {
		s.pool.Put(st)
	}
	res.States = nil
}

// Run integrates from x0 at t = 0 and records the state at each output time.
// On failure the partial result is returned together with a
// *dynamo.SimulationError.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, times []float64) (*dynamo.Result, error) {
	if err := s.validate(x0, times); err != nil {
		return nil, err
	}

	result := &dynamo.Result{
		Times:  append([]float64(nil), times...),
		States: make([]dynamo.State, 0, len(times)),
	}

	x := x0.Clone()
	t := 0.0
	dt := s.cfg.InitialStep
	bi := 0
	stats := &result.Stats

	for k, target := range times {
		steps := 0
		for t < target {
			if err := ctx.Err(); err != nil {
				return result, &dynamo.SimulationError{Step: stats.Steps, Time: t, State: x.Clone(), Wrapped: err}
			}

			for bi < len(s.breaks) && s.breaks[bi] <= t {
				bi++
			}
			stop := target
			if bi < len(s.breaks) && s.breaks[bi] < stop {
				stop = s.breaks[bi]
			}

			var err error
			x, t, dt, err = s.advance(x, t, stop, dt, &steps, stats)
			if err != nil {
				return result, &dynamo.SimulationError{Step: stats.Steps, Time: t, State: x.Clone(), Wrapped: err}
			}
		}

		var out dynamo.State
		if s.pool != nil {
			out = s.pool.GetAndCopy(x)
		} else {
			out = x.Clone()
		}
		result.States = append(result.States, out)

		for _, obs := range s.observers {
			obs.OnSample(k, target, out)
		}
	}

	return result, nil
}

// advance integrates from t to stop.
func (s *Simulator) advance(x dynamo.State, t, stop, dt float64, steps *int, stats *dynamo.Stats) (dynamo.State, float64, float64, error) {
	sys := s.segment(stop, &stats.Evaluations)

	for t < stop {
		if *steps >= s.cfg.MaxSteps {
			return x, t, dt, fmt.Errorf("%w: %d steps before t=%g", dynamo.ErrTooManySteps, s.cfg.MaxSteps, stop)
		}
		*steps++

		h := dt
		if s.cfg.MaxStep > 0 && h > s.cfg.MaxStep {
			h = s.cfg.MaxStep
		}
		last := false
		if t+h >= stop || stop-(t+h) < s.cfg.MinStep {
			h = stop - t
			last = true
		}

		xNew, next, err := s.attempt(sys, x, t, h)
		switch {
		case err == nil:
			if s.cfg.ValidateState && !xNew.IsValid() {
				return x, t, dt, dynamo.ErrInvalidState
			}
			if s.normalizer != nil {
				s.normalizer.Normalize(xNew)
			}
			x = xNew
			stats.Steps++
			if last {
				t = stop
				dt = math.Max(dt, next)
			} else {
				t += h
				dt = next
			}
			continue
		case errors.Is(err, dynamo.ErrStepRejected):
			stats.Rejected++
		case errors.Is(err, dynamo.ErrNonConvergence):
			stats.NewtonFailures++
		default:
			return x, t, dt, err
		}

		dt = next
		if dt < s.cfg.MinStep || math.IsNaN(dt) {
			return x, t, dt, fmt.Errorf("%w (h=%g): %w", dynamo.ErrStepTooSmall, dt, err)
		}
	}

	return x, t, dt, nil
}

// attempt tries one step of size h. Integrators without their own error
// control are checked by step doubling.
func (s *Simulator) attempt(sys dynamo.System, x dynamo.State, t, h float64) (dynamo.State, float64, error) {
	tol := s.cfg.Tolerance
	if adaptive, ok := s.integrator.(dynamo.AdaptiveIntegrator); ok {
		return adaptive.StepAdaptive(sys, x, t, h, tol)
	}

	x1 := s.integrator.Step(sys, x, t, h)
	xHalf := s.integrator.Step(sys, x, t, h/2)
	x2 := s.integrator.Step(sys, xHalf, t+h/2, h/2)

	errNorm := tol.ErrorNorm(x2.Sub(x1), x, x2)
	if errNorm > 1 || math.IsNaN(errNorm) {
		return nil, h / 2, dynamo.ErrStepRejected
	}
	if s.validator != nil && !s.validator.ValidStep(x, x2) {
		return nil, h / 2, dynamo.ErrStepRejected
	}

	if errNorm < 0.1 {
		return x2, h * 2, nil
	}
	return x2, h, nil
}

func (s *Simulator) validate(x0 dynamo.State, times []float64) error {
	cfg := s.cfg
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("%w: state has %d components, system expects %d", dynamo.ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}
	if !x0.IsValid() {
		return dynamo.ErrInvalidState
	}
	if !cfg.Tolerance.Valid() {
		return fmt.Errorf("%w: tolerances must be non-negative and not all zero", dynamo.ErrInvalidConfig)
	}
	if cfg.InitialStep <= 0 || cfg.MinStep <= 0 || cfg.MinStep > cfg.InitialStep {
		return fmt.Errorf("%w: need 0 < min step (%g) <= initial step (%g)", dynamo.ErrInvalidConfig, cfg.MinStep, cfg.InitialStep)
	}
	if cfg.MaxStep < 0 {
		return fmt.Errorf("%w: max step must not be negative, got %g", dynamo.ErrInvalidConfig, cfg.MaxStep)
	}
	if cfg.MaxSteps <= 0 {
		return fmt.Errorf("%w: max steps must be positive, got %d", dynamo.ErrInvalidConfig, cfg.MaxSteps)
	}

	prev := 0.0
	for i, t := range times {
		if math.IsNaN(t) || math.IsInf(t, 0) || t < prev {
			return fmt.Errorf("%w: output time %d (%g) must be finite, non-negative and ascending", dynamo.ErrInvalidConfig, i, t)
		}
		prev = t
	}
	return nil
}

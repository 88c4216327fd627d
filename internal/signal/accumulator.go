package signal

import (
	"fmt"

	"github.com/san-kum/spinsim/internal/bloch"
	"github.com/san-kum/spinsim/internal/dynamo"
)

type Option func(*Accumulator)

// WithNNWeighting additionally scales each spin by its auxiliary nn value.
func WithNNWeighting(on bool) Option {
	return func(a *Accumulator) { a.weightNN = on }
}

// Accumulator sums cylindrical spin trajectories into a cartesian signal in
// the order they are added. It is owned by a single partition worker.
type Accumulator struct {
	sig      *Signal
	weightNN bool
	spins    int
}

func NewAccumulator(times []float64, opts ...Option) *Accumulator {
	a := &Accumulator{sig: New(times)}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddTrajectory adds one spin integrated with unit equilibrium
// magnetization, scaled by m0 (and nn when weighting is on).
func (a *Accumulator) AddTrajectory(m0, nn float64, states []dynamo.State) error {
	if len(states) != a.sig.Len() {
		return fmt.Errorf("%w: trajectory has %d samples, want %d", ErrLengthMismatch, len(states), a.sig.Len())
	}

	w := m0
	if a.weightNN {
		w *= nn
	}
	for k, x := range states {
		mx, my, mz := bloch.Cartesian(x)
		a.sig.Add(k, w*mx, w*my, w*mz)
	}
	a.spins++
	return nil
}

// Spins reports how many trajectories were added.
func (a *Accumulator) Spins() int { return a.spins }

func (a *Accumulator) Signal() *Signal { return a.sig }

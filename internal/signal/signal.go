// Package signal accumulates per-spin trajectories into the ensemble
// magnetization observed by a receiver.
//
//   - [Signal] is the time series (t, Mx, My, Mz)
//   - [Accumulator] sums spin trajectories into a partial signal
//   - [Reduce] combines partial signals in a fixed order
//   - [Evolution] keeps per-spin snapshots for selected output samples
package signal

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

var (
	ErrLengthMismatch = errors.New("signal: length mismatch")
	ErrTruncated      = errors.New("signal: truncated record")
	ErrEmpty          = errors.New("signal: nothing to reduce")
)

type Signal struct {
	T  []float64 `json:"t"`
	Mx []float64 `json:"mx"`
	My []float64 `json:"my"`
	Mz []float64 `json:"mz"`
}

// New returns a zero signal sampled at a copy of times.
func New(times []float64) *Signal {
	n := len(times)
	s := &Signal{
		T:  make([]float64, n),
		Mx: make([]float64, n),
		My: make([]float64, n),
		Mz: make([]float64, n),
	}
	copy(s.T, times)
	return s
}

func (s *Signal) Len() int { return len(s.T) }

func (s *Signal) Add(k int, mx, my, mz float64) {
	s.Mx[k] += mx
	s.My[k] += my
	s.Mz[k] += mz
}

// Merge adds o element-wise into s.
func (s *Signal) Merge(o *Signal) error {
	if o.Len() != s.Len() {
		return fmt.Errorf("%w: %d samples, want %d", ErrLengthMismatch, o.Len(), s.Len())
	}
	floats.Add(s.Mx, o.Mx)
	floats.Add(s.My, o.My)
	floats.Add(s.Mz, o.Mz)
	return nil
}

func (s *Signal) Clone() *Signal {
	c := New(s.T)
	copy(c.Mx, s.Mx)
	copy(c.My, s.My)
	copy(c.Mz, s.Mz)
	return c
}

// Transverse returns |Mxy| per sample.
func (s *Signal) Transverse() []float64 {
	out := make([]float64, s.Len())
	for k := range out {
		out[k] = math.Hypot(s.Mx[k], s.My[k])
	}
	return out
}

// Component returns the named series: "mx", "my", "mz" or "mxy".
func (s *Signal) Component(name string) ([]float64, error) {
	switch name {
	case "mx":
		return s.Mx, nil
	case "my":
		return s.My, nil
	case "mz":
		return s.Mz, nil
	case "mxy":
		return s.Transverse(), nil
	}
	return nil, fmt.Errorf("signal: unknown component %q", name)
}

// Reduce sums partial signals in slice order. Nil entries are skipped.
func Reduce(parts []*Signal) (*Signal, error) {
	var out *Signal
	for i, p := range parts {
		if p == nil {
			continue
		}
		if out == nil {
			out = p.Clone()
			continue
		}
		if err := out.Merge(p); err != nil {
			return nil, fmt.Errorf("partial %d: %w", i, err)
		}
	}
	if out == nil {
		return nil, ErrEmpty
	}
	return out, nil
}

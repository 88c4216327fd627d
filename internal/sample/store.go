// Package sample holds the spin ensemble: an ordered store of spins, the
// binary sample codec, contiguous partitioning and the jittered sampler that
// feeds each partition worker.
package sample

import (
	"errors"
	"math"
	"math/rand"

	"github.com/san-kum/spinsim/internal/field"
)

var (
	ErrTruncated     = errors.New("sample: truncated input")
	ErrInvalidHeader = errors.New("sample: invalid header")
	ErrInvalidGrid   = errors.New("sample: invalid grid")
)

// Spin is one magnetization source.
type Spin struct {
	X, Y, Z float64
	M0      float64
	R1, R2  float64
	DB      float64 // off-resonance in Hz
	NN      float64 // auxiliary weight
}

func (s Spin) Position() field.Position {
	return field.Position{X: s.X, Y: s.Y, Z: s.Z}
}

// Axis is one (count, resolution, offset) header triple. In list encoding
// the first axis count is the number of spins and the second is <= 0.
type Axis struct {
	Count  int     `json:"count" yaml:"count" toml:"count"`
	Res    float64 `json:"res" yaml:"res" toml:"res"`
	Offset float64 `json:"offset" yaml:"offset" toml:"offset"`
}

// Coord returns the center of cell i along the axis.
func (a Axis) Coord(i int) float64 {
	return (float64(i)-0.5*float64(a.Count-1))*a.Res + a.Offset
}

// Store is an ordered spin collection. A Store is not safe for concurrent
// mutation; partitions are independent copies.
type Store struct {
	spins []Spin
	axes  [3]Axis
	order []int // sample-file index per spin; nil means identity
}

// New allocates size zero-valued spins.
func New(size int) *Store {
	if size < 0 {
		size = 0
	}
	return &Store{spins: make([]Spin, size)}
}

// FromSpins builds a store that owns a copy of spins.
func FromSpins(axes [3]Axis, spins []Spin) *Store {
	s := &Store{axes: axes, spins: make([]Spin, len(spins))}
	copy(s.spins, spins)
	return s
}

func (s *Store) Len() int { return len(s.spins) }

func (s *Store) Spin(i int) Spin { return s.spins[i] }

// Spins returns a copy of every spin in order.
func (s *Store) Spins() []Spin {
	out := make([]Spin, len(s.spins))
	copy(out, s.spins)
	return out
}

func (s *Store) Set(i int, sp Spin) { s.spins[i] = sp }

// Origin returns the position spin i held in the sample file, before any
// shuffle or partitioning.
func (s *Store) Origin(i int) int {
	if s.order == nil {
		return i
	}
	return s.order[i]
}

func (s *Store) Axes() [3]Axis { return s.axes }

// Gridded reports whether the store was populated from a lattice.
func (s *Store) Gridded() bool { return s.axes[1].Count > 0 }

// Resolution returns the per-axis resolution used to scale jitter.
func (s *Store) Resolution() [3]float64 {
	return [3]float64{s.axes[0].Res, s.axes[1].Res, s.axes[2].Res}
}

// Bounds returns the axis-aligned box enclosing every spin position.
func (s *Store) Bounds() (lo, hi field.Position) {
	if len(s.spins) == 0 {
		return lo, hi
	}
	lo = field.Position{X: math.Inf(1), Y: math.Inf(1), Z: math.Inf(1)}
	hi = field.Position{X: math.Inf(-1), Y: math.Inf(-1), Z: math.Inf(-1)}
	for _, sp := range s.spins {
		lo.X, hi.X = math.Min(lo.X, sp.X), math.Max(hi.X, sp.X)
		lo.Y, hi.Y = math.Min(lo.Y, sp.Y), math.Max(hi.Y, sp.Y)
		lo.Z, hi.Z = math.Min(lo.Z, sp.Z), math.Max(hi.Z, sp.Z)
	}
	return lo, hi
}

// TotalM0 sums the equilibrium magnetization of the ensemble.
func (s *Store) TotalM0() float64 {
	var sum float64
	for _, sp := range s.spins {
		sum += sp.M0
	}
	return sum
}

// Shuffle permutes the spins deterministically for seed. Origin keeps
// reporting each spin's sample-file index.
func (s *Store) Shuffle(seed int64) {
	if s.order == nil {
		s.order = make([]int, len(s.spins))
		for i := range s.order {
			s.order[i] = i
		}
	}
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(s.spins), func(i, j int) {
		s.spins[i], s.spins[j] = s.spins[j], s.spins[i]
		s.order[i], s.order[j] = s.order[j], s.order[i]
	})
}

func (s *Store) reset() {
	s.spins = nil
	s.axes = [3]Axis{}
	s.order = nil
}

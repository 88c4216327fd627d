package field

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrInvalidSegment = errors.New("field: invalid segment")

// Segment holds constant field settings for Duration time units.
// The RF pulse contributes Bx = RFAmp*cos(RFPhase), By = RFAmp*sin(RFPhase);
// Bz = Gradient . position + Offset.
type Segment struct {
	Name     string     `yaml:"name,omitempty" toml:"name,omitempty" json:"name,omitempty"`
	Duration float64    `yaml:"duration" toml:"duration" json:"duration"`
	RFAmp    float64    `yaml:"rf_amp,omitempty" toml:"rf_amp,omitempty" json:"rf_amp,omitempty"`
	RFPhase  float64    `yaml:"rf_phase,omitempty" toml:"rf_phase,omitempty" json:"rf_phase,omitempty"`
	Gradient [3]float64 `yaml:"gradient,flow,omitempty" toml:"gradient,omitempty" json:"gradient,omitempty"`
	Offset   float64    `yaml:"offset,omitempty" toml:"offset,omitempty" json:"offset,omitempty"`
}

func (s Segment) Validate() error {
	if !(s.Duration > 0) || math.IsInf(s.Duration, 0) {
		return fmt.Errorf("%w: duration must be positive and finite, got %g", ErrInvalidSegment, s.Duration)
	}
	vals := []float64{s.RFAmp, s.RFPhase, s.Offset, s.Gradient[0], s.Gradient[1], s.Gradient[2]}
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite field value", ErrInvalidSegment)
		}
	}
	return nil
}

// Sequence is an immutable chain of segments starting at t = 0. Each segment
// covers [start, start+Duration); the last one also covers its right end.
type Sequence struct {
	segments []Segment
	starts   []float64
	total    float64
}

func NewSequence(segments ...Segment) (*Sequence, error) {
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: sequence has no segments", ErrInvalidSegment)
	}

	s := &Sequence{
		segments: make([]Segment, len(segments)),
		starts:   make([]float64, len(segments)),
	}
	copy(s.segments, segments)

	for i, seg := range s.segments {
		if err := seg.Validate(); err != nil {
			return nil, fmt.Errorf("segment %d: %w", i, err)
		}
		s.starts[i] = s.total
		s.total += seg.Duration
	}

	return s, nil
}

func (s *Sequence) Duration() float64 { return s.total }

func (s *Sequence) Segments() []Segment {
	out := make([]Segment, len(s.segments))
	copy(out, s.segments)
	return out
}

// Breakpoints returns the interior segment boundaries.
func (s *Sequence) Breakpoints() []float64 {
	out := make([]float64, 0, len(s.starts)-1)
	return append(out, s.starts[1:]...)
}

// At returns the segment active at t, or false outside [0, Duration()].
func (s *Sequence) At(t float64) (Segment, bool) {
	if t < 0 || t > s.total || math.IsNaN(t) {
		return Segment{}, false
	}
	i := sort.Search(len(s.starts), func(i int) bool { return s.starts[i] > t }) - 1
	if i < 0 {
		i = 0
	}
	return s.segments[i], true
}

func (s *Sequence) Field(p Position, t float64) (bx, by, bz float64) {
	seg, ok := s.At(t)
	if !ok {
		return 0, 0, 0
	}
	if seg.RFAmp != 0 {
		sin, cos := math.Sincos(seg.RFPhase)
		bx = seg.RFAmp * cos
		by = seg.RFAmp * sin
	}
	bz = seg.Gradient[0]*p.X + seg.Gradient[1]*p.Y + seg.Gradient[2]*p.Z + seg.Offset
	return bx, by, bz
}

package sim

import (
	"math"

	"github.com/san-kum/spinsim/internal/dynamo"
)

// segment restricts evaluation times to just below the end of the current
// integration interval and counts right-hand side evaluations.
type segment struct {
	sys   dynamo.System
	limit float64
	evals *int
}

func (s *segment) StateDim() int { return s.sys.StateDim() }

func (s *segment) Derive(x dynamo.State, t float64) dynamo.State {
	*s.evals++
	return s.sys.Derive(x, math.Min(t, s.limit))
}

type segmentJacobian struct {
	*segment
	jac dynamo.Jacobian
}

func (s *segmentJacobian) Jacobian(x dynamo.State, t float64, jac []float64) {
	s.jac.Jacobian(x, math.Min(t, s.limit), jac)
}

func (s *Simulator) segment(stop float64, evals *int) dynamo.System {
	seg := &segment{sys: s.dyn, limit: math.Nextafter(stop, math.Inf(-1)), evals: evals}
	if j, ok := s.dyn.(dynamo.Jacobian); ok {
		return &segmentJacobian{segment: seg, jac: j}
	}
	return seg
}

package analysis

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/spinsim/internal/signal"
)

// minMagnitude drops samples too small to take a meaningful logarithm of.
const minMagnitude = 1e-12

// DecayRate fits ln|Mxy| = a - R t over samples with t >= from and returns
// R together with the fitted amplitude exp(a).
func DecayRate(sig *signal.Signal, from float64) (rate, amplitude float64, err error) {
	mxy := sig.Transverse()

	var ts, logs []float64
	for k, tm := range sig.T {
		if tm < from || mxy[k] < minMagnitude {
			continue
		}
		ts = append(ts, tm)
		logs = append(logs, math.Log(mxy[k]))
	}
	if len(ts) < 2 {
		return 0, 0, ErrTooShort
	}

	alpha, beta := stat.LinearRegression(ts, logs, nil, false)
	return -beta, math.Exp(alpha), nil
}

package analysis

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/spinsim/internal/signal"
)

var (
	ErrTooShort   = errors.New("analysis: not enough samples")
	ErrNonUniform = errors.New("analysis: samples are not evenly spaced")
)

// SampleInterval returns the common spacing of t.
func SampleInterval(t []float64) (float64, error) {
	if len(t) < 2 {
		return 0, ErrTooShort
	}
	dt := (t[len(t)-1] - t[0]) / float64(len(t)-1)
	if !(dt > 0) {
		return 0, fmt.Errorf("%w: span %g", ErrNonUniform, t[len(t)-1]-t[0])
	}
	for i := 1; i < len(t); i++ {
		if math.Abs(t[i]-t[i-1]-dt) > 1e-6*dt {
			return 0, fmt.Errorf("%w: step %d is %g, mean %g", ErrNonUniform, i, t[i]-t[i-1], dt)
		}
	}
	return dt, nil
}

// Spectrum returns angular frequencies in ascending order and the power
// |X(w)|^2 of Mx + iMy at each, using samples with t >= from.
func Spectrum(sig *signal.Signal, from float64) (omega, power []float64, err error) {
	start := 0
	for start < sig.Len() && sig.T[start] < from {
		start++
	}
	times := sig.T[start:]
	dt, err := SampleInterval(times)
	if err != nil {
		return nil, nil, err
	}

	n := len(times)
	z := make([]complex128, n)
	for k := range z {
		z[k] = complex(sig.Mx[start+k], sig.My[start+k])
	}
	spec := fft.FFT(z)

	omega = make([]float64, n)
	power = make([]float64, n)
	half := n / 2
	for i := 0; i < n; i++ {
		// negative frequencies first
		k := (i + n - half) % n
		bin := k
		if k >= n-half {
			bin = k - n
		}
		omega[i] = 2 * math.Pi * float64(bin) / (float64(n) * dt)
		a := cmplx.Abs(spec[k])
		power[i] = a * a
	}
	return omega, power, nil
}

// DominantFrequency returns the angular frequency with the largest power.
func DominantFrequency(sig *signal.Signal, from float64) (float64, error) {
	omega, power, err := Spectrum(sig, from)
	if err != nil {
		return 0, err
	}
	best := 0
	for i := range power {
		if power[i] > power[best] {
			best = i
		}
	}
	return omega[best], nil
}

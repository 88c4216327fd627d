package analysis

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/spinsim/internal/signal"
)

func precessing(n int, dt, omega, r2 float64) *signal.Signal {
	times := make([]float64, n)
	for k := range times {
		times[k] = float64(k) * dt
	}
	sig := signal.New(times)
	for k, tm := range times {
		a := 2 * math.Exp(-r2*tm)
		sig.Add(k, a*math.Cos(omega*tm), a*math.Sin(omega*tm), 0)
	}
	return sig
}

func TestDominantFrequency(t *testing.T) {
	tests := []struct {
		name  string
		omega float64
	}{
		{"negative precession", -5},
		{"positive precession", 3},
		{"static", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// 256 samples over 2*pi*8 time units puts every integer omega on a bin
			n := 256
			dt := 2 * math.Pi * 8 / float64(n)
			sig := precessing(n, dt, tt.omega, 0)

			got, err := DominantFrequency(sig, 0)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got-tt.omega) > 1e-9 {
				t.Errorf("dominant frequency = %g, want %g", got, tt.omega)
			}
		})
	}
}

func TestSpectrumOrdering(t *testing.T) {
	sig := precessing(7, 0.5, 1, 0)
	omega, power, err := Spectrum(sig, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(omega) != 7 || len(power) != 7 {
		t.Fatalf("got %d frequencies", len(omega))
	}
	for i := 1; i < len(omega); i++ {
		if omega[i] <= omega[i-1] {
			t.Fatalf("frequencies not ascending: %v", omega)
		}
	}
	if omega[3] != 0 {
		t.Errorf("zero frequency not centered: %v", omega)
	}

	// Parseval: sum |X|^2 = n * sum |x|^2
	var energy, total float64
	for k := 0; k < sig.Len(); k++ {
		energy += sig.Mx[k]*sig.Mx[k] + sig.My[k]*sig.My[k]
	}
	for _, p := range power {
		total += p
	}
	if math.Abs(total-7*energy) > 1e-9*total {
		t.Errorf("spectral power %g, want %g", total, 7*energy)
	}
}

func TestSpectrumFrom(t *testing.T) {
	sig := precessing(65, 0.1, 2, 0)
	omega, _, err := Spectrum(sig, 3.2)
	if err != nil {
		t.Fatal(err)
	}
	if len(omega) != 33 {
		t.Errorf("used %d samples, want 33", len(omega))
	}
}

func TestSpectrumErrors(t *testing.T) {
	if _, _, err := Spectrum(signal.New([]float64{0}), 0); !errors.Is(err, ErrTooShort) {
		t.Errorf("single sample: got %v", err)
	}
	if _, _, err := Spectrum(signal.New([]float64{0, 1, 3}), 0); !errors.Is(err, ErrNonUniform) {
		t.Errorf("uneven samples: got %v", err)
	}
}

func TestDecayRate(t *testing.T) {
	sig := precessing(50, 0.1, -5, 0.2)

	rate, amp, err := DecayRate(sig, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(rate-0.2) > 1e-9 || math.Abs(amp-2) > 1e-9 {
		t.Errorf("DecayRate = %g, amplitude %g; want 0.2, 2", rate, amp)
	}

	if _, _, err := DecayRate(sig, 100); !errors.Is(err, ErrTooShort) {
		t.Errorf("no samples after from: got %v", err)
	}
}

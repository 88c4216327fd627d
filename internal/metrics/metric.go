// Package metrics summarizes a finished run: scalar observables over the
// reduced signal and Prometheus counters over the solver work.
package metrics

import (
	"math"

	"github.com/san-kum/spinsim/internal/signal"
)

// Metric folds signal samples into one scalar.
type Metric interface {
	Name() string
	Observe(t, mx, my, mz float64)
	Value() float64
	Reset()
}

// Default returns a fresh set of the standard signal metrics.
func Default() []Metric {
	return []Metric{
		NewPeakTransverse(),
		NewPeakTime(),
		NewFinalLongitudinal(),
		NewTransverseEnergy(),
	}
}

// Evaluate feeds every sample of sig to each metric and returns the values
// by name.
func Evaluate(sig *signal.Signal, ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		m.Reset()
		for k := range sig.T {
			m.Observe(sig.T[k], sig.Mx[k], sig.My[k], sig.Mz[k])
		}
		out[m.Name()] = m.Value()
	}
	return out
}

type PeakTransverse struct {
	peak float64
}

func NewPeakTransverse() *PeakTransverse { return &PeakTransverse{} }

func (p *PeakTransverse) Name() string { return "peak_transverse" }

func (p *PeakTransverse) Observe(t, mx, my, mz float64) {
	p.peak = math.Max(p.peak, math.Hypot(mx, my))
}

func (p *PeakTransverse) Value() float64 { return p.peak }
func (p *PeakTransverse) Reset()         { p.peak = 0 }

// PeakTime is the first time at which |Mxy| is largest, e.g. the echo time.
type PeakTime struct {
	peak float64
	at   float64
}

func NewPeakTime() *PeakTime { return &PeakTime{} }

func (p *PeakTime) Name() string { return "peak_time" }

func (p *PeakTime) Observe(t, mx, my, mz float64) {
	if v := math.Hypot(mx, my); v > p.peak {
		p.peak, p.at = v, t
	}
}

func (p *PeakTime) Value() float64 { return p.at }

func (p *PeakTime) Reset() {
	p.peak = 0
	p.at = 0
}

type FinalLongitudinal struct {
	last float64
}

func NewFinalLongitudinal() *FinalLongitudinal { return &FinalLongitudinal{} }

func (f *FinalLongitudinal) Name() string                  { return "final_longitudinal" }
func (f *FinalLongitudinal) Observe(t, mx, my, mz float64) { f.last = mz }
func (f *FinalLongitudinal) Value() float64                { return f.last }
func (f *FinalLongitudinal) Reset()                        { f.last = 0 }

// TransverseEnergy integrates |Mxy|^2 over time with the trapezoid rule.
type TransverseEnergy struct {
	sum     float64
	prevT   float64
	prevE   float64
	samples int
}

func NewTransverseEnergy() *TransverseEnergy { return &TransverseEnergy{} }

func (e *TransverseEnergy) Name() string { return "transverse_energy" }

func (e *TransverseEnergy) Observe(t, mx, my, mz float64) {
	en := mx*mx + my*my
	if e.samples > 0 {
		e.sum += 0.5 * (en + e.prevE) * (t - e.prevT)
	}
	e.prevT, e.prevE = t, en
	e.samples++
}

func (e *TransverseEnergy) Value() float64 { return e.sum }

func (e *TransverseEnergy) Reset() {
	e.sum = 0
	e.prevT = 0
	e.prevE = 0
	e.samples = 0
}

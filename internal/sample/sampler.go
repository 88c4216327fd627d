package sample

import "math/rand"

// DefaultJitter is the positional jitter in percent of the axis resolution.
const DefaultJitter = 100.0

type SamplerOption func(*Sampler)

// WithJitter sets the positional jitter in percent (0 to 100).
func WithJitter(pct float64) SamplerOption {
	return func(s *Sampler) {
		s.jitter = min(max(pct, 0), 100)
	}
}

// WithLFF sets the low-frequency fluctuation coefficient of the
// off-resonance. Zero disables it.
func WithLFF(coeff float64) SamplerOption {
	return func(s *Sampler) { s.lff = coeff }
}

// Sampler reads spins from a store with Gaussian positional jitter. It owns
// its generator so that each partition gets an independent, reproducible
// stream. A Sampler is not safe for concurrent use.
type Sampler struct {
	store  *Store
	rng    *rand.Rand
	jitter float64
	lff    float64
	last   Spin
}

func NewSampler(s *Store, seed int64, opts ...SamplerOption) *Sampler {
	sm := &Sampler{
		store:  s,
		rng:    rand.New(rand.NewSource(seed)),
		jitter: DefaultJitter,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

// Values returns spin i with jitter applied to its position. Three normal
// deviates are drawn per call whatever the jitter setting, so the stream
// for a seed does not depend on it.
func (sm *Sampler) Values(i int) Spin {
	sp := sm.store.Spin(i)
	res := sm.store.Resolution()
	f := sm.jitter / 100

	sp.X += sm.rng.NormFloat64() * res[0] * f
	sp.Y += sm.rng.NormFloat64() * res[1] * f
	sp.Z += sm.rng.NormFloat64() * res[2] * f

	sm.last = sp
	return sp
}

// OffResonance returns the off-resonance of spin i in kHz. A negative i
// reuses the spin fetched by the previous call to Values.
func (sm *Sampler) OffResonance(i int) float64 {
	if i >= 0 {
		sm.Values(i)
	}
	return 0.001 * (sm.last.DB + sm.lff*sm.rng.NormFloat64())
}

// Last returns the most recently fetched spin.
func (sm *Sampler) Last() Spin { return sm.last }

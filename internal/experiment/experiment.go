// Package experiment runs a spin ensemble through a field history: it
// partitions the sample, integrates every spin of each partition on its own
// worker and reduces the partial signals in ascending partition order.
package experiment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/spinsim/internal/bloch"
	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/field"
	"github.com/san-kum/spinsim/internal/sample"
	"github.com/san-kum/spinsim/internal/signal"
	"github.com/san-kum/spinsim/internal/sim"
)

var (
	ErrInvalidConfig = errors.New("experiment: invalid config")
	ErrEmptySample   = errors.New("experiment: sample has no spins")
)

// Policy decides what a failed spin does to the run.
type Policy string

const (
	// PolicyAbort stops the whole run at the first failed spin.
	PolicyAbort Policy = "abort"
	// PolicyWarn leaves failed spins out of the signal and reports them.
	PolicyWarn Policy = "warn"
)

type Config struct {
	Partitions      int
	Workers         int
	Seed            int64
	Times           []float64
	Integrator      string
	Solver          dynamo.Config
	Jitter          float64
	LFF             float64
	WeightNN        bool
	Policy          Policy
	EvolutionStride int
}

func DefaultConfig() Config {
	return Config{
		Partitions: 1,
		Integrator: "bdf",
		Solver:     dynamo.DefaultConfig(),
		Jitter:     sample.DefaultJitter,
		Policy:     PolicyAbort,
	}
}

func (c Config) Validate() error {
	switch {
	case c.Partitions < 1:
		return fmt.Errorf("%w: partitions must be >= 1, got %d", ErrInvalidConfig, c.Partitions)
	case len(c.Times) == 0:
		return fmt.Errorf("%w: no output times", ErrInvalidConfig)
	case c.Jitter < 0 || c.Jitter > 100:
		return fmt.Errorf("%w: jitter %g outside [0, 100]", ErrInvalidConfig, c.Jitter)
	case c.Policy != PolicyAbort && c.Policy != PolicyWarn:
		return fmt.Errorf("%w: unknown failure policy %q", ErrInvalidConfig, c.Policy)
	case c.EvolutionStride < 0:
		return fmt.Errorf("%w: negative evolution stride", ErrInvalidConfig)
	}
	for i := 1; i < len(c.Times); i++ {
		if c.Times[i] < c.Times[i-1] {
			return fmt.Errorf("%w: output times not ascending at %d", ErrInvalidConfig, i)
		}
	}
	return nil
}

// SpinError reports a spin whose trajectory could not be integrated.
type SpinError struct {
	Partition int
	Spin      int // index in the sample file, unaffected by shuffling
	Err       error
}

func (e *SpinError) Error() string {
	return fmt.Sprintf("partition %d spin %d: %v", e.Partition, e.Spin, e.Err)
}

func (e *SpinError) Unwrap() error { return e.Err }

// Progress describes one finished partition.
type Progress struct {
	Partition  int
	Partitions int
	Spins      int
	Failed     int
	Elapsed    time.Duration
}

// Recorder receives per-partition figures. Implementations must be safe for
// concurrent use.
type Recorder interface {
	ObservePartition(p Progress, stats dynamo.Stats)
}

type Option func(*Experiment)

func WithLogger(log zerolog.Logger) Option {
	return func(e *Experiment) { e.log = log }
}

// WithProgress calls fn from the worker goroutines as partitions finish.
func WithProgress(fn func(Progress)) Option {
	return func(e *Experiment) { e.progress = fn }
}

func WithRecorder(r Recorder) Option {
	return func(e *Experiment) { e.recorder = r }
}

func WithRegistry(r *Registry) Option {
	return func(e *Experiment) { e.registry = r }
}

type Experiment struct {
	cfg      Config
	store    *sample.Store
	src      field.Source
	registry *Registry
	log      zerolog.Logger
	progress func(Progress)
	recorder Recorder
}

func New(cfg Config, store *sample.Store, src field.Source, opts ...Option) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if store == nil || store.Len() == 0 {
		return nil, ErrEmptySample
	}

	e := &Experiment{
		cfg:      cfg,
		store:    store,
		src:      src,
		registry: NewRegistry(),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if _, err := e.registry.Integrator(cfg.Integrator); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return e, nil
}

type Result struct {
	Signal     *signal.Signal
	Partials   []*signal.Signal
	Failures   []*SpinError
	Stats      dynamo.Stats
	Evolution  *signal.Evolution
	Spins      int
	Partitions int
	Elapsed    time.Duration
}

type partial struct {
	sig      *signal.Signal
	evo      *signal.Evolution
	stats    dynamo.Stats
	failures []*SpinError
	spins    int
}

// Run integrates the ensemble. Under PolicyAbort the first failed spin
// cancels the remaining partitions and is returned as a *SpinError.
func (e *Experiment) Run(ctx context.Context) (*Result, error) {
	start := time.Now()

	count := e.cfg.Partitions
	if n := e.store.Len(); count > n {
		e.log.Warn().Int("partitions", count).Int("spins", n).Msg("more partitions than spins, using one spin per partition")
		count = n
	}
	parts := sample.Partitions(e.store, count)

	e.log.Info().
		Int("spins", e.store.Len()).
		Int("partitions", count).
		Int("samples", len(e.cfg.Times)).
		Str("integrator", e.cfg.Integrator).
		Msg("run started")

	partials := make([]partial, count)
	err := dynamo.ParallelFor(ctx, count, e.cfg.Workers, func(ctx context.Context, i int) error {
		p, err := e.runPartition(ctx, i+1, count, parts[i])
		partials[i] = p
		return err
	})
	if err != nil {
		e.log.Error().Err(err).Msg("run aborted")
		return nil, err
	}

	res := &Result{
		Partials:   make([]*signal.Signal, count),
		Evolution:  signal.NewEvolution(e.cfg.Times, e.cfg.EvolutionStride),
		Partitions: count,
	}
	for i, p := range partials {
		res.Partials[i] = p.sig
		res.Stats.Add(p.stats)
		res.Failures = append(res.Failures, p.failures...)
		res.Spins += p.spins
		if err := res.Evolution.Merge(p.evo); err != nil {
			return nil, err
		}
	}
	if res.Signal, err = signal.Reduce(res.Partials); err != nil {
		return nil, err
	}
	res.Elapsed = time.Since(start)

	e.log.Info().
		Int("spins", res.Spins).
		Int("failed", len(res.Failures)).
		Int("steps", res.Stats.Steps).
		Int("rejected", res.Stats.Rejected).
		Dur("elapsed", res.Elapsed).
		Msg("run finished")

	return res, nil
}

func (e *Experiment) runPartition(ctx context.Context, index, count int, part *sample.Store) (partial, error) {
	start := time.Now()
	log := e.log.With().Int("partition", index).Logger()
	log.Debug().Int("spins", part.Len()).Msg("partition started")

	out := partial{
		sig: signal.New(e.cfg.Times),
		evo: signal.NewEvolution(e.cfg.Times, e.cfg.EvolutionStride),
	}

	integ, err := e.registry.Integrator(e.cfg.Integrator)
	if err != nil {
		return out, err
	}
	sampler := sample.NewSampler(part, e.cfg.Seed+int64(index),
		sample.WithJitter(e.cfg.Jitter),
		sample.WithLFF(e.cfg.LFF),
	)
	acc := signal.NewAccumulator(e.cfg.Times, signal.WithNNWeighting(e.cfg.WeightNN))
	pool := sim.NewStatePool(3)

	for j := 0; j < part.Len(); j++ {
		sp := sampler.Values(j)
		model := bloch.New(e.src, bloch.Params{
			Pos:    sp.Position(),
			M0:     1,
			R1:     sp.R1,
			R2:     sp.R2,
			Offset: sampler.OffResonance(-1),
		})

		s := sim.New(model, integ, e.cfg.Solver)
		s.UsePool(pool)

		traj, err := s.Run(ctx, bloch.Equilibrium(1), e.cfg.Times)
		if traj != nil {
			out.stats.Add(traj.Stats)
		}
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return out, ctxErr
			}
			serr := &SpinError{Partition: index, Spin: part.Origin(j), Err: err}
			if e.cfg.Policy == PolicyAbort {
				return out, serr
			}
			log.Warn().Err(err).Int("spin", part.Origin(j)).Msg("spin failed, excluded from signal")
			out.failures = append(out.failures, serr)
			continue
		}

		if err := acc.AddTrajectory(sp.M0, sp.NN, traj.States); err != nil {
			return out, err
		}
		out.evo.Record(part.Origin(j), sp.Position(), sp.M0, traj.States)
		s.Release(traj)
	}

	out.sig = acc.Signal()
	out.spins = acc.Spins()

	p := Progress{
		Partition:  index,
		Partitions: count,
		Spins:      part.Len(),
		Failed:     len(out.failures),
		Elapsed:    time.Since(start),
	}
	log.Debug().Int("spins", p.Spins).Int("failed", p.Failed).Dur("elapsed", p.Elapsed).Msg("partition finished")
	if e.recorder != nil {
		e.recorder.ObservePartition(p, out.stats)
	}
	if e.progress != nil {
		e.progress(p)
	}
	return out, nil
}

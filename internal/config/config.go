package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gonum.org/v1/gonum/floats"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/experiment"
	"github.com/san-kum/spinsim/internal/field"
	"github.com/san-kum/spinsim/internal/sample"
)

const (
	DefaultIntegrator  = "bdf"
	DefaultPartitions  = 1
	DefaultSamples     = 101
	DefaultPreset      = "fid"
	DefaultRelTol      = 1e-4
	DefaultAbsTol      = 1e-6
	DefaultInitialStep = 1e-3
	DefaultMinStep     = 1e-14
	DefaultMaxSteps    = 100000

	// ShuffleSeed fixes the permutation applied before partitioning.
	ShuffleSeed = 42
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Name            string         `yaml:"name" toml:"name"`
	Sample          string         `yaml:"sample" toml:"sample"`
	Integrator      string         `yaml:"integrator" toml:"integrator"`
	Partitions      int            `yaml:"partitions" toml:"partitions"`
	Workers         int            `yaml:"workers" toml:"workers"`
	Seed            int64          `yaml:"seed" toml:"seed"`
	Samples         int            `yaml:"samples" toml:"samples"`
	Times           []float64      `yaml:"times,omitempty" toml:"times,omitempty"`
	Jitter          float64        `yaml:"jitter" toml:"jitter"`
	LFF             float64        `yaml:"lff" toml:"lff"`
	WeightNN        bool           `yaml:"weight_nn" toml:"weight_nn"`
	Shuffle         bool           `yaml:"shuffle" toml:"shuffle"`
	Policy          string         `yaml:"policy" toml:"policy"`
	EvolutionStride int            `yaml:"evolution_stride" toml:"evolution_stride"`
	Solver          SolverConfig   `yaml:"solver" toml:"solver"`
	Sequence        SequenceConfig `yaml:"sequence" toml:"sequence"`
}

type SolverConfig struct {
	RelTol      float64   `yaml:"rel_tol" toml:"rel_tol"`
	AbsTol      []float64 `yaml:"abs_tol,flow" toml:"abs_tol"`
	InitialStep float64   `yaml:"initial_step" toml:"initial_step"`
	MinStep     float64   `yaml:"min_step" toml:"min_step"`
	MaxStep     float64   `yaml:"max_step" toml:"max_step"`
	MaxSteps    int       `yaml:"max_steps" toml:"max_steps"`
}

// SequenceConfig names a preset or lists explicit segments. Segments win
// when both are given.
type SequenceConfig struct {
	Preset   string          `yaml:"preset,omitempty" toml:"preset,omitempty"`
	Segments []field.Segment `yaml:"segments,omitempty" toml:"segments,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Name:       "run",
		Integrator: DefaultIntegrator,
		Partitions: DefaultPartitions,
		Samples:    DefaultSamples,
		Jitter:     sample.DefaultJitter,
		Policy:     string(experiment.PolicyAbort),
		Solver: SolverConfig{
			RelTol:      DefaultRelTol,
			AbsTol:      []float64{DefaultAbsTol, DefaultAbsTol, DefaultAbsTol},
			InitialStep: DefaultInitialStep,
			MinStep:     DefaultMinStep,
			MaxSteps:    DefaultMaxSteps,
		},
		Sequence: SequenceConfig{Preset: DefaultPreset},
	}
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

// Load reads a YAML file, or TOML when the name ends in .toml, over the
// defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if isTOML(path) {
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		return cfg, nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	var data []byte
	if isTOML(path) {
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
			return err
		}
		data = buf.Bytes()
	} else {
		var err error
		if data, err = yaml.Marshal(cfg); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Integrator == "":
		return fmt.Errorf("%w: integrator not set", ErrInvalid)
	case c.Partitions < 1:
		return fmt.Errorf("%w: partitions must be >= 1", ErrInvalid)
	case c.Workers < 0:
		return fmt.Errorf("%w: workers must be >= 0", ErrInvalid)
	case len(c.Times) == 0 && c.Samples < 1:
		return fmt.Errorf("%w: samples must be >= 1", ErrInvalid)
	case c.Jitter < 0 || c.Jitter > 100:
		return fmt.Errorf("%w: jitter %g outside [0, 100]", ErrInvalid, c.Jitter)
	case c.Policy != string(experiment.PolicyAbort) && c.Policy != string(experiment.PolicyWarn):
		return fmt.Errorf("%w: policy must be abort or warn, got %q", ErrInvalid, c.Policy)
	case c.EvolutionStride < 0:
		return fmt.Errorf("%w: evolution_stride must be >= 0", ErrInvalid)
	}

	if !c.SolverConfig().Tolerance.Valid() {
		return fmt.Errorf("%w: solver tolerances must be non-negative with at least one positive", ErrInvalid)
	}
	if c.Solver.InitialStep <= 0 || c.Solver.MinStep <= 0 || c.Solver.MaxSteps < 1 {
		return fmt.Errorf("%w: solver steps must be positive", ErrInvalid)
	}
	for i := 1; i < len(c.Times); i++ {
		if c.Times[i] < c.Times[i-1] {
			return fmt.Errorf("%w: times not ascending at %d", ErrInvalid, i)
		}
	}
	if _, err := c.BuildSequence(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// BuildSequence returns the configured field sequence.
func (c *Config) BuildSequence() (*field.Sequence, error) {
	segs := c.Sequence.Segments
	if len(segs) == 0 {
		segs = GetPreset(c.Sequence.Preset)
		if segs == nil {
			return nil, fmt.Errorf("unknown sequence preset: %q", c.Sequence.Preset)
		}
	}
	return field.NewSequence(segs...)
}

// SampleTimes returns the explicit output times, or Samples evenly spaced
// points over [0, duration].
func (c *Config) SampleTimes(duration float64) []float64 {
	if len(c.Times) > 0 {
		return append([]float64(nil), c.Times...)
	}
	if c.Samples == 1 {
		return []float64{duration}
	}
	return floats.Span(make([]float64, c.Samples), 0, duration)
}

func (c *Config) SolverConfig() dynamo.Config {
	return dynamo.Config{
		Tolerance: dynamo.Tolerance{
			Rel: c.Solver.RelTol,
			Abs: dynamo.State(append([]float64(nil), c.Solver.AbsTol...)),
		},
		InitialStep:   c.Solver.InitialStep,
		MinStep:       c.Solver.MinStep,
		MaxStep:       c.Solver.MaxStep,
		MaxSteps:      c.Solver.MaxSteps,
		ValidateState: true,
	}
}

// ExperimentConfig maps the file settings onto a run over times.
func (c *Config) ExperimentConfig(times []float64) experiment.Config {
	return experiment.Config{
		Partitions:      c.Partitions,
		Workers:         c.Workers,
		Seed:            c.Seed,
		Times:           times,
		Integrator:      c.Integrator,
		Solver:          c.SolverConfig(),
		Jitter:          c.Jitter,
		LFF:             c.LFF,
		WeightNN:        c.WeightNN,
		Policy:          experiment.Policy(c.Policy),
		EvolutionStride: c.EvolutionStride,
	}
}

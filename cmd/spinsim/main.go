package main

import (
	"context"
	"fmt"
	"os"
	ossignal "os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/spinsim/internal/analysis"
	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/experiment"
	"github.com/san-kum/spinsim/internal/field"
	"github.com/san-kum/spinsim/internal/logging"
	"github.com/san-kum/spinsim/internal/metrics"
	"github.com/san-kum/spinsim/internal/sample"
	"github.com/san-kum/spinsim/internal/storage"
	"github.com/san-kum/spinsim/internal/viz"
)

var (
	dataDir string

	samplePath      string
	integrator      string
	partitions      int
	workers         int
	seed            int64
	samples         int
	jitter          float64
	lff             float64
	weightNN        bool
	shuffle         bool
	policy          string
	preset          string
	evolutionStride int
	runName         string
	live            bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "spinsim",
		Short:        "parallel bloch equation simulator",
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".spinsim", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [config]",
		Short: "simulate a sample under a sequence",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runExperiment,
	}
	runCmd.Flags().StringVar(&samplePath, "sample", "", "sample file")
	runCmd.Flags().StringVar(&integrator, "integrator", config.DefaultIntegrator, "integrator (bdf, rk45, rk4)")
	runCmd.Flags().IntVar(&partitions, "partitions", config.DefaultPartitions, "number of partitions")
	runCmd.Flags().IntVar(&workers, "workers", 0, "concurrent partitions (0 = GOMAXPROCS)")
	runCmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	runCmd.Flags().IntVar(&samples, "samples", config.DefaultSamples, "output samples over the sequence")
	runCmd.Flags().Float64Var(&jitter, "jitter", sample.DefaultJitter, "position jitter in percent of the resolution")
	runCmd.Flags().Float64Var(&lff, "lff", 0, "local field fluctuation coefficient")
	runCmd.Flags().BoolVar(&weightNN, "weight-nn", false, "scale each spin's signal by its nn value")
	runCmd.Flags().BoolVar(&shuffle, "shuffle", false, "shuffle spins before partitioning")
	runCmd.Flags().StringVar(&policy, "policy", string(experiment.PolicyAbort), "spin failure policy (abort, warn)")
	runCmd.Flags().StringVar(&preset, "preset", "", "sequence preset")
	runCmd.Flags().IntVar(&evolutionStride, "evolution", 0, "write a spin snapshot every n output samples")
	runCmd.Flags().StringVar(&runName, "name", "", "run name")
	runCmd.Flags().BoolVar(&live, "live", false, "show live progress")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list sequence presets and integrators",
		RunE:  listPresets,
	}

	rootCmd.AddCommand(runCmd, sampleCmd(), presetsCmd)
	rootCmd.AddCommand(runCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadRunConfig applies explicitly set flags over the config file.
func loadRunConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if len(args) == 1 {
		var err error
		if cfg, err = config.Load(args[0]); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("sample") {
		cfg.Sample = samplePath
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("partitions") {
		cfg.Partitions = partitions
	}
	if flags.Changed("workers") {
		cfg.Workers = workers
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("samples") {
		cfg.Samples = samples
		cfg.Times = nil
	}
	if flags.Changed("jitter") {
		cfg.Jitter = jitter
	}
	if flags.Changed("lff") {
		cfg.LFF = lff
	}
	if flags.Changed("weight-nn") {
		cfg.WeightNN = weightNN
	}
	if flags.Changed("shuffle") {
		cfg.Shuffle = shuffle
	}
	if flags.Changed("policy") {
		cfg.Policy = policy
	}
	if flags.Changed("preset") {
		cfg.Sequence = config.SequenceConfig{Preset: preset}
	}
	if flags.Changed("evolution") {
		cfg.EvolutionStride = evolutionStride
	}
	if flags.Changed("name") {
		cfg.Name = runName
	}

	if cfg.Sample == "" {
		return nil, fmt.Errorf("%w: no sample file given", config.ErrInvalid)
	}
	return cfg, cfg.Validate()
}

func runExperiment(cmd *cobra.Command, args []string) error {
	log := logging.New("spinsim")

	cfg, err := loadRunConfig(cmd, args)
	if err != nil {
		return err
	}

	store, err := sample.Load(cfg.Sample)
	if err != nil {
		return err
	}
	if cfg.Shuffle {
		store.Shuffle(config.ShuffleSeed)
	}

	seq, err := cfg.BuildSequence()
	if err != nil {
		return err
	}
	times := cfg.SampleTimes(seq.Duration())

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := ossignal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	expLog := log
	if live {
		expLog = log.Level(zerolog.WarnLevel)
	}

	execute := func(ctx context.Context, progress func(experiment.Progress)) (*experiment.Result, error) {
		exp, err := experiment.New(cfg.ExperimentConfig(times), store, seq,
			experiment.WithLogger(expLog),
			experiment.WithRecorder(collector),
			experiment.WithProgress(progress),
		)
		if err != nil {
			return nil, err
		}
		return exp.Run(ctx)
	}

	var res *experiment.Result
	if live {
		res, err = viz.Watch(ctx, os.Stderr, cfg.Name, min(cfg.Partitions, store.Len()), execute)
	} else {
		res, err = execute(ctx, func(p experiment.Progress) {
			log.Info().
				Int("partition", p.Partition).
				Int("of", p.Partitions).
				Int("spins", p.Spins).
				Int("failed", p.Failed).
				Dur("elapsed", p.Elapsed).
				Msg("partition finished")
		})
	}
	if err != nil {
		return err
	}

	meta := storage.RunMetadata{
		Name:       cfg.Name,
		Sample:     cfg.Sample,
		Sequence:   sequenceLabel(cfg),
		Integrator: cfg.Integrator,
		Seed:       cfg.Seed,
		Partitions: res.Partitions,
		Spins:      res.Spins,
		Failed:     len(res.Failures),
		Duration:   seq.Duration(),
		Elapsed:    res.Elapsed.Seconds(),
		Stats:      res.Stats,
		Metrics:    metrics.Evaluate(res.Signal, metrics.Default()...),
	}
	readout := readoutStart(seq)
	if rate, _, err := analysis.DecayRate(res.Signal, readout); err == nil {
		meta.Metrics["decay_rate"] = rate
	}
	if freq, err := analysis.DominantFrequency(res.Signal, readout); err == nil {
		meta.Metrics["dominant_frequency"] = freq
	}

	runID, err := st.Save(meta, res.Signal)
	if err != nil {
		return err
	}
	runDir := st.RunDir(runID)
	if err := collector.WriteTextfile(filepath.Join(runDir, storage.MetricsFile)); err != nil {
		return err
	}
	if res.Evolution.Enabled() {
		paths, err := res.Evolution.WriteDir(filepath.Join(runDir, storage.EvolutionDir))
		if err != nil {
			return err
		}
		log.Info().Int("snapshots", len(paths)).Msg("evolution written")
	}

	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("spins: %d (%d failed) in %d partitions\n", res.Spins, len(res.Failures), res.Partitions)
	fmt.Printf("completed in %v\n", res.Elapsed)
	printMetrics(meta.Metrics)
	return nil
}

func sequenceLabel(cfg *config.Config) string {
	if len(cfg.Sequence.Segments) > 0 {
		return "custom"
	}
	return cfg.Sequence.Preset
}

// readoutStart returns the start time of the last segment.
func readoutStart(seq *field.Sequence) float64 {
	segs := seq.Segments()
	if len(segs) == 0 {
		return 0
	}
	return seq.Duration() - segs[len(segs)-1].Duration
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, m[name])
	}
}

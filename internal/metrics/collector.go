package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/san-kum/spinsim/internal/dynamo"
	"github.com/san-kum/spinsim/internal/experiment"
)

const namespace = "spinsim"

// Collector records per-partition solver work on a private registry.
type Collector struct {
	registry   *prometheus.Registry
	spins      *prometheus.CounterVec
	solver     *prometheus.CounterVec
	partitions prometheus.Counter
	duration   prometheus.Histogram
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		spins: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "spins_total",
				Help:      "Integrated spins by outcome.",
			},
			[]string{"outcome"},
		),
		solver: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "solver",
				Name:      "events_total",
				Help:      "Solver work by kind.",
			},
			[]string{"kind"},
		),
		partitions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "partitions_total",
				Help:      "Finished partitions.",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "partition_duration_seconds",
				Help:      "Wall time per partition in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
			},
		),
	}
	c.registry.MustRegister(c.spins, c.solver, c.partitions, c.duration)
	return c
}

// ObservePartition implements experiment.Recorder.
func (c *Collector) ObservePartition(p experiment.Progress, stats dynamo.Stats) {
	c.partitions.Inc()
	c.duration.Observe(p.Elapsed.Seconds())
	c.spins.WithLabelValues("ok").Add(float64(p.Spins - p.Failed))
	c.spins.WithLabelValues("failed").Add(float64(p.Failed))
	c.solver.WithLabelValues("step").Add(float64(stats.Steps))
	c.solver.WithLabelValues("rejected").Add(float64(stats.Rejected))
	c.solver.WithLabelValues("newton_failure").Add(float64(stats.NewtonFailures))
	c.solver.WithLabelValues("evaluation").Add(float64(stats.Evaluations))
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// WriteTextfile writes the registry in the Prometheus text format.
func (c *Collector) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, c.registry)
}

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/spinsim/internal/analysis"
	"github.com/san-kum/spinsim/internal/config"
	"github.com/san-kum/spinsim/internal/experiment"
	"github.com/san-kum/spinsim/internal/export"
	"github.com/san-kum/spinsim/internal/storage"
)

var (
	components []string
	from       float64
	outPath    string
	svgWidth   int
	svgHeight  int
)

func runCommands() []*cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a run's signal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringSliceVar(&components, "component", []string{"mxy", "mz"}, "components to plot (mx, my, mz, mxy)")

	spectrumCmd := &cobra.Command{
		Use:   "spectrum [run_id]",
		Short: "frequency and decay analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  spectrumRun,
	}
	spectrumCmd.Flags().Float64Var(&from, "from", 0, "ignore samples before this time")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run signal to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run metadata and signal to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}
	exportJSONCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file")

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "export run signal as an SVG plot",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().StringVarP(&outPath, "out", "o", "-", "output file")
	exportSVGCmd.Flags().StringSliceVar(&components, "component", []string{"mx", "my", "mz"}, "components to plot (mx, my, mz, mxy)")
	exportSVGCmd.Flags().IntVar(&svgWidth, "width", 800, "image width")
	exportSVGCmd.Flags().IntVar(&svgHeight, "height", 400, "image height")

	return []*cobra.Command{listCmd, plotCmd, spectrumCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd}
}

// resolveRun maps "latest" to the most recent run id.
func resolveRun(st *storage.Store, id string) (string, error) {
	if id == "latest" {
		return st.Latest()
	}
	return id, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSEQUENCE\tTIME\tSPINS\tFAILED\tPARTS\tINTEG\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\t%s\t%.2fs\n",
			run.ID,
			run.Sequence,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Spins,
			run.Failed,
			run.Partitions,
			run.Integrator,
			run.Elapsed,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	sig, err := st.LoadSignal(runID)
	if err != nil {
		return err
	}
	if sig.Len() == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("sequence: %s over %g\n", meta.Sequence, meta.Duration)
	fmt.Printf("samples: %d\n\n", sig.Len())

	for _, name := range components {
		data, err := sig.Component(name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(name+" vs time"),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func spectrumRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	sig, err := st.LoadSignal(runID)
	if err != nil {
		return err
	}

	omega, power, err := analysis.Spectrum(sig, from)
	if err != nil {
		return err
	}
	dominant, err := analysis.DominantFrequency(sig, from)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", runID)
	fmt.Printf("frequency range: %.4g .. %.4g rad/time\n", omega[0], omega[len(omega)-1])
	fmt.Printf("dominant frequency: %.6g rad/time\n", dominant)
	if rate, amp, err := analysis.DecayRate(sig, from); err == nil {
		fmt.Printf("decay rate: %.6g (amplitude %.6g)\n", rate, amp)
	}
	fmt.Println()

	graph := asciigraph.Plot(power,
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption("power spectrum of mx + i my"),
	)
	fmt.Println(graph)
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	sig, err := st.LoadSignal(runID)
	if err != nil {
		return err
	}
	return storage.ExportCSV(outPath, sig)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	sig, err := st.LoadSignal(runID)
	if err != nil {
		return err
	}
	return storage.ExportJSON(outPath, meta, sig)
}

func exportSVG(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args[0])
	if err != nil {
		return err
	}
	sig, err := st.LoadSignal(runID)
	if err != nil {
		return err
	}
	return export.WriteSVG(outPath, sig, components, svgWidth, svgHeight)
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tSEGMENTS\tDURATION\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		p := config.Presets[name]
		var total float64
		for _, seg := range p.Segments {
			total += seg.Duration
		}
		fmt.Fprintf(w, "%s\t%d\t%g\t%s\n", name, len(p.Segments), total, p.Description)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nintegrators:")
	for _, name := range experiment.NewRegistry().ListIntegrators() {
		fmt.Printf("  %s\n", name)
	}
	return nil
}

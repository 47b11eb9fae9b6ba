package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/pyncx/ncx/internal/analysis"
	"github.com/pyncx/ncx/internal/config"
	"github.com/pyncx/ncx/internal/experiment"
	"github.com/pyncx/ncx/internal/integrators"
	"github.com/pyncx/ncx/internal/logging"
	"github.com/pyncx/ncx/internal/ncx"
	"github.com/pyncx/ncx/internal/protocol"
	"github.com/pyncx/ncx/internal/render"
	"github.com/pyncx/ncx/internal/storage"
	"github.com/pyncx/ncx/internal/tui"
)

var (
	dataDir    string
	configFile string
	preset     string
	outDir     string
	logLevel   string
	integrator string
	noStore    bool

	scanValues   string
	scanDuration float64
	scanNa       float64
	scanCa       float64
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("213")).Padding(0, 1)
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "ncx",
		Short:         "Na+/Ca2+ exchanger kinetic simulator",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runAll,
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&dataDir, "data", ".ncx", "run store directory")
	pf.StringVar(&configFile, "config", "", "config file path (yaml)")
	pf.StringVar(&preset, "preset", "", "use preset configuration")
	pf.StringVar(&outDir, "out", "", "directory for the figures (overrides config)")
	pf.StringVar(&logLevel, "log-level", "", "error, warn, info, debug or trace")
	pf.StringVar(&integrator, "integrator", "", "integrator (overrides config)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "simulate the protocol, sweep steady states and write all figures",
		RunE:  runAll,
	}
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "do not save the run")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "simulate the protocol and write the current and state figures",
		RunE:  runSimulate,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "compute steady-state currents and write the inactivation figure",
		RunE:  runSweep,
	}

	protocolCmd := &cobra.Command{
		Use:   "protocol",
		Short: "print the stimulus protocol",
		RunE:  showProtocol,
	}

	stabilityCmd := &cobra.Command{
		Use:   "stability",
		Short: "check dt against the explicit Euler bound for every stimulus level",
		RunE:  showStability,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [integrator...]",
		Short: "compare integrators against the configured one",
		RunE:  compareIntegrators,
	}

	scanCmd := &cobra.Command{
		Use:   "scan [param]",
		Short: "settle the model under a fixed stimulus for a range of parameter values",
		Args:  cobra.ExactArgs(1),
		RunE:  scanParam,
	}
	scanCmd.Flags().StringVar(&scanValues, "values", "0,0.001,0.01,0.1,0.2,0.5,1", "comma separated parameter values")
	scanCmd.Flags().Float64Var(&scanDuration, "time", 60, "settling time")
	scanCmd.Flags().Float64Var(&scanNa, "na", 100, "fixed Na+ level")
	scanCmd.Flags().Float64Var(&scanCa, "ca", protocol.DefaultChi, "fixed Ca2+ level")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a stored run in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write the stored trajectory of a run as CSV to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a stored run as JSON to stdout",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Run: func(cmd *cobra.Command, args []string) {
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
		},
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "step the protocol live in the terminal",
		RunE:  watch,
	}

	rootCmd.AddCommand(runCmd, simulateCmd, sweepCmd, protocolCmd, stabilityCmd, compareCmd, scanCmd,
		listCmd, plotCmd, exportCSVCmd, exportJSONCmd, presetsCmd, watchCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// loadConfig resolves the configuration: a config file wins over a preset,
// and flags win over both.
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	case preset != "":
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if outDir != "" {
		cfg.Output.Dir = outDir
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if integrator != "" {
		cfg.Integrator = integrator
	}
	return cfg, nil
}

func setup() (*experiment.Experiment, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := logging.NewLogger(cfg.LogLevel, os.Stderr)
	exp, err := experiment.New(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if logging.ParseLevel(cfg.LogLevel) <= logging.LevelTrace {
		exp.AddObserver(logging.NewStepTracer(logger, 1000))
	}
	return exp, logger, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func presetName() string {
	if configFile != "" {
		return filepath.Base(configFile)
	}
	if preset == "" {
		return "default"
	}
	return preset
}

func runAll(cmd *cobra.Command, args []string) error {
	exp, logger, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	cfg := exp.Config()
	start := time.Now()
	out, runErr := exp.Run(ctx)
	elapsed := time.Since(start)

	var runID string
	if !noStore && out != nil && out.Result != nil {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		meta := exp.Metadata(presetName(), out)
		if runErr != nil {
			meta.Error = runErr.Error()
		}
		runID, err = st.Save(meta, out.Result, out.Curves)
		if err != nil {
			return err
		}
		logger.Info("run stored", "id", runID, "dir", st.Dir(runID))
	}
	if runErr != nil {
		return runErr
	}

	r := render.New(cfg.Output.Width, cfg.Output.DPI)
	files, err := r.Trajectory(cfg.Output.Dir, out.Trajectory())
	if err != nil {
		return err
	}
	f, err := r.Sweep(cfg.Output.Dir, out.Curves)
	if err != nil {
		return err
	}
	files = append(files, f)

	printSummary(out, runID, elapsed, files)
	return nil
}

func runSimulate(cmd *cobra.Command, args []string) error {
	exp, _, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	if _, err := exp.Stability(); err != nil {
		return err
	}
	result, err := exp.Simulate(ctx)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	tr := ncx.NewTrajectory(result)
	files, err := render.New(cfg.Output.Width, cfg.Output.DPI).Trajectory(cfg.Output.Dir, tr)
	if err != nil {
		return err
	}
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("final: %s\n", tr.Final())
	for _, f := range files {
		fmt.Printf("wrote %s\n", f)
	}
	return nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	exp, _, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	curves, err := exp.Sweep(ctx)
	if err != nil {
		return err
	}
	cfg := exp.Config()
	f, err := render.New(cfg.Output.Width, cfg.Output.DPI).Sweep(cfg.Output.Dir, curves)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "KINACT\tPOINTS\tI(min ci)\tI(max ci)")
	for _, c := range curves {
		if len(c.Points) == 0 {
			fmt.Fprintf(w, "%g\t0\t-\t-\n", c.Kinact)
			continue
		}
		fmt.Fprintf(w, "%g\t%d\t%.6f\t%.6f\n", c.Kinact, len(c.Points),
			c.Points[0].Current, c.Points[len(c.Points)-1].Current)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", f)
	return nil
}

func showProtocol(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s := cfg.Schedule()
	if err := s.Validate(); err != nil {
		fmt.Println(warnStyle.Render("warning: " + err.Error()))
	}

	fmt.Printf("seed: %s\n", s.Seed)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tFROM\tTO\tNA\tCA")
	for i, win := range s.Windows {
		fmt.Fprintf(w, "%d\t%g\t%g\t%g\t%g\n", i+1, win.Lo, win.Hi, win.Na, win.Ca)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	gap := "Na+ resets to 0, Ca2+ holds"
	if s.HoldNa {
		gap = "both levels hold"
	}
	fmt.Printf("between windows: %s\n", gap)
	fmt.Printf("simulated time: %g (protocol ends at %g)\n", cfg.Duration(), s.End())
	return nil
}

func showStability(cmd *cobra.Command, args []string) error {
	exp, _, err := setup()
	if err != nil {
		return err
	}
	report, err := exp.Stability()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NA\tCA\tEIGENVALUES\tDT_MAX")
	for _, l := range report.Levels {
		eigs := make([]string, len(l.Eigenvalues))
		for i, e := range l.Eigenvalues {
			eigs[i] = formatEigen(e)
		}
		fmt.Fprintf(w, "%g\t%g\t%s\t%s\n", l.Stimulus.Na, l.Stimulus.Ca, strings.Join(eigs, " "), formatBound(l.DtMax))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	verdict := valueStyle.Render("stable")
	if !report.Stable {
		verdict = warnStyle.Render("UNSTABLE")
	}
	fmt.Printf("\ndt=%g dt_max=%s: %s\n", report.Dt, formatBound(report.DtMax), verdict)
	return nil
}

func formatEigen(e complex128) string {
	if imag(e) == 0 {
		return strconv.FormatFloat(real(e), 'f', 4, 64)
	}
	return fmt.Sprintf("%.4f%+.4fi", real(e), imag(e))
}

func formatBound(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return strconv.FormatFloat(v, 'f', 5, 64)
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	exp, _, err := setup()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	names := args
	if len(names) == 0 {
		for _, n := range experiment.NewRegistry().ListIntegrators() {
			if n != exp.Config().Integrator {
				names = append(names, n)
			}
		}
	}

	fmt.Printf("reference: %s, dt=%g, %d steps\n\n", exp.Config().Integrator, exp.Config().Dt, exp.Config().Steps)
	results, err := exp.Compare(ctx, names)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tMAX_DEV\tFINAL")
	for _, c := range results {
		fmt.Fprintf(w, "%s\t%d\t%.3e\t%s\n", c.Integrator, c.Steps, c.MaxDeviation, c.Final)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func scanParam(cmd *cobra.Command, args []string) error {
	exp, _, err := setup()
	if err != nil {
		return err
	}
	var values []float64
	for _, s := range strings.Split(scanValues, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("invalid value %q: %w", s, err)
		}
		values = append(values, v)
	}

	cfg := exp.Config()
	u := protocol.Stimulus{Na: scanNa, Ca: scanCa}.Control()
	points, err := analysis.ParamScan(exp.Model(), integrators.NewEuler(), args[0], values,
		cfg.Initial().State(), u, cfg.Dt, scanDuration)

	fmt.Printf("%s under ni=%g ci=%g after t=%g\n\n", args[0], scanNa, scanCa, scanDuration)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "VALUE\tF1\tF2\tF3\tF4\tCURRENT")
	for _, p := range points {
		f := ncx.OccupancyOf(p.State).All()
		fmt.Fprintf(w, "%g\t%.5f\t%.5f\t%.5f\t%.5f\t%.5f\n", p.Param, f[0], f[1], f[2], f[3], p.Output)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
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
	fmt.Fprintln(w, "ID\tTIME\tPRESET\tINTEG\tDT\tSTEPS\tKINACTS\tSTATUS")
	for _, run := range runs {
		status := "ok"
		if run.Error != "" {
			status = "failed"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%g\t%d\t%v\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Preset,
			run.Integrator,
			run.Dt,
			run.Steps,
			run.Kinacts,
			status,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	rows, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("integrator: %s, dt=%g\n", meta.Integrator, meta.Dt)
	fmt.Printf("samples: %d\n\n", len(rows))

	current := make([]float64, len(rows))
	for i, r := range rows {
		current[i] = r.Current
	}
	fmt.Println(asciigraph.Plot(current,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption("current"),
	))
	fmt.Println()

	for k := 0; k < 4; k++ {
		data := make([]float64, len(rows))
		for i, r := range rows {
			data[i] = r.F[k]
		}
		fmt.Println(asciigraph.Plot(data,
			asciigraph.Height(6),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("F%d", k+1)),
		))
		fmt.Println()
	}

	curves, err := st.LoadSweep(runID)
	if errors.Is(err, storage.ErrNoData) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, c := range curves {
		if len(c.Points) < 2 {
			continue
		}
		fmt.Println(asciigraph.Plot(c.Currents(),
			asciigraph.Height(6),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("steady state, kinact=%g", c.Kinact)),
		))
		fmt.Println()
	}
	return nil
}

func exportCSV(cmd *cobra.Command, args []string) error {
	rows, err := storage.New(dataDir).LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	return storage.WriteTrajectoryCSV(os.Stdout, rows)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	data, err := storage.New(dataDir).Export(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, data)
}

func watch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	// Log lines would tear the alternate screen.
	exp, err := experiment.New(cfg, logging.Discard())
	if err != nil {
		return err
	}
	return tui.Run(tui.NewWatch(exp.Stepper(), exp.Schedule(), cfg.Steps))
}

func printSummary(out *experiment.Outcome, runID string, elapsed time.Duration, files []string) {
	var b strings.Builder
	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-12s", label)) + valueStyle.Render(value) + "\n")
	}

	b.WriteString(titleStyle.Render("ncx run") + "\n")
	if runID != "" {
		row("run id", runID)
	}
	row("elapsed", elapsed.Round(time.Millisecond).String())
	row("steps", strconv.Itoa(out.Result.StepsTaken))
	row("final", out.Trajectory().Final().String())
	row("dt_max", formatBound(out.Stability.DtMax))

	for _, name := range sortedKeys(out.Result.Metrics) {
		row(name, strconv.FormatFloat(out.Result.Metrics[name], 'g', 6, 64))
	}
	for _, c := range out.Curves {
		row(fmt.Sprintf("sweep %g", c.Kinact), fmt.Sprintf("%d points", len(c.Points)))
	}
	for _, f := range files {
		row("wrote", f)
	}
	if !out.Stability.Stable {
		b.WriteString(warnStyle.Render("dt exceeds the Euler stability bound") + "\n")
	}

	fmt.Println(boxStyle.Render(strings.TrimRight(b.String(), "\n")))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

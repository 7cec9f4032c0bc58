package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/glucosim/internal/config"
	"github.com/san-kum/glucosim/internal/continuous"
	"github.com/san-kum/glucosim/internal/dataset"
	"github.com/san-kum/glucosim/internal/discrete"
	"github.com/san-kum/glucosim/internal/dynamo"
	"github.com/san-kum/glucosim/internal/export"
	"github.com/san-kum/glucosim/internal/fit"
	"github.com/san-kum/glucosim/internal/interp"
	"github.com/san-kum/glucosim/internal/metrics"
	"github.com/san-kum/glucosim/internal/model"
	"github.com/san-kum/glucosim/internal/ode"
	"github.com/san-kum/glucosim/internal/storage"
	"github.com/san-kum/glucosim/internal/tui"
)

var (
	dataDir       string
	configFile    string
	dataFile      string
	saveRun       bool
	svgPath       string
	live          bool
	smoothInsulin bool
	noPlot        bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "glucosim",
		Short: "glucose minimal model simulation and fitting",
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "runs", ".glucosim", "run storage directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "scenario yaml file")
	rootCmd.PersistentFlags().BoolVar(&noPlot, "no-plot", false, "suppress terminal plots")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "fixed-step Euler simulation",
		RunE:  runSimulate,
	}
	simulateCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run")

	integrateCmd := &cobra.Command{
		Use:   "integrate",
		Short: "adaptive continuous-time integration",
		RunE:  runIntegrate,
	}
	integrateCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run")

	compareCmd := &cobra.Command{
		Use:   "compare",
		Short: "discrete vs continuous trajectories",
		RunE:  runCompare,
	}

	fitCmd := &cobra.Command{
		Use:   "fit",
		Short: "fit rate constants to observed data",
		RunE:  runFit,
	}
	fitCmd.Flags().StringVar(&dataFile, "data", "", "observation csv (overrides scenario)")
	fitCmd.Flags().BoolVar(&live, "live", false, "live fit monitor")
	fitCmd.Flags().BoolVar(&smoothInsulin, "smooth-insulin", false, "shape-preserving insulin interpolation")
	fitCmd.Flags().BoolVar(&saveRun, "save", false, "persist the run")
	fitCmd.Flags().StringVar(&svgPath, "svg", "", "write fitted-vs-observed svg")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		RunE:  runList,
	}

	rootCmd.AddCommand(simulateCmd, integrateCmd, compareCmd, fitCmd, listCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadScenario() (*config.Scenario, error) {
	if configFile == "" {
		return config.DefaultScenario(), nil
	}
	return config.Load(configFile)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	scen, err := loadScenario()
	if err != nil {
		return err
	}
	cfg := scen.BuildConfig(interp.Constant(scen.Params.Ib))

	m := model.Minimal{}
	if err := m.Validate(cfg); err != nil {
		return err
	}

	traj, err := discrete.New(m, m.Update).Run(context.Background(), cfg)
	if err != nil {
		return err
	}

	fmt.Printf("discrete run: %d rows over [%g, %g] dt=%g\n", traj.Len(), cfg.T0, cfg.TEnd, cfg.Dt)
	plotColumn(traj, "G", "glucose (discrete)")

	if saveRun {
		return persist("simulate", cfg, traj, dynamo.Diagnostics{Success: true, Message: "fixed-step run"}, nil, nil)
	}
	return nil
}

func runIntegrate(cmd *cobra.Command, args []string) error {
	scen, err := loadScenario()
	if err != nil {
		return err
	}
	cfg := scen.BuildConfig(interp.Constant(scen.Params.Ib))

	m := model.Minimal{}
	if err := m.Validate(cfg); err != nil {
		return err
	}

	sim := continuous.New(m, m.Slope, ode.NewDormandPrince(scen.Solver.Tolerance))
	traj, diag, err := sim.Run(context.Background(), cfg, nil)
	if err != nil {
		return err
	}

	fmt.Printf("continuous run: %d rows, %d accepted steps, %d rhs evaluations\n",
		traj.Len(), diag.Iterations, diag.Evaluations)
	if !diag.Success {
		fmt.Printf("warning: %s\n", diag.Message)
	}
	plotColumn(traj, "G", "glucose (continuous)")

	if saveRun {
		return persist("integrate", cfg, traj, diag, nil, nil)
	}
	return nil
}

func runCompare(cmd *cobra.Command, args []string) error {
	scen, err := loadScenario()
	if err != nil {
		return err
	}
	cfg := scen.BuildConfig(interp.Constant(scen.Params.Ib))

	m := model.Minimal{}
	if err := m.Validate(cfg); err != nil {
		return err
	}

	dtraj, err := discrete.New(m, m.Update).Run(context.Background(), cfg)
	if err != nil {
		return err
	}

	sim := continuous.New(m, m.Slope, ode.NewDormandPrince(scen.Solver.Tolerance))
	ctraj, diag, err := sim.Run(context.Background(), cfg, dtraj.Times)
	if err != nil {
		return err
	}
	if !diag.Success {
		fmt.Printf("warning: %s\n", diag.Message)
	}

	dg, err := dtraj.Column("G")
	if err != nil {
		return err
	}
	cg, err := ctraj.Column("G")
	if err != nil {
		return err
	}

	maxRel := 0.0
	maxAt := 0.0
	for i := range dg {
		rel := math.Abs(dg[i]-cg[i]) / math.Abs(cg[i])
		if rel > maxRel {
			maxRel = rel
			maxAt = dtraj.Times[i]
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "t\tG discrete\tG continuous\tdiff")
	stride := len(dg) / 10
	if stride < 1 {
		stride = 1
	}
	for i := 0; i < len(dg); i += stride {
		fmt.Fprintf(w, "%.0f\t%.3f\t%.3f\t%+.4f\n", dtraj.Times[i], dg[i], cg[i], dg[i]-cg[i])
	}
	w.Flush()

	fmt.Printf("\nmax relative G difference: %.4f%% at t=%g\n", maxRel*100, maxAt)
	return nil
}

func runFit(cmd *cobra.Command, args []string) error {
	scen, err := loadScenario()
	if err != nil {
		return err
	}

	path := dataFile
	if path == "" {
		path = scen.Data.Path
	}
	if path == "" {
		return fmt.Errorf("fit needs observed data: --data or data.path in the scenario")
	}

	tbl, err := dataset.Load(path, scen.Data.TimeColumn)
	if err != nil {
		return err
	}

	glucose, err := tbl.Column(scen.Data.GlucoseColumn)
	if err != nil {
		return err
	}
	insulinCol, err := tbl.Column(scen.Data.InsulinColumn)
	if err != nil {
		return err
	}

	build := interp.Linear
	if smoothInsulin {
		build = interp.ShapePreserving
	}
	insulin, err := build(tbl.Times, insulinCol)
	if err != nil {
		return err
	}

	// Baselines come from the first observed sample; the span and the
	// initial glucose from the data itself.
	scen.Params.Gb, _ = tbl.Baseline(scen.Data.GlucoseColumn)
	scen.Params.Ib, _ = tbl.Baseline(scen.Data.InsulinColumn)
	scen.Span.T0 = tbl.Times[0]
	scen.Span.TEnd = tbl.Times[tbl.Len()-1]
	scen.Init.G = glucose[0]
	scen.Init.X = 0

	base := scen.BuildConfig(insulin)
	m := model.Minimal{}
	if err := m.Validate(base); err != nil {
		return err
	}

	obs, err := fit.NewObservations(tbl.Times, glucose)
	if err != nil {
		return err
	}
	if len(scen.Fit.Guess) != model.RateCount {
		return fmt.Errorf("fit guess must have %d entries [k1 k2 k3], got %d",
			model.RateCount, len(scen.Fit.Guess))
	}

	sim := continuous.New(m, m.Slope, ode.NewDormandPrince(scen.Solver.Tolerance))
	obj, err := fit.NewObjective(base, sim, model.ConfigWithRates, "G", obs)
	if err != nil {
		return err
	}

	var res fit.Result
	if live {
		res, err = fitWithMonitor(obj, scen)
	} else {
		evals := 0
		obj.Progress = func(p []float64, rn float64) {
			evals++
			if evals%50 == 0 {
				fmt.Printf("  eval %d: k1=%.6g k2=%.6g k3=%.6g residual=%.6g\n",
					evals, p[0], p[1], p[2], rn)
			}
		}
		res, err = fit.Minimize(obj, scen.Fit.Guess, scen.FitOptions())
	}
	if err != nil {
		return err
	}

	reportFit(scen, res)

	fitted := model.ConfigWithRates(base, res.Params)
	traj, diag, err := sim.Run(context.Background(), fitted, tbl.Times)
	if err != nil {
		return err
	}
	if !diag.Success {
		fmt.Printf("warning: final trajectory did not converge: %s\n", diag.Message)
	}
	if !noPlot {
		plotColumn(traj, "G", "fitted glucose")
	}

	if svgPath != "" {
		g, _ := traj.Column("G")
		doc := export.SVG(
			export.Series{Times: traj.Times, Values: g},
			export.Series{Times: tbl.Times, Values: glucose},
			800, 500)
		if err := os.WriteFile(svgPath, []byte(doc), 0644); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", svgPath)
	}

	if saveRun {
		vals := metrics.Collect(res.Residuals, metrics.NewRMSE(), metrics.NewMaxAbs())
		return persist("fit", fitted, traj, res.Diagnostics, vals, res.Params)
	}
	return nil
}

func fitWithMonitor(obj *fit.Objective, scen *config.Scenario) (fit.Result, error) {
	msgs := make(chan tea.Msg, 64)
	evals := 0
	obj.Progress = func(p []float64, rn float64) {
		evals++
		select {
		case msgs <- tui.ProgressMsg{Evaluation: evals, Params: append([]float64(nil), p...), ResidualNorm: rn}:
		default:
		}
	}

	type outcome struct {
		res fit.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := fit.Minimize(obj, scen.Fit.Guess, scen.FitOptions())
		msg := tui.DoneMsg{Success: false, Message: "fit failed"}
		if err == nil {
			msg = tui.DoneMsg{
				Params:       res.Params,
				Success:      res.Diagnostics.Success,
				Message:      res.Diagnostics.Message,
				ResidualNorm: res.Diagnostics.ResidualNorm,
			}
		}
		done <- outcome{res, err}
		// Best effort: the viewer may already have quit.
		select {
		case msgs <- msg:
		default:
		}
	}()

	if err := tui.Run(msgs); err != nil {
		return fit.Result{}, err
	}
	out := <-done
	return out.res, out.err
}

func reportFit(scen *config.Scenario, res fit.Result) {
	vals := metrics.Collect(res.Residuals, metrics.NewRMSE(), metrics.NewMaxAbs())

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "param\tguess\tfitted")
	names := []string{"k1", "k2", "k3"}
	for i, name := range names {
		fmt.Fprintf(w, "%s\t%.6g\t%.6g\n", name, scen.Fit.Guess[i], res.Params[i])
	}
	w.Flush()

	status := "converged"
	if !res.Diagnostics.Success {
		status = "NOT converged"
	}
	fmt.Printf("\n%s: %s\n", status, res.Diagnostics.Message)
	fmt.Printf("evaluations: %d  residual norm: %.6g  rmse: %.4f  max error: %.4f\n",
		res.Diagnostics.Evaluations, res.Diagnostics.ResidualNorm,
		vals["rmse"], vals["max_abs_error"])
}

func persist(kind string, cfg dynamo.Config, traj *dynamo.Trajectory, diag dynamo.Diagnostics, vals map[string]float64, fitted []float64) error {
	store := storage.New(dataDir)
	if err := store.Init(); err != nil {
		return err
	}
	id, err := store.Save(kind, cfg, traj, diag, vals, fitted)
	if err != nil {
		return err
	}
	fmt.Printf("saved run %s\n", id)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	store := storage.New(dataDir)
	ids, err := store.List()
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		fmt.Println("no stored runs")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "id\tkind\tsuccess\tresidual")
	for _, id := range ids {
		meta, err := store.LoadMetadata(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%.4g\n", meta.ID, meta.Kind, meta.Diagnostics.Success, meta.Diagnostics.ResidualNorm)
	}
	return w.Flush()
}

func plotColumn(traj *dynamo.Trajectory, column, caption string) {
	if noPlot {
		return
	}
	values, err := traj.Column(column)
	if err != nil || len(values) < 2 {
		return
	}
	fmt.Println(asciigraph.Plot(values,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption)))
}

// Package experiment assembles the model, protocol, integrator and sweep
// from a configuration and runs them.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/pyncx/ncx/internal/analysis"
	"github.com/pyncx/ncx/internal/config"
	"github.com/pyncx/ncx/internal/dynamo"
	"github.com/pyncx/ncx/internal/metrics"
	"github.com/pyncx/ncx/internal/ncx"
	"github.com/pyncx/ncx/internal/protocol"
	"github.com/pyncx/ncx/internal/storage"
	"github.com/pyncx/ncx/internal/sweep"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	model     *ncx.Model
	schedule  protocol.Schedule
	logger    *slog.Logger
	observers []dynamo.Observer
}

// Outcome collects everything a full run produces. Result or Curves is nil
// when that part was not run.
type Outcome struct {
	Result    *dynamo.Result
	Curves    []sweep.Curve
	Stability analysis.Report
}

func (o *Outcome) Trajectory() ncx.Trajectory {
	return ncx.NewTrajectory(o.Result)
}

func New(cfg *config.Config, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	reg := NewRegistry()
	if _, err := reg.GetIntegrator(cfg.Integrator); err != nil {
		return nil, err
	}
	return &Experiment{
		cfg:      cfg,
		registry: reg,
		model:    ncx.New(cfg.Rates),
		schedule: cfg.Schedule(),
		logger:   logger,
	}, nil
}

func (e *Experiment) Config() *config.Config        { return e.cfg }
func (e *Experiment) Model() *ncx.Model             { return e.model }
func (e *Experiment) Schedule() protocol.Schedule   { return e.schedule }
func (e *Experiment) AddObserver(o dynamo.Observer) { e.observers = append(e.observers, o) }

// Stepper returns a fresh stepper positioned at t = 0.
func (e *Experiment) Stepper() *dynamo.Stepper {
	integ, _ := e.registry.GetIntegrator(e.cfg.Integrator)
	return dynamo.NewStepper(e.model, integ, e.schedule,
		e.cfg.Initial().State(), e.schedule.Seed.Control(), e.cfg.Dt)
}

// Stability checks the configured step against every stimulus level of the
// protocol and logs a warning when it is too large.
func (e *Experiment) Stability() (analysis.Report, error) {
	report, err := analysis.Analyze(e.model, e.schedule.Levels(), e.cfg.Dt)
	if err != nil {
		return report, err
	}
	if !report.Stable && e.cfg.Integrator == "euler" {
		e.logger.Warn("dt exceeds the explicit Euler stability bound",
			"dt", e.cfg.Dt, "dt_max", report.DtMax, "level", report.Worst().Stimulus)
	}
	return report, nil
}

// Simulate integrates the protocol from the configured initial occupancy.
func (e *Experiment) Simulate(ctx context.Context) (*dynamo.Result, error) {
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	sim := dynamo.New(e.model, integ, e.schedule)
	sim.SetLogger(e.logger)

	var occupancy *metrics.Occupancy
	for _, m := range e.registry.DefaultMetrics(e.model) {
		if o, ok := m.(*metrics.Occupancy); ok {
			occupancy = o
		}
		sim.AddMetric(m)
	}
	for _, o := range e.observers {
		sim.AddObserver(o)
	}

	e.logger.Info("simulating", "integrator", e.cfg.Integrator, "dt", e.cfg.Dt, "steps", e.cfg.Steps)
	result, err := sim.Run(ctx, e.cfg.Initial().State(), e.schedule.Seed.Control(), e.cfg.SimConfig())
	if err != nil {
		return result, fmt.Errorf("simulate: %w", err)
	}

	if occupancy != nil && occupancy.Violations() > 0 {
		e.logger.Warn("occupancy left [0, 1]",
			"steps", occupancy.Violations(), "first_t", occupancy.FirstViolation(),
			"min", occupancy.Min(), "max", occupancy.Max())
	}
	return result, nil
}

// Sweep runs the steady-state sweep.
func (e *Experiment) Sweep(ctx context.Context) ([]sweep.Curve, error) {
	e.logger.Info("sweeping", "na", e.cfg.Sweep.Na, "kinacts", e.cfg.Sweep.Kinacts, "samples", e.cfg.Sweep.Samples)
	curves, err := sweep.New(e.cfg.Rates, e.cfg.Sweep, e.logger).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	return curves, nil
}

// Run performs the stability check, then the simulation and the sweep
// side by side.
func (e *Experiment) Run(ctx context.Context) (*Outcome, error) {
	report, err := e.Stability()
	if err != nil {
		return nil, err
	}
	out := &Outcome{Stability: report}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Result, err = e.Simulate(ctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Curves, err = e.Sweep(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return out, err
	}
	return out, nil
}

// Metadata describes an outcome for storage.
func (e *Experiment) Metadata(preset string, out *Outcome) storage.RunMetadata {
	meta := storage.RunMetadata{
		Preset:     preset,
		Integrator: e.cfg.Integrator,
		Dt:         e.cfg.Dt,
		Steps:      e.cfg.Steps,
		Chi:        e.cfg.Chi,
		Rates:      e.cfg.Rates,
		Every:      e.cfg.Output.TrajectoryEvery,
	}
	if !math.IsInf(out.Stability.DtMax, 0) {
		meta.DtMax = out.Stability.DtMax
	}
	if out.Result != nil {
		meta.Metrics = out.Result.Metrics
		if out.Result.Len() > 0 {
			all := out.Trajectory().Final().All()
			meta.Final = all[:]
		}
	}
	return meta
}

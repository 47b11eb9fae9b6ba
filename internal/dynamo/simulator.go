package dynamo

import (
	"context"
	"fmt"
	"log/slog"
)

type Simulator struct {
	dyn        System
	integrator Integrator
	drive      Drive
	metrics    []Metric
	observers  []Observer
	logger     *slog.Logger
}

func New(dyn System, integrator Integrator, drive Drive) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		drive:      drive,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		logger:     slog.New(slog.DiscardHandler),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *slog.Logger) {
	if l != nil {
		s.logger = l
	}
}

// Run integrates cfg.Steps steps from (x0, u0) and records every step.
// On a guard failure the partial result is returned together with a
// *SimulationError.
func (s *Simulator) Run(ctx context.Context, x0 State, u0 Control, cfg Config) (*Result, error) {
	if err := s.validate(x0, u0, cfg); err != nil {
		return nil, err
	}

	result := &Result{
		States:   make([]State, 0, cfg.Steps),
		Controls: make([]Control, 0, cfg.Steps),
		Times:    make([]float64, 0, cfg.Steps),
		Outputs:  make([]float64, 0, cfg.Steps),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	bounded, _ := s.dyn.(Bounded)
	stepper := NewStepper(s.dyn, s.integrator, s.drive, x0, u0, cfg.Dt)

	s.logger.Debug("simulation started", "steps", cfg.Steps, "dt", cfg.Dt)

	var runErr error
	for i := 0; i < cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			runErr = &SimulationError{Step: i, Time: stepper.Time(), State: stepper.State().Clone(), Wrapped: ErrContextCanceled}
		default:
		}
		if runErr != nil {
			break
		}

		sample := stepper.Step()

		if cfg.ValidateState && !sample.State.IsValid() {
			runErr = &SimulationError{Step: sample.Step, Time: sample.Time, State: sample.State.Clone(), Wrapped: ErrInvalidState}
			break
		}
		if cfg.StrictBounds && bounded != nil && !bounded.InBounds(sample.State) {
			runErr = &SimulationError{Step: sample.Step, Time: sample.Time, State: sample.State.Clone(), Wrapped: ErrUnstable}
			break
		}

		result.StepsTaken++
		result.States = append(result.States, sample.State.Clone())
		result.Controls = append(result.Controls, sample.Input.Clone())
		result.Times = append(result.Times, sample.Time)
		result.Outputs = append(result.Outputs, sample.Output)

		for _, m := range s.metrics {
			m.Observe(sample.State, sample.Input, sample.Time)
		}
		for _, obs := range s.observers {
			obs.OnStep(sample.State, sample.Input, sample.Time)
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	if runErr != nil {
		s.logger.Warn("simulation halted", "err", runErr)
		return result, runErr
	}
	s.logger.Debug("simulation finished", "steps", result.StepsTaken)
	return result, nil
}

func (s *Simulator) validate(x0 State, u0 Control, cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f: %w", cfg.Dt, ErrParameterBounds)
	}
	if cfg.Steps <= 0 {
		return fmt.Errorf("steps must be positive, got %d: %w", cfg.Steps, ErrParameterBounds)
	}
	if len(x0) != s.dyn.StateDim() {
		return fmt.Errorf("initial state has %d components, system wants %d: %w", len(x0), s.dyn.StateDim(), ErrDimensionMismatch)
	}
	if len(u0) != s.dyn.ControlDim() {
		return fmt.Errorf("initial input has %d components, system wants %d: %w", len(u0), s.dyn.ControlDim(), ErrDimensionMismatch)
	}
	return nil
}

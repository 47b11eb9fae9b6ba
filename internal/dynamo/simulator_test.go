package dynamo

import (
	"context"
	"errors"
	"math"
	"testing"
)

// testDynamics is dx/dt = -u[0]*x, expanded with its complement 1-x.
type testDynamics struct{}

func (t *testDynamics) Derive(x State, u Control, time float64) State {
	return State{-u[0] * x[0]}
}

func (t *testDynamics) StateDim() int   { return 1 }
func (t *testDynamics) ControlDim() int { return 1 }

func (t *testDynamics) Output(x State, u Control) float64 { return x[0] * u[0] }
func (t *testDynamics) Expand(x State) State              { return State{x[0], 1 - x[0]} }
func (t *testDynamics) InBounds(x State) bool             { return x[0] >= 0 && x[0] <= 1 }

type testIntegrator struct{}

func (t *testIntegrator) Step(dyn System, x State, u Control, time float64, dt float64) State {
	dx := dyn.Derive(x, u, time)
	return State{x[0] + dt*dx[0]}
}

// testDrive holds its input except inside (lo, hi).
type testDrive struct {
	lo, hi, level float64
}

func (d testDrive) Next(t float64, prev Control) Control {
	if t > d.lo && t < d.hi {
		return Control{d.level}
	}
	return prev
}

func TestSimulatorRun(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	cfg := Config{Dt: 0.1, Steps: 10, ValidateState: true}

	result, err := sim.Run(context.Background(), State{1.0}, Control{1.0}, cfg)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(result.States) != 10 {
		t.Errorf("expected 10 states, got %d", len(result.States))
	}
	if len(result.Times) != 10 || len(result.Outputs) != 10 || len(result.Controls) != 10 {
		t.Errorf("series lengths differ: times=%d outputs=%d controls=%d", len(result.Times), len(result.Outputs), len(result.Controls))
	}
	if math.Abs(result.Times[0]-0.1) > 1e-15 {
		t.Errorf("first recorded time should be dt, got %v", result.Times[0])
	}

	finalState := result.States[len(result.States)-1][0]
	expected := math.Pow(0.9, 10)
	if math.Abs(finalState-expected) > 1e-12 {
		t.Errorf("expected final state %.6f, got %.6f", expected, finalState)
	}
}

func TestSimulatorDriveThreadsPreviousInput(t *testing.T) {
	drive := testDrive{lo: 0.25, hi: 0.45, level: 0}
	sim := New(&testDynamics{}, &testIntegrator{}, drive)

	result, err := sim.Run(context.Background(), State{1.0}, Control{2.0}, Config{Dt: 0.1, Steps: 6})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	want := []float64{2, 2, 0, 0, 0, 0}
	for i, w := range want {
		if got := result.Controls[i][0]; got != w {
			t.Errorf("step %d input = %v, want %v", i+1, got, w)
		}
	}
}

func TestSimulatorInvalidConfig(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	tests := []struct {
		name string
		x0   State
		u0   Control
		cfg  Config
		want error
	}{
		{"zero dt", State{1}, Control{1}, Config{Dt: 0, Steps: 10}, ErrParameterBounds},
		{"negative dt", State{1}, Control{1}, Config{Dt: -0.1, Steps: 10}, ErrParameterBounds},
		{"zero steps", State{1}, Control{1}, Config{Dt: 0.1, Steps: 0}, ErrParameterBounds},
		{"state dim", State{1, 2}, Control{1}, Config{Dt: 0.1, Steps: 10}, ErrDimensionMismatch},
		{"control dim", State{1}, Control{}, Config{Dt: 0.1, Steps: 10}, ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := sim.Run(context.Background(), tt.x0, tt.u0, tt.cfg)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestSimulatorStrictBounds(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	// dt*rate = 3 overshoots below zero on the first step.
	cfg := Config{Dt: 1.5, Steps: 5, StrictBounds: true}
	result, err := sim.Run(context.Background(), State{1.0}, Control{2.0}, cfg)

	var simErr *SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if !errors.Is(err, ErrUnstable) {
		t.Errorf("expected ErrUnstable, got %v", err)
	}
	if simErr.Step != 1 {
		t.Errorf("expected failure at step 1, got %d", simErr.Step)
	}
	if result == nil || result.StepsTaken != 0 {
		t.Errorf("expected empty partial result, got %+v", result)
	}

	cfg.StrictBounds = false
	if _, err := sim.Run(context.Background(), State{1.0}, Control{2.0}, cfg); err != nil {
		t.Errorf("lenient run should not fail: %v", err)
	}
}

func TestSimulatorInvalidState(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	cfg := Config{Dt: 0.1, Steps: 3, ValidateState: true}
	_, err := sim.Run(context.Background(), State{1.0}, Control{math.Inf(1)}, cfg)
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("expected ErrInvalidState, got %v", err)
	}
}

func TestSimulatorCanceled(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := sim.Run(ctx, State{1.0}, Control{1.0}, Config{Dt: 0.1, Steps: 100})
	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("expected ErrContextCanceled, got %v", err)
	}
	if result.StepsTaken != 0 {
		t.Errorf("expected no steps, got %d", result.StepsTaken)
	}
}

type testMetric struct {
	count int
	sum   float64
}

func (t *testMetric) Name() string { return "test" }
func (t *testMetric) Observe(x State, u Control, time float64) {
	t.count++
	t.sum += x[0]
}
func (t *testMetric) Value() float64 {
	if t.count == 0 {
		return 0
	}
	return t.sum / float64(t.count)
}
func (t *testMetric) Reset() {
	t.count = 0
	t.sum = 0
}

func TestSimulatorMetrics(t *testing.T) {
	sim := New(&testDynamics{}, &testIntegrator{}, nil)

	metric := &testMetric{}
	sim.AddMetric(metric)

	result, err := sim.Run(context.Background(), State{1.0}, Control{1.0}, Config{Dt: 0.1, Steps: 10})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if _, ok := result.Metrics["test"]; !ok {
		t.Error("metric not found in result")
	}

	if metric.count != 10 {
		t.Errorf("expected 10 observations, got %d", metric.count)
	}
}

func TestStepperReset(t *testing.T) {
	st := NewStepper(&testDynamics{}, &testIntegrator{}, nil, State{1.0}, Control{1.0}, 0.5)

	s1 := st.Step()
	if s1.Step != 1 || s1.Time != 0.5 {
		t.Errorf("unexpected first sample %+v", s1)
	}
	if s1.Output != s1.State[0]*1.0 {
		t.Errorf("output not taken from system: %v", s1.Output)
	}

	st.Step()
	st.Reset()
	if st.Time() != 0 || st.Steps() != 0 || st.State()[0] != 1.0 {
		t.Errorf("reset did not restore initial conditions: t=%v steps=%d x=%v", st.Time(), st.Steps(), st.State())
	}
}

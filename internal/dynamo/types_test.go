package dynamo

import (
	"errors"
	"math"
	"testing"
)

func TestState_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		state State
		valid bool
	}{
		{"empty", State{}, true},
		{"normal", State{1.0, 2.0, 3.0}, true},
		{"zeros", State{0.0, 0.0}, true},
		{"with NaN", State{1.0, math.NaN()}, false},
		{"with +Inf", State{1.0, math.Inf(1)}, false},
		{"with -Inf", State{1.0, math.Inf(-1)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.state.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
		})
	}
}

func TestState_Norm(t *testing.T) {
	tests := []struct {
		state    State
		expected float64
	}{
		{State{3, 4}, 5.0},
		{State{1, 0}, 1.0},
		{State{0, 0}, 0.0},
		{State{1, 1, 1, 1}, 2.0},
	}

	for _, tt := range tests {
		if got := tt.state.Norm(); math.Abs(got-tt.expected) > 1e-10 {
			t.Errorf("Norm(%v) = %v, want %v", tt.state, got, tt.expected)
		}
	}
}

func TestState_SumAndSub(t *testing.T) {
	a := State{0.7, 0.2, 0.1}
	if got := a.Sum(); math.Abs(got-1.0) > 1e-15 {
		t.Errorf("Sum() = %v, want 1", got)
	}

	diff := State{4, 5, 6}.Sub(State{1, 2, 3})
	if diff[0] != 3 || diff[1] != 3 || diff[2] != 3 {
		t.Errorf("Sub failed: got %v", diff)
	}
}

func TestState_CloneIsIndependent(t *testing.T) {
	src := State{1, 2, 3}
	c := src.Clone()
	c[0] = 99
	if src[0] == 99 {
		t.Error("Clone did not create independent copy")
	}
}

func TestResult_Series(t *testing.T) {
	r := &Result{
		States: []State{{1, 2}, {3, 4}, {5}},
		Times:  []float64{0.1, 0.2, 0.3},
	}
	got := r.Series(1)
	want := []float64{2, 4, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Series(1)[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if r.Len() != 3 {
		t.Errorf("Len() = %d, want 3", r.Len())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Dt != 0.003 {
		t.Errorf("DefaultConfig Dt = %v, want 0.003", cfg.Dt)
	}
	if cfg.Steps != 150000 {
		t.Errorf("DefaultConfig Steps = %d, want 150000", cfg.Steps)
	}
	if !cfg.ValidateState {
		t.Error("DefaultConfig should validate state")
	}
}

func TestSimError(t *testing.T) {
	err := SimError{Time: 1.5, Step: 150, Message: "test error"}
	expected := "step 150 (t=1.5000): test error"
	if err.Error() != expected {
		t.Errorf("SimError.Error() = %q, want %q", err.Error(), expected)
	}
}

func TestSimulationError_Unwrap(t *testing.T) {
	err := &SimulationError{Step: 3, Time: 0.009, Wrapped: ErrUnstable}
	if !errors.Is(err, ErrUnstable) {
		t.Error("SimulationError should unwrap to ErrUnstable")
	}
	if err.Error() == "" {
		t.Error("empty error message")
	}
}

package dynamo

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Sum() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v
	}
	return sum
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

type Control []float64

func (c Control) Clone() Control {
	out := make(Control, len(c))
	copy(out, c)
	return out
}

type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Output is implemented by systems that expose a scalar observable,
// e.g. a transport current derived from state and input.
type Output interface {
	Output(x State, u Control) float64
}

// Expander is implemented by systems whose integrated state omits
// components that are derived by closure (for example a fraction that is
// always the complement of the others). Expand returns the full vector.
type Expander interface {
	Expand(x State) State
}

// Bounded systems can report whether a state is physically admissible.
type Bounded interface {
	InBounds(x State) bool
}

type Integrator interface {
	Step(dyn System, x State, u Control, t float64, dt float64) State
}

// Drive produces the input for time t. The previous input is passed back
// in so that drives holding a value between events need no hidden state.
type Drive interface {
	Next(t float64, prev Control) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Config struct {
	Dt            float64
	Steps         int
	ValidateState bool
	StrictBounds  bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.003,
		Steps:         150000,
		ValidateState: true,
		StrictBounds:  false,
	}
}

// Result is the trajectory of a run: one entry per integration step, the
// initial condition is not included.
type Result struct {
	States     []State
	Controls   []Control
	Times      []float64
	Outputs    []float64
	Metrics    map[string]float64
	StepsTaken int
}

func (r *Result) Len() int { return len(r.Times) }

// Series returns component i of every recorded state.
func (r *Result) Series(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, s := range r.States {
		if i < len(s) {
			out[k] = s[i]
		}
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

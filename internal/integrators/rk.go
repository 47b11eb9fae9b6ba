package integrators

import "github.com/pyncx/ncx/internal/dynamo"

// Tableau is the Butcher tableau of an explicit Runge-Kutta method.
// A is strictly lower triangular; len(B) == len(C) == number of stages.
type Tableau struct {
	A [][]float64
	B []float64
	C []float64
}

var (
	heunTableau = Tableau{
		A: [][]float64{{}, {1}},
		B: []float64{0.5, 0.5},
		C: []float64{0, 1},
	}
	midpointTableau = Tableau{
		A: [][]float64{{}, {0.5}},
		B: []float64{0, 1},
		C: []float64{0, 0.5},
	}
	rk4Tableau = Tableau{
		A: [][]float64{{}, {0.5}, {0, 0.5}, {0, 0, 1}},
		B: []float64{1.0 / 6, 1.0 / 3, 1.0 / 3, 1.0 / 6},
		C: []float64{0, 0.5, 0.5, 1},
	}
)

// RK is an explicit Runge-Kutta stepper. Stage buffers are reused between
// steps, so one RK value must not be shared across goroutines.
type RK struct {
	tab     Tableau
	k       []dynamo.State
	scratch dynamo.State
}

func NewRK(tab Tableau) *RK    { return &RK{tab: tab} }
func NewHeun() *RK             { return NewRK(heunTableau) }
func NewMidpoint() *RK         { return NewRK(midpointTableau) }
func NewRK4() *RK              { return NewRK(rk4Tableau) }
func (r *RK) Stages() int      { return len(r.tab.B) }
func (r *RK) Tableau() Tableau { return r.tab }

func (r *RK) ensureScratch(n int) {
	stages := len(r.tab.B)
	if len(r.k) == stages && len(r.scratch) == n {
		return
	}
	r.k = make([]dynamo.State, stages)
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
	}
	r.scratch = make(dynamo.State, n)
}

func (r *RK) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	n := len(x)
	r.ensureScratch(n)

	for s := range r.tab.B {
		copy(r.scratch, x)
		for j, a := range r.tab.A[s] {
			if a == 0 {
				continue
			}
			for i := 0; i < n; i++ {
				r.scratch[i] += dt * a * r.k[j][i]
			}
		}
		copy(r.k[s], dyn.Derive(r.scratch, u, t+r.tab.C[s]*dt))
	}

	result := x.Clone()
	for s, b := range r.tab.B {
		if b == 0 {
			continue
		}
		for i := 0; i < n; i++ {
			result[i] += dt * b * r.k[s][i]
		}
	}
	return result
}

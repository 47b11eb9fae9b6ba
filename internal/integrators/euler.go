package integrators

import "github.com/pyncx/ncx/internal/dynamo"

// Euler is the explicit forward Euler scheme x' = x + dt*f(x, u, t).
// Every component is advanced from the same pre-step state.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))
	for i := range x {
		result[i] = x[i] + dx[i]*dt
	}
	return result
}

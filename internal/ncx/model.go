package ncx

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/pyncx/ncx/internal/dynamo"
)

// Occupancy is the integrated part of the state vector. F4 is derived.
type Occupancy struct {
	F1, F2, F3 float64
}

func DefaultOccupancy() Occupancy {
	return Occupancy{F1: 0.7, F2: 0.2, F3: 0.01}
}

func OccupancyOf(x dynamo.State) Occupancy {
	return Occupancy{F1: x[0], F2: x[1], F3: x[2]}
}

// F4 is the complement 1 - F1 - F2 - F3, evaluated in that order.
func (o Occupancy) F4() float64 {
	return 1 - o.F1 - o.F2 - o.F3
}

func (o Occupancy) State() dynamo.State {
	return dynamo.State{o.F1, o.F2, o.F3}
}

func (o Occupancy) All() [4]float64 {
	return [4]float64{o.F1, o.F2, o.F3, o.F4()}
}

func (o Occupancy) InBounds() bool {
	for _, f := range o.All() {
		if f < 0 || f > 1 {
			return false
		}
	}
	return true
}

func (o Occupancy) String() string {
	return fmt.Sprintf("F1=%.6f F2=%.6f F3=%.6f F4=%.6f", o.F1, o.F2, o.F3, o.F4())
}

// Input indices into dynamo.Control.
const (
	InputNa = 0
	InputCa = 1
)

type Model struct {
	rates Rates
}

func New(r Rates) *Model {
	return &Model{rates: r}
}

func (m *Model) StateDim() int   { return 3 }
func (m *Model) ControlDim() int { return 2 }
func (m *Model) Rates() Rates    { return m.rates }

// Derive returns dF1, dF2, dF3 for input u = (ni, ci). All three use the
// pre-step state, with F4 taken as the complement of that state.
func (m *Model) Derive(x dynamo.State, u dynamo.Control, _ float64) dynamo.State {
	r := m.rates
	f1, f2, f3 := x[0], x[1], x[2]
	f4 := 1 - f1 - f2 - f3
	ni, ci := u[InputNa], u[InputCa]
	f3n := r.Hill(ni)

	return dynamo.State{
		f4*ci*r.Kcon1 - f1*r.Kcoff1 + f2*f3n*r.Kinact - f1*r.K14,
		f3*ci*r.Kcon2 - f2*r.Kcoff2 + f1*r.K12 - f2*f3n*r.Kinact,
		f2*r.Kcoff2 + f4*r.K43 - f3*ci*r.Kcon2 - f3*f3n*r.Kinact*r.InactGain,
	}
}

// Output is the exchanger current F2*f3n.
func (m *Model) Output(x dynamo.State, u dynamo.Control) float64 {
	return x[1] * m.rates.Hill(u[InputNa])
}

func (m *Model) Expand(x dynamo.State) dynamo.State {
	o := OccupancyOf(x)
	return dynamo.State{o.F1, o.F2, o.F3, o.F4()}
}

func (m *Model) InBounds(x dynamo.State) bool {
	return OccupancyOf(x).InBounds()
}

// Jacobian returns d(dF)/dF for a fixed input. The model is linear in the
// state once F4 is substituted, so this is exact everywhere.
func (m *Model) Jacobian(u dynamo.Control) *mat.Dense {
	r := m.rates
	ci := u[InputCa]
	f3n := r.Hill(u[InputNa])
	a := ci * r.Kcon1
	b := ci * r.Kcon2
	inact := f3n * r.Kinact

	return mat.NewDense(3, 3, []float64{
		-a - r.Kcoff1 - r.K14, -a + inact, -a,
		r.K12, -r.Kcoff2 - inact, b,
		-r.K43, r.Kcoff2 - r.K43, -r.K43 - b - inact*r.InactGain,
	})
}

func (m *Model) GetParams() map[string]float64 {
	r := m.rates
	return map[string]float64{
		"kcon1": r.Kcon1, "kcoff1": r.Kcoff1, "kcon2": r.Kcon2, "kcoff2": r.Kcoff2,
		"kinact": r.Kinact,
	}
}

func (m *Model) SetParam(name string, value float64) error {
	next := m.rates
	switch name {
	case "kcon1":
		next.Kcon1 = value
	case "kcoff1":
		next.Kcoff1 = value
	case "kcon2":
		next.Kcon2 = value
	case "kcoff2":
		next.Kcoff2 = value
	case "kinact":
		next.Kinact = value
	default:
		return fmt.Errorf("unknown parameter %q", name)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	m.rates = next
	return nil
}
